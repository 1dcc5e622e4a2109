package mediaid

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	id := New()
	if !strings.HasPrefix(id, "med_") {
		t.Errorf("New() = %q, want med_ prefix", id)
	}
	// med_ + 26 ULID characters
	if len(id) != 4+26 {
		t.Errorf("New() length = %d, want %d", len(id), 4+26)
	}
	if !IsValid(id) {
		t.Errorf("New() produced invalid id %q", id)
	}
}

// The id is the only access control on the media URL, so collisions or low
// entropy would be a security defect, not just a correctness bug.
func TestNewUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := New()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"generated id", New(), true},
		{"empty", "", false},
		{"missing prefix", "01hgw2x5v9k8q3n7m1p0r4s6t8", false},
		{"wrong prefix", "jan_01hgw2x5v9k8q3n7m1p0r4s6t8", false},
		{"path traversal", "med_../../etc/passwd", false},
		{"separator smuggling", "med_01hgw2/x5v9k8q3n7m1p0r4s6", false},
		{"too short", "med_01hgw2", false},
		{"not a ulid", "med_zzzzzzzzzzzzzzzzzzzzzzzzzz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.value); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

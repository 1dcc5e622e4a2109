package mediaid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
	entropyMu   sync.Mutex
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// New returns a med_* ULID string. The identifier doubles as the capability
// token for the public media URL, so it must be unguessable as well as unique.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return "med_" + strings.ToLower(id.String())
}

// IsValid reports whether the string is a med_* ULID. Everything that touches
// the storage directory goes through this check first, so no raw user input
// ever becomes a path segment.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, "med_") {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse strips the med_ prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "med_")
	value = strings.TrimPrefix(value, "MED_")
	return ulid.Parse(value)
}

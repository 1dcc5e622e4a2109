// Package storage persists watermarked media and its metadata sidecar on the
// local filesystem. Layout is a single flat directory with two files per item:
// {id}.{extension} for the binary and {id}.json for the metadata.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"artforge/services/watermark-api/internal/config"
	"artforge/services/watermark-api/internal/infrastructure/metrics"
	"artforge/services/watermark-api/utils/mediaid"
)

// ErrNotFound is returned for unknown, expired, or partially written ids.
// Callers treat it as a normal outcome, not a failure.
var ErrNotFound = errors.New("media not found")

// Meta is the metadata sidecar persisted next to the binary.
type Meta struct {
	OriginalURL string `json:"originalUrl"`
	MimeType    string `json:"mimeType"`
	Extension   string `json:"extension"`
	CreatedAt   string `json:"createdAt"`
}

// Record is a complete media item: watermarked bytes plus sidecar.
type Record struct {
	ID     string
	Binary []byte
	Meta   Meta
}

// FileStore owns the on-disk representation of media records. No other
// component writes to the storage directory.
type FileStore struct {
	basePath string
	log      zerolog.Logger
}

// NewFileStore creates the storage root if absent and returns the store.
func NewFileStore(cfg *config.Config, log zerolog.Logger) (*FileStore, error) {
	logger := log.With().Str("component", "media-store").Logger()

	if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	logger.Info().Str("path", cfg.StoragePath).Msg("media store initialized")
	return &FileStore{basePath: cfg.StoragePath, log: logger}, nil
}

// Save writes the binary and its metadata sidecar under id. The sidecar is
// written last via temp-file + rename, so it acts as the commit point: a
// binary without a sidecar is never observable through LoadMedia. Records are
// written once and never mutated.
func (s *FileStore) Save(ctx context.Context, id string, binary []byte, meta Meta) error {
	if !mediaid.IsValid(id) {
		metrics.StoreOperationsTotal.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("invalid media id %q", id)
	}
	if meta.Extension == "" {
		metrics.StoreOperationsTotal.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("media %s: extension is required", id)
	}
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := os.WriteFile(s.binaryPath(id, meta.Extension), binary, 0o644); err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("write media binary: %w", err)
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("encode metadata: %w", err)
	}

	sidecar := s.sidecarPath(id)
	tmp := sidecar + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("write metadata sidecar: %w", err)
	}
	if err := os.Rename(tmp, sidecar); err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("commit metadata sidecar: %w", err)
	}

	metrics.StoreOperationsTotal.WithLabelValues("save", "ok").Inc()
	s.log.Debug().
		Str("id", id).
		Int("bytes", len(binary)).
		Str("mime", meta.MimeType).
		Msg("media record saved")
	return nil
}

// LoadMedia reads the binary and sidecar for id. Either file missing, or a
// sidecar that fails to parse, yields ErrNotFound; a partial record is never
// surfaced as usable.
func (s *FileStore) LoadMedia(ctx context.Context, id string) (*Record, error) {
	meta, err := s.loadMeta(id)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("load", "miss").Inc()
		return nil, err
	}

	binary, err := os.ReadFile(s.binaryPath(id, meta.Extension))
	if err != nil {
		if os.IsNotExist(err) {
			metrics.StoreOperationsTotal.WithLabelValues("load", "miss").Inc()
			return nil, ErrNotFound
		}
		metrics.StoreOperationsTotal.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("read media binary: %w", err)
	}

	metrics.StoreOperationsTotal.WithLabelValues("load", "ok").Inc()
	return &Record{ID: id, Binary: binary, Meta: *meta}, nil
}

// LoadOriginalURL returns just the original source URL for id. This is the
// only accessor the unlock/download-original flows need; the rest of the
// sidecar stays internal.
func (s *FileStore) LoadOriginalURL(ctx context.Context, id string) (string, error) {
	meta, err := s.loadMeta(id)
	if err != nil {
		return "", err
	}
	return meta.OriginalURL, nil
}

// Health checks that the storage directory is writable.
func (s *FileStore) Health(ctx context.Context) error {
	probe := filepath.Join(s.basePath, ".health_check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(probe)
	return nil
}

func (s *FileStore) loadMeta(id string) (*Meta, error) {
	// The id check is the path-traversal guard: anything that is not a
	// med_* ULID never reaches path construction.
	if !mediaid.IsValid(id) {
		return nil, ErrNotFound
	}

	raw, err := os.ReadFile(s.sidecarPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read metadata sidecar: %w", err)
	}

	meta := &Meta{}
	if err := json.Unmarshal(raw, meta); err != nil {
		s.log.Warn().Str("id", id).Err(err).Msg("metadata sidecar failed to parse, treating as not found")
		return nil, ErrNotFound
	}
	if meta.Extension == "" {
		return nil, ErrNotFound
	}
	return meta, nil
}

func (s *FileStore) binaryPath(id, extension string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s.%s", id, extension))
}

func (s *FileStore) sidecarPath(id string) string {
	return filepath.Join(s.basePath, id+".json")
}

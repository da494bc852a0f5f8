package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sarchain/internal/engine"
	"sarchain/internal/logging"
	"sarchain/internal/services"
)

// Artifact is one checkpointed stage output.
type Artifact struct {
	Path      string
	Stage     string
	Source    string
	WrittenAt time.Time
}

// Writer serializes a product to disk.
type Writer interface {
	Write(ctx context.Context, product engine.Handle, path string) error
}

// Recorder is notified after each successful write.
type Recorder interface {
	RecordArtifact(ctx context.Context, a Artifact) error
}

// Store persists stage outputs.
type Store struct {
	writer   Writer
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder attaches a recorder notified of every persisted artifact.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore builds a Store that serializes through writer.
func NewStore(writer Writer, opts ...Option) *Store {
	s := &Store{writer: writer}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

// Persist writes product to a.Path, replacing any prior content. Directory
// and removal failures carry services.ErrPersistence; writer failures are
// returned unchanged.
func (s *Store) Persist(ctx context.Context, product engine.Handle, a Artifact) (Artifact, error) {
	if s == nil || s.writer == nil {
		return a, services.Wrap(services.ErrPersistence, a.Stage, "persist", "artifact writer unavailable", nil)
	}
	if product == nil {
		return a, services.Wrap(services.ErrPersistence, a.Stage, "persist", "no product to write", nil)
	}
	if a.Path == "" {
		return a, services.Wrap(services.ErrPersistence, a.Stage, "persist", "empty artifact path", nil)
	}

	dir := filepath.Dir(a.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return a, services.Wrap(services.ErrPersistence, a.Stage, "create output directory", dir, err)
	}
	if err := removeExisting(a.Path); err != nil {
		return a, services.Wrap(services.ErrPersistence, a.Stage, "remove previous artifact", a.Path, err)
	}

	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("writing artifact",
		logging.String("path", a.Path),
		logging.String("product", product.Name()),
	)
	if err := s.writer.Write(ctx, product, a.Path); err != nil {
		return a, err
	}
	a.WrittenAt = time.Now().UTC()

	logger.Info("artifact written",
		logging.String(logging.FieldEventType, "artifact_written"),
		logging.String("path", a.Path),
		logging.String("source", a.Source),
	)

	if s.recorder != nil {
		if err := s.recorder.RecordArtifact(ctx, a); err != nil {
			logger.Warn("artifact ledger update failed",
				logging.String("path", a.Path),
				logging.Error(err),
			)
		}
	}
	return a, nil
}

func removeExisting(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if data := companionDir(path); data != "" {
		if err := os.RemoveAll(data); err != nil {
			return fmt.Errorf("remove %s: %w", data, err)
		}
	}
	return nil
}

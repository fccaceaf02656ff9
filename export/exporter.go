// Package export writes recorded routes as GPX, KML or GeoJSON files.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/walkflow"
	"github.com/spf13/afero"
)

// FileExporter writes export documents into a directory of an afero filesystem
type FileExporter struct {
	fs     afero.Fs
	dir    string
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a FileExporter
type Option func(*FileExporter)

// WithClock overrides the clock used for file names
func WithClock(now func() time.Time) Option {
	return func(e *FileExporter) {
		e.now = now
	}
}

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *FileExporter) {
		e.logger = logger
	}
}

// NewFileExporter creates an exporter writing into dir on fs
func NewFileExporter(fs afero.Fs, dir string, opts ...Option) *FileExporter {
	e := &FileExporter{
		fs:     fs,
		dir:    dir,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileName returns walkcity-route-YYYY-MM-DD.<ext> for the given day
func FileName(day time.Time, format walkflow.ExportFormat) string {
	return fmt.Sprintf("walkcity-route-%s.%s", day.Format(time.DateOnly), format)
}

// Export encodes the route and writes it atomically.
// A second export of the same format on the same day replaces the first.
func (e *FileExporter) Export(ctx context.Context, req walkflow.ExportRequest) (walkflow.ExportReference, error) {
	if err := ctx.Err(); err != nil {
		return walkflow.ExportReference{}, err
	}

	data, err := Encode(req)
	if err != nil {
		return walkflow.ExportReference{}, err
	}

	path := filepath.Join(e.dir, FileName(e.now(), req.Format))
	if err := writeFileAtomic(e.fs, path, data); err != nil {
		return walkflow.ExportReference{}, err
	}

	e.logger.Info().
		Str("path", path).
		Str("format", req.Format.String()).
		Int("points", len(req.Points)).
		Msg("Route exported")

	return walkflow.ExportReference{
		Path:      path,
		Format:    req.Format,
		SizeBytes: int64(len(data)),
	}, nil
}

// writeFileAtomic writes data to a temp file in the target directory and renames it into place
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer fs.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}

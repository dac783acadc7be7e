package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"weather-qc/internal/models"
	"weather-qc/pkg/logging"
)

// FileExporter writes the rendered artifacts into a local directory
type FileExporter struct {
	dir       string
	names     FileNames
	perSource bool
	logger    *logging.StructuredLogger
}

// NewFileExporter creates a new file exporter
func NewFileExporter(dir string, names FileNames, logger *logging.StructuredLogger) *FileExporter {
	return &FileExporter{
		dir:    dir,
		names:  names,
		logger: logger,
	}
}

// PerSource makes the exporter write each run into a subdirectory named
// after its source file, so that runs over several files do not overwrite
// each other
func (e *FileExporter) PerSource() *FileExporter {
	e.perSource = true
	return e
}

// Dir returns the directory the artifacts of result are written to
func (e *FileExporter) Dir(result *models.QCResult) string {
	if !e.perSource {
		return e.dir
	}
	base := filepath.Base(result.Run.Source)
	return filepath.Join(e.dir, strings.TrimSuffix(base, filepath.Ext(base)))
}

// Name identifies the exporter in logs and metrics
func (e *FileExporter) Name() string {
	return "file"
}

// Export writes every artifact, replacing existing files
func (e *FileExporter) Export(ctx context.Context, result *models.QCResult) error {
	artifacts, err := Render(result, e.names)
	if err != nil {
		return err
	}

	dir := e.Dir(result)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		if err := writeFileAtomic(path, a.Data); err != nil {
			return err
		}
		e.logger.Info(ctx, "[EXPORT_FILE] Artifact written", logging.Fields{
			"path":  path,
			"bytes": len(a.Data),
		})
	}
	return nil
}

// writeFileAtomic writes through a temp file so readers never see a partial file
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

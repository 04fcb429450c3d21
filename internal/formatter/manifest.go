package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// Manifest status values
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// ManifestEntry records the outcome of one chart export.
type ManifestEntry struct {
	Genre   string   `json:"genre"`
	Service string   `json:"service"`
	Name    string   `json:"name"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// Manifest summarises a multi-chart export.
type Manifest struct {
	Format            string          `json:"format"`
	OutputDirectory   string          `json:"output_directory"`
	TotalCharts       int             `json:"total_charts"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Status            string          `json:"status"`
	ExportedAt        time.Time       `json:"exported_at"`
	Charts            []ManifestEntry `json:"charts"`
}

// ManifestStatus derives the overall status from success and failure counts.
func ManifestStatus(successful, failed int) string {
	switch {
	case failed == 0:
		return StatusCompleted
	case successful == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// WriteManifest writes m as indented JSON to path, filling Status when empty.
func WriteManifest(m *Manifest, path string) error {
	if m.Status == "" {
		m.Status = ManifestStatus(m.SuccessfulExports, m.FailedExports)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by [WriteManifest].
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

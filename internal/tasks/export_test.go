package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tunemeld/internal/formatter"
	"github.com/desertthunder/tunemeld/internal/shared"
	tu "github.com/desertthunder/tunemeld/internal/testing"
)

func newTestExporter(gw *tu.MockGateway) *Exporter {
	e := NewExporter(gw, nil)
	e.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("Exports Selected Genres", func(t *testing.T) {
		gw := tu.NewMockGateway()
		dir := t.TempDir()
		prog := make(chan ProgressUpdate, 64)

		res, err := newTestExporter(gw).Export(ctx, prog, ExportOptions{
			Format:    "csv",
			OutputDir: dir,
			RateLimit: 1000,
			Genres:    []string{"pop", "rap"},
		})
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}

		if res.TotalCharts != 8 || res.SuccessfulExports != 8 || res.FailedExports != 0 {
			t.Errorf("unexpected counts %+v", res)
		}
		if res.Results[0].Genre != "pop" || res.Results[len(res.Results)-1].Genre != "rap" {
			t.Error("expected results sorted by genre")
		}

		tracks := filepath.Join(dir, "pop", "tunemeld_tracks.csv")
		tu.AssertFileExists(t, tracks)
		tu.AssertFileExists(t, filepath.Join(dir, "rap", "spotify_metadata.json"))

		content := tu.MustReadFile(t, tracks)
		if !strings.Contains(content, "USRC102400000") || !strings.Contains(content, "91000000") {
			t.Errorf("expected enriched tracks in CSV, got %s", content)
		}

		m, err := formatter.ReadManifest(res.ManifestPath)
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if m.Status != formatter.StatusCompleted || m.TotalCharts != 8 || m.Format != "csv" {
			t.Errorf("unexpected manifest %+v", m)
		}
		if len(prog) == 0 {
			t.Error("expected progress updates")
		}
	})

	t.Run("Progress Names Genre And Service", func(t *testing.T) {
		gw := tu.NewMockGateway()
		prog := make(chan ProgressUpdate, 16)

		if _, err := newTestExporter(gw).Export(ctx, prog, ExportOptions{
			Format:    "json",
			OutputDir: t.TempDir(),
			RateLimit: 1000,
			Genres:    []string{"pop"},
			Services:  []string{"tunemeld"},
		}); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		close(prog)

		var exporting []string
		for u := range prog {
			if strings.Contains(u.Message, "Exporting") {
				exporting = append(exporting, u.Message)
			}
		}
		if len(exporting) != 1 || exporting[0] != "[1/1] Exporting: pop/tunemeld..." {
			t.Errorf("unexpected exporting messages %q", exporting)
		}
	})

	t.Run("Records Failed Charts", func(t *testing.T) {
		gw := tu.NewMockGateway()
		gw.FailWith("PlaylistTracks:soundcloud", errors.New("soundcloud is down"))

		res, err := newTestExporter(gw).Export(ctx, nil, ExportOptions{
			Format:    "txt",
			OutputDir: t.TempDir(),
			RateLimit: 1000,
			Genres:    []string{"country"},
		})
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if res.SuccessfulExports != 3 || res.FailedExports != 1 {
			t.Errorf("unexpected counts %+v", res)
		}

		m, err := formatter.ReadManifest(res.ManifestPath)
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if m.Status != formatter.StatusPartial {
			t.Errorf("expected partial, got %q", m.Status)
		}
		for _, c := range m.Charts {
			if c.Service == "soundcloud" && (c.Success || !strings.Contains(c.Error, "soundcloud is down")) {
				t.Errorf("unexpected soundcloud entry %+v", c)
			}
		}
	})

	t.Run("Filters Services And Sorts By Rank", func(t *testing.T) {
		gw := tu.NewMockGateway()
		dir := t.TempDir()

		res, err := newTestExporter(gw).Export(ctx, nil, ExportOptions{
			Format:    "json",
			OutputDir: dir,
			RateLimit: 1000,
			Genres:    []string{"pop"},
			Services:  []string{"tunemeld"},
			Rank:      "spotify-views",
		})
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if res.TotalCharts != 1 {
			t.Fatalf("expected a single chart, got %d", res.TotalCharts)
		}

		content := tu.MustReadFile(t, filepath.Join(dir, "pop", "tunemeld.json"))
		first := strings.Index(content, "USRC102400002")
		second := strings.Index(content, "USRC102400000")
		if first < 0 || second < 0 || first > second {
			t.Error("expected most played track first")
		}
	})

	t.Run("Rejects Unknown Genre", func(t *testing.T) {
		_, err := newTestExporter(tu.NewMockGateway()).Export(ctx, nil, ExportOptions{
			OutputDir: t.TempDir(),
			Genres:    []string{"polka"},
		})
		if !errors.Is(err, shared.ErrInvalidGenre) {
			t.Errorf("expected ErrInvalidGenre, got %v", err)
		}
	})

	t.Run("Rejects Unknown Rank", func(t *testing.T) {
		_, err := newTestExporter(tu.NewMockGateway()).Export(ctx, nil, ExportOptions{
			OutputDir: t.TempDir(),
			Rank:      "vinyl-sales",
		})
		if !errors.Is(err, shared.ErrInvalidRank) {
			t.Errorf("expected ErrInvalidRank, got %v", err)
		}
	})

	t.Run("Rejects Unknown Format", func(t *testing.T) {
		_, err := newTestExporter(tu.NewMockGateway()).Export(ctx, nil, ExportOptions{Format: "xml"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Nil Gateway", func(t *testing.T) {
		_, err := (&Exporter{}).Export(ctx, nil, ExportOptions{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

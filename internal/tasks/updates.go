package tasks

import (
	"fmt"

	"github.com/desertthunder/tunemeld/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase      Phase  // Operation phase
	Step       int    // Current step number within phase
	Total      int    // Total steps in this phase
	Message    string // Human-readable message for display
	Generation uint64 // Navigation generation the update belongs to, 0 outside activations
	Data       any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchReference Phase = iota
	FetchMain
	FetchServices
	EnrichPlayCounts
	Render
	Complete
	Failed
	ExportChart
)

func (p Phase) String() string {
	switch p {
	case FetchReference:
		return "fetch_reference"
	case FetchMain:
		return "fetch_main"
	case FetchServices:
		return "fetch_services"
	case EnrichPlayCounts:
		return "enrich_play_counts"
	case Render:
		return "render"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	case ExportChart:
		return "export_chart"
	default:
		return ""
	}
}

func fetchReferenceUpdate(gen uint64, genre string) ProgressUpdate {
	return ProgressUpdate{
		Phase:      FetchReference,
		Step:       1,
		Total:      1,
		Generation: gen,
		Message:    fmt.Sprintf("Fetching %s metadata, chart and ranks...", genre),
	}
}

func fetchMainUpdate(gen uint64, genre string) ProgressUpdate {
	return ProgressUpdate{
		Phase:      FetchMain,
		Step:       1,
		Total:      1,
		Generation: gen,
		Message:    fmt.Sprintf("Refreshing %s chart...", genre),
	}
}

func serviceFetchedUpdate(gen uint64, step, total int, service string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, service)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, service, err)
	}
	return ProgressUpdate{
		Phase:      FetchServices,
		Step:       step,
		Total:      total,
		Generation: gen,
		Message:    msg,
	}
}

func enrichUpdate(gen uint64, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:      EnrichPlayCounts,
		Step:       1,
		Total:      1,
		Generation: gen,
		Message:    fmt.Sprintf("Fetching play counts for %d tracks...", count),
	}
}

func renderUpdate(gen uint64, main *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:      Render,
		Step:       1,
		Total:      1,
		Generation: gen,
		Message:    fmt.Sprintf("Rendering %d tracks...", len(main.Tracks)),
		Data:       main,
	}
}

func completeUpdate(gen uint64, res *ActivationResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:      Complete,
		Step:       1,
		Total:      1,
		Generation: gen,
		Message:    fmt.Sprintf("Loaded %s", res.Genre),
		Data:       res,
	}
}

func failedUpdate(gen uint64, genre string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:      Failed,
		Step:       1,
		Total:      1,
		Generation: gen,
		Message:    fmt.Sprintf("Failed to load %s: %v", genre, err),
	}
}

func exportingChartUpdate(step, total int, job ExportJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportChart,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s/%s...", step, total, job.Genre.Name, job.Service),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportChart,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportChart,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

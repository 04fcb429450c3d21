package tasks

import "context"

// Activator runs genre activations. [Pipeline] is the production implementation.
type Activator interface {
	Run(ctx context.Context, a Activation) (*ActivationResult, error)
	SetStaleCheck(fn func(generation uint64) bool)
}

// ChartExporter writes charts to disk. [Exporter] is the production implementation.
type ChartExporter interface {
	Export(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOptions) (*ExportResult, error)
}

var (
	_ Activator     = (*Pipeline)(nil)
	_ ChartExporter = (*Exporter)(nil)
	_ Renderer      = (*PageRecorder)(nil)
	_ Renderer      = NopRenderer{}
)

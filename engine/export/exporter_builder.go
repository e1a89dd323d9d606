package export

import "io"

// ExporterBuilderOption is a function that configures an exporter instance during construction.
type ExporterBuilderOption func(*Exporter)

// WithConfig is an option builder that replaces the exporter's configuration.
//
// Parameters:
//   - cfg: the full configuration surface
//
// Returns:
//   - ExporterBuilderOption: a function that applies the configuration to an exporter
func WithConfig(cfg Config) ExporterBuilderOption {
	return func(e *Exporter) {
		e.cfg = cfg
	}
}

// WithBasePath is an option builder that sets the output directory.
//
// Parameters:
//   - path: directory all output files land under (must exist)
//
// Returns:
//   - ExporterBuilderOption: a function that applies the base path to an exporter
func WithBasePath(path string) ExporterBuilderOption {
	return func(e *Exporter) {
		e.cfg.BasePath = path
	}
}

// WithSingleAssetFile is an option builder that switches between one combined
// asset file (true) and per-frame resource re-declaration (false).
//
// Parameters:
//   - single: true for the combined asset file
//
// Returns:
//   - ExporterBuilderOption: a function that applies the mode to an exporter
func WithSingleAssetFile(single bool) ExporterBuilderOption {
	return func(e *Exporter) {
		e.cfg.SingleAssetFile = single
	}
}

// WithAssetsWriter is an option builder that redirects the asset stream,
// bypassing file creation. Useful for tests and in-memory consumers.
//
// Parameters:
//   - w: destination for asset declarations
//
// Returns:
//   - ExporterBuilderOption: a function that applies the writer to an exporter
func WithAssetsWriter(w io.Writer) ExporterBuilderOption {
	return func(e *Exporter) {
		e.assets = w
	}
}

// WithStateFactory is an option builder that replaces how per-frame state
// streams are opened.
//
// Parameters:
//   - f: factory invoked once per frame with the frame descriptor
//
// Returns:
//   - ExporterBuilderOption: a function that applies the factory to an exporter
func WithStateFactory(f StateFactory) ExporterBuilderOption {
	return func(e *Exporter) {
		e.stateFactory = f
	}
}

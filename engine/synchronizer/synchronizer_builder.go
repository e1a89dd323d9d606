package synchronizer

import (
	"github.com/davik-lab/specula/engine/loader"
)

// SynchronizerBuilderOption is a functional option used with New to
// configure a Synchronizer before first use.
type SynchronizerBuilderOption func(*Synchronizer)

// WithLoader attaches an asynchronous mesh loader. External mesh shapes are
// prefetched at bind time and their nodes created once the load merges at a
// safe point during OnUpdate. Without a loader, external meshes bind
// immediately as path-only declarations.
//
// Parameters:
//   - ld: the loader to attach, ignored when nil.
//
// Returns:
//   - SynchronizerBuilderOption: the option to apply.
func WithLoader(ld loader.Loader) SynchronizerBuilderOption {
	return func(s *Synchronizer) {
		if ld != nil {
			s.ld = ld
		}
	}
}

// WithCOGMarkers enables center-of-gravity symbols for every bound rigid
// body, scaled to size world units.
//
// Parameters:
//   - size: marker size in world units, values <= 0 disable the markers.
//
// Returns:
//   - SynchronizerBuilderOption: the option to apply.
func WithCOGMarkers(size float64) SynchronizerBuilderOption {
	return func(s *Synchronizer) {
		s.cogSize = size
	}
}

// WithItemFrameMarkers enables reference-frame triads at every entity's
// model frame.
//
// Parameters:
//   - size: marker size in world units, values <= 0 disable the markers.
//
// Returns:
//   - SynchronizerBuilderOption: the option to apply.
func WithItemFrameMarkers(size float64) SynchronizerBuilderOption {
	return func(s *Synchronizer) {
		s.itemFrameSize = size
	}
}

// WithLinkFrameMarkers enables reference-frame triads at every link's
// midpoint frame.
//
// Parameters:
//   - size: marker size in world units, values <= 0 disable the markers.
//
// Returns:
//   - SynchronizerBuilderOption: the option to apply.
func WithLinkFrameMarkers(size float64) SynchronizerBuilderOption {
	return func(s *Synchronizer) {
		s.linkFrameSize = size
	}
}

// WithStartFrame sets the number the first emitted frame carries; subsequent
// frames continue from it.
//
// Parameters:
//   - n: the first frame number.
//
// Returns:
//   - SynchronizerBuilderOption: the option to apply.
func WithStartFrame(n uint) SynchronizerBuilderOption {
	return func(s *Synchronizer) {
		s.next = n
	}
}

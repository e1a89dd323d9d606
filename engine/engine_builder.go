package engine

import (
	"time"

	"github.com/davik-lab/specula/engine/viewer"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the
// engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables pass-rate profiling output.
//
// Parameters:
//   - enabled: if true, enables profiling output to the log
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the synchronization tick rate in passes per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target passes per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.tickRate = time.Second / time.Duration(fps)
	}
}

// WithBroadcaster attaches a viewer broadcaster; the engine publishes the
// overlay snapshot to it after every synchronization pass and closes it on
// Quit.
//
// Parameters:
//   - b: a configured broadcaster, ignored when nil
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBroadcaster(b *viewer.Broadcaster) EngineBuilderOption {
	return func(e *engine) {
		if b != nil {
			e.broadcaster = b
		}
	}
}

// WithStepCallback registers the simulation step function during construction.
//
// Parameters:
//   - callback: called each tick with the elapsed wall time in seconds
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStepCallback(callback func(deltaTime float64)) EngineBuilderOption {
	return func(e *engine) {
		e.stepCallback = callback
	}
}

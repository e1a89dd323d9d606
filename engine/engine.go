// package engine drives the projection loop: it ties a synchronizer to a
// fixed-rate ticker, advances the simulation through a caller-supplied step
// callback, runs one incremental synchronization pass per tick, and publishes
// the overlay snapshot to any connected viewers. The tick goroutine is the
// synchronization thread; nothing else touches the synchronizer while the
// engine runs.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/davik-lab/specula/engine/profiler"
	"github.com/davik-lab/specula/engine/synchronizer"
	"github.com/davik-lab/specula/engine/viewer"
)

// engine implements the Engine interface.
type engine struct {
	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	sync        *synchronizer.Synchronizer
	broadcaster *viewer.Broadcaster

	prof             *profiler.Profiler
	profilingEnabled bool

	tickRate     time.Duration
	stepCallback func(deltaTime float64)
}

// Engine is the main entry point for a driven projection session.
type Engine interface {
	// Synchronizer returns the underlying synchronizer for registration and
	// configuration before Run.
	//
	// Returns:
	//   - *synchronizer.Synchronizer: the synchronizer instance
	Synchronizer() *synchronizer.Synchronizer

	// EnableProfiler enables pass-rate profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables pass-rate profiling output.
	DisableProfiler()

	// SetTickRate sets the synchronization tick rate in passes per second.
	// If the engine is running, the change takes effect immediately.
	//
	// Parameters:
	//   - fps: target passes per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetStepCallback registers the function that advances the simulation one
	// step before each synchronization pass.
	//
	// Parameters:
	//   - callback: called each tick with the elapsed wall time in seconds
	SetStepCallback(callback func(deltaTime float64))

	// Run binds the scene if necessary, then blocks running the tick loop
	// until Quit is called.
	//
	// Returns:
	//   - error: a bind refusal or the first emitter failure
	Run() error

	// Quit stops the tick loop, marks the synchronizer as closing, and
	// disconnects any viewers. Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an engine around one synchronizer.
//
// Parameters:
//   - s: the synchronizer to drive; must not be nil
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(s *synchronizer.Synchronizer, options ...EngineBuilderOption) Engine {
	if s == nil {
		panic("engine: NewEngine requires a non-nil Synchronizer")
	}
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		sync:            s,
		prof:            profiler.NewProfiler(),
		tickRate:        time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Synchronizer() *synchronizer.Synchronizer { return e.sync }

func (e *engine) Run() error {
	if e.sync.State() != synchronizer.StateBound {
		if err := e.sync.BindAll(); err != nil {
			return err
		}
	}
	e.running = true
	e.wg.Add(2)
	go e.handleTicks()
	go e.handleQuit()
	e.wg.Wait()
	return nil
}

// Quit signals the tick goroutine to stop and shuts the session down.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		e.sync.Quit()
		if e.broadcaster != nil {
			e.broadcaster.Close()
		}
		close(e.quitChannel)
	})
}

// handleTicks runs the fixed-rate synchronization loop in its own goroutine.
// Each tick advances the simulation, runs one incremental pass, and publishes
// the overlay. Listens for dynamic rate changes via tickRateChannel and exits
// when the quit channel is closed.
func (e *engine) handleTicks() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := now.Sub(lastTick).Seconds()
			lastTick = now

			if e.stepCallback != nil {
				e.stepCallback(dt)
			}
			if err := e.sync.OnUpdate(); err != nil {
				log.Printf("engine: synchronization pass: %v", err)
				e.signalQuit()
				return
			}
			if e.broadcaster != nil {
				e.broadcaster.Publish(e.sync.Stats())
			}
			if e.profilingEnabled {
				e.prof.Tick()
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.tickRate = newRate
		}
	}
}

// handleQuit blocks until the quit channel is closed.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables pass-rate profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables pass-rate profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the synchronization tick rate in passes per second.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// non-blocking send; replace any pending update
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.tickRate = newRate
	}
}

// SetStepCallback registers the function that advances the simulation each tick.
func (e *engine) SetStepCallback(callback func(deltaTime float64)) {
	e.stepCallback = callback
}

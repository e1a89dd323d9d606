// package loader prefetches and decodes external mesh files referenced by
// path, off the synchronization thread. Workers only produce completed loads;
// they never touch the mesh cache. The synchronization thread drains the merge
// queue at a safe point between frames and performs the cache insertion
// itself, so the hot update path needs no locking.
//
// Decoding stops at the geometry summary the projection layer actually needs
// (vertex and face counts); full mesh-format parsing belongs to the rendering
// back-end.
package loader

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// MeshData is the decoded summary of one external mesh file.
type MeshData struct {
	Path        string
	VertexCount int
	FaceCount   int
}

// mergeResult is what a prefetch worker hands back for merging.
type mergeResult struct {
	mesh MeshData
	err  error
}

// DecodeFunc turns a mesh file into its decoded summary.
type DecodeFunc func(path string) (MeshData, error)

// Loader defines the public-facing interface for asynchronous mesh prefetch.
// Prefetch, DrainMerges, and Get must all be called from the synchronization
// thread; only the internal workers run elsewhere.
type Loader interface {
	// Prefetch schedules an asynchronous load of path unless the mesh is
	// already cached or a load is in flight. Failed paths are retried only
	// when Prefetch is called again (i.e. on the next explicit rebind).
	//
	// Parameters:
	//   - path: mesh file path, also the cache key
	Prefetch(path string)

	// DrainMerges moves completed loads into the cache and invokes apply for
	// each. This is the only place cache insertion happens; call it at the
	// safe point between frames.
	//
	// Parameters:
	//   - apply: callback invoked per merged mesh, may be nil
	//
	// Returns:
	//   - int: number of meshes merged
	DrainMerges(apply func(MeshData)) int

	// Get returns the cached mesh for path.
	//
	// Parameters:
	//   - path: mesh file path
	//
	// Returns:
	//   - MeshData: the decoded mesh, zero when absent
	//   - bool: true when cached
	Get(path string) (MeshData, bool)

	// Close stops accepting new work. In-flight loads may still complete;
	// their results are discarded without touching the cache.
	Close()
}

type meshLoader struct {
	pool    worker.DynamicWorkerPool
	merges  chan mergeResult
	cache   map[string]MeshData
	pending map[string]bool
	decode  DecodeFunc
	workers int
	closed  atomic.Bool
	nextID  atomic.Int64
}

var _ Loader = &meshLoader{}

// NewLoader creates a loader with the given options. The default backend
// decodes Wavefront OBJ files with a bounded worker pool of two workers.
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &meshLoader{
		merges:  make(chan mergeResult, 256),
		cache:   make(map[string]MeshData),
		pending: make(map[string]bool),
		decode:  decodeOBJ,
		workers: 2,
	}
	for _, option := range options {
		option(l)
	}
	if l.pool == nil {
		l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	}
	return l
}

func (l *meshLoader) Prefetch(path string) {
	if l.closed.Load() {
		return
	}
	if _, ok := l.cache[path]; ok {
		return
	}
	if l.pending[path] {
		return
	}
	l.pending[path] = true
	p := path
	l.pool.SubmitTask(worker.Task{
		ID: int(l.nextID.Add(1)),
		Do: func() (any, error) {
			if l.closed.Load() {
				return nil, nil
			}
			mesh, err := l.decode(p)
			if err != nil {
				err = fmt.Errorf("loader: decode %s: %w", p, err)
			}
			mesh.Path = p
			select {
			case l.merges <- mergeResult{mesh: mesh, err: err}:
			default:
				// queue full; dropping the result is safe because it has not
				// touched shared state
			}
			return nil, nil
		},
	})
}

func (l *meshLoader) DrainMerges(apply func(MeshData)) int {
	merged := 0
	for {
		select {
		case res := <-l.merges:
			delete(l.pending, res.mesh.Path)
			if res.err != nil {
				log.Printf("loader: %v", res.err)
				continue
			}
			l.cache[res.mesh.Path] = res.mesh
			merged++
			if apply != nil {
				apply(res.mesh)
			}
		default:
			return merged
		}
	}
}

func (l *meshLoader) Get(path string) (MeshData, bool) {
	m, ok := l.cache[path]
	return m, ok
}

func (l *meshLoader) Close() {
	l.closed.Store(true)
}

// decodeOBJ scans a Wavefront OBJ file for its vertex and face counts.
func decodeOBJ(path string) (MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return MeshData{}, err
	}
	defer f.Close()

	var m MeshData
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "v "):
			m.VertexCount++
		case strings.HasPrefix(line, "f "):
			m.FaceCount++
		}
	}
	if err := sc.Err(); err != nil {
		return MeshData{}, err
	}
	if m.VertexCount == 0 {
		return MeshData{}, fmt.Errorf("no vertex data")
	}
	return m, nil
}

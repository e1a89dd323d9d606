// package emit defines the capability both projection back-ends implement:
// consume a projected frame as a sequence of node operations. The live scene
// graph and the file exporter are interchangeable behind Emitter; the
// synchronizer never knows which one it drives.
package emit

import (
	"github.com/davik-lab/specula/common"
	"github.com/davik-lab/specula/engine/cache"
	"github.com/davik-lab/specula/engine/classify"
	"github.com/davik-lab/specula/sim"
)

// Op is one node operation.
type Op int

const (
	OpCreate Op = iota
	OpUpdateTransform
	OpDestroy
)

// Group names one fixed sub-group of the scene root. The partition is
// structural: bulk operations (toggle all COG symbols, drop all particle
// nodes) address one group without traversing the rest.
type Group int

const (
	GroupBodies Group = iota
	GroupCOG
	GroupLinks
	GroupParticles
	GroupDeco
)

var groupNames = [...]string{"bodies", "cog", "links", "particles", "deco"}

func (g Group) String() string {
	if g < 0 || int(g) >= len(groupNames) {
		return "unknown"
	}
	return groupNames[g]
}

// NodeID identifies one projected node within an emitter.
type NodeID uint64

// FrameDescriptor is the unit of incremental update: a strictly increasing
// frame number (externally overridable) plus the simulated time it captures.
type FrameDescriptor struct {
	Number uint
	Time   float64
}

// ProjectedNode is the visual-graph element produced for one shape instance:
// a transform plus weak references to cached geometry and materials. The
// emitter owns the node; the entity registry holds only the NodeID needed to
// find it again.
type ProjectedNode struct {
	ID    NodeID
	Group Group

	// OwnerKey is the stable key of the simulation entity this projection
	// belongs to; OwnerName is carried for export-stream legibility.
	OwnerKey  uint64
	OwnerName string

	Primitive classify.Primitive
	Transform common.Transform

	// Geometry and material handles into the synchronizer's persistent epochs.
	Geometry  cache.Handle
	Materials []cache.Handle

	// GeometryKey is the stable identity key the geometry was resolved under
	// (shared unit primitives use a per-kind key, meshes the shape's own key).
	GeometryKey uint64

	// MaterialRefs keeps the originating material objects reachable so
	// emitters can re-declare frame-scoped attributes without another cache
	// round-trip.
	MaterialRefs []*sim.Material

	// Annotation is opaque pass-through text emitted verbatim with the node's
	// declaration; empty for most nodes.
	Annotation string
}

// Emitter consumes projected frames. BeginFrame/EndFrame bracket one frame's
// operations; Apply is never called outside a frame.
type Emitter interface {
	// BeginFrame opens the frame identified by fd.
	//
	// Parameters:
	//   - fd: frame number and simulated time
	//
	// Returns:
	//   - error: error if the frame cannot be opened (file target only)
	BeginFrame(fd FrameDescriptor) error

	// Apply performs one node operation.
	//
	// Parameters:
	//   - node: the projected node the operation concerns
	//   - op: Create, UpdateTransform, or Destroy
	//
	// Returns:
	//   - error: error if the operation cannot be recorded
	Apply(node *ProjectedNode, op Op) error

	// EndFrame closes the current frame and flushes anything buffered.
	//
	// Returns:
	//   - error: error if the flush fails
	EndFrame() error
}

// package scenegraph is the live-graph emitter: it maintains an in-memory,
// render-consumable scene partitioned into fixed sub-groups (bodies, COG
// symbols, links, particles, decoration) and mutates node transforms in place
// on incremental updates. Geometry and material resources live in refcounted
// arenas shared across nodes; a resource is released only when the last
// referencing node is destroyed.
package scenegraph

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/davik-lab/specula/common"
	"github.com/davik-lab/specula/engine/classify"
	"github.com/davik-lab/specula/engine/emit"
	"github.com/davik-lab/specula/sim"
)

// Geometry is one live geometry resource: the primitive kind plus the
// parameters a renderer needs to instantiate (or look up) the unit mesh.
type Geometry struct {
	Kind   classify.Kind
	Points []mgl64.Vec3 // polyline kinds only
	Path   string       // external meshes only
}

// Material is one live material resource, snapshotted from the originating
// simulation material at create time.
type Material struct {
	Name      string
	Diffuse   common.Color
	Ambient   common.Color
	Opacity   float64
	KdTexture string
}

// Node is one element of the live graph. Transform mutates in place on update;
// everything else is fixed at create time.
type Node struct {
	ID       emit.NodeID
	Group    emit.Group
	OwnerKey uint64
	Kind     classify.Kind

	Transform common.Transform
	Matrix    mgl64.Mat4

	geometry  int
	materials []int
}

// Graph implements emit.Emitter over the live scene. Not safe for concurrent
// use; the synchronization thread is the only writer.
type Graph struct {
	nodes  map[emit.NodeID]*Node
	groups [5][]*Node

	geometries *Arena[Geometry]
	materials  *Arena[Material]

	visible [5]bool
	frame   emit.FrameDescriptor
}

var _ emit.Emitter = &Graph{}

// NewGraph creates an empty live graph with all sub-groups visible.
func NewGraph() *Graph {
	g := &Graph{
		nodes:      make(map[emit.NodeID]*Node),
		geometries: NewArena[Geometry](),
		materials:  NewArena[Material](),
	}
	for i := range g.visible {
		g.visible[i] = true
	}
	return g
}

func (g *Graph) BeginFrame(fd emit.FrameDescriptor) error {
	g.frame = fd
	return nil
}

func (g *Graph) EndFrame() error { return nil }

// Frame returns the descriptor of the most recently begun frame.
func (g *Graph) Frame() emit.FrameDescriptor { return g.frame }

func (g *Graph) Apply(node *emit.ProjectedNode, op emit.Op) error {
	switch op {
	case emit.OpCreate:
		return g.create(node)
	case emit.OpUpdateTransform:
		n, ok := g.nodes[node.ID]
		if !ok {
			return fmt.Errorf("scenegraph: update for unknown node %d", node.ID)
		}
		n.Transform = node.Transform
		n.Matrix = node.Transform.Mat4()
		return nil
	case emit.OpDestroy:
		return g.destroy(node.ID)
	}
	return fmt.Errorf("scenegraph: unknown op %d", op)
}

func (g *Graph) create(node *emit.ProjectedNode) error {
	if _, ok := g.nodes[node.ID]; ok {
		return fmt.Errorf("scenegraph: duplicate node %d", node.ID)
	}
	n := &Node{
		ID:        node.ID,
		Group:     node.Group,
		OwnerKey:  node.OwnerKey,
		Kind:      node.Primitive.Kind,
		Transform: node.Transform,
		Matrix:    node.Transform.Mat4(),
	}
	n.geometry = g.geometries.Acquire(node.GeometryKey, func() Geometry {
		return Geometry{
			Kind:   node.Primitive.Kind,
			Points: node.Primitive.Points,
			Path:   node.Primitive.MeshPath,
		}
	})
	for _, m := range node.MaterialRefs {
		mat := m
		n.materials = append(n.materials, g.materials.Acquire(mat.Key(), func() Material {
			return snapshotMaterial(mat)
		}))
	}
	g.nodes[n.ID] = n
	g.groups[n.Group] = append(g.groups[n.Group], n)
	return nil
}

func (g *Graph) destroy(id emit.NodeID) error {
	n, ok := g.nodes[id]
	if !ok {
		// destroy is tolerated for already-removed nodes (rebind discards)
		return nil
	}
	g.geometries.Release(n.geometry)
	for _, m := range n.materials {
		g.materials.Release(m)
	}
	delete(g.nodes, id)
	grp := g.groups[n.Group]
	for i, c := range grp {
		if c.ID == id {
			g.groups[n.Group] = append(grp[:i], grp[i+1:]...)
			break
		}
	}
	return nil
}

func snapshotMaterial(m *sim.Material) Material {
	return Material{
		Name:      m.Name,
		Diffuse:   m.Diffuse,
		Ambient:   m.Ambient,
		Opacity:   m.Opacity,
		KdTexture: m.KdTexture,
	}
}

// Node returns a live node by id.
func (g *Graph) Node(id emit.NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// GroupNodes returns the nodes of one sub-group in creation order.
func (g *Graph) GroupNodes(grp emit.Group) []*Node { return g.groups[grp] }

// GroupLen returns the node count of one sub-group.
func (g *Graph) GroupLen(grp emit.Group) int { return len(g.groups[grp]) }

// NodeCount returns the total number of live nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// SetGroupVisible toggles a whole sub-group without touching its nodes.
func (g *Graph) SetGroupVisible(grp emit.Group, visible bool) { g.visible[grp] = visible }

// GroupVisible reports the visibility toggle of one sub-group.
func (g *Graph) GroupVisible(grp emit.Group) bool { return g.visible[grp] }

// NodeGeometry returns the geometry resource a node references.
func (g *Graph) NodeGeometry(n *Node) Geometry { return g.geometries.Get(n.geometry) }

// NodeMaterials returns the material resources a node references.
func (g *Graph) NodeMaterials(n *Node) []Material {
	out := make([]Material, 0, len(n.materials))
	for _, i := range n.materials {
		out = append(out, g.materials.Get(i))
	}
	return out
}

// MaterialCount returns the number of live (still referenced) material resources.
func (g *Graph) MaterialCount() int { return g.materials.Len() }

// GeometryCount returns the number of live geometry resources.
func (g *Graph) GeometryCount() int { return g.geometries.Len() }

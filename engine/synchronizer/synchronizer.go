// package synchronizer is the central state machine of the projection engine.
// It owns the entity registry, the persistent resource cache epochs, and the
// per-frame update protocol: BindAll performs a full rebuild of the visual
// graph through an emitter, OnUpdate walks the previously bound node set and
// recomposes only transforms. The simulation is authoritative and never waits
// on projection: every failure here degrades to a logged skip.
package synchronizer

import (
	"errors"
	"hash/fnv"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/davik-lab/specula/common"
	"github.com/davik-lab/specula/engine/cache"
	"github.com/davik-lab/specula/engine/classify"
	"github.com/davik-lab/specula/engine/compose"
	"github.com/davik-lab/specula/engine/emit"
	"github.com/davik-lab/specula/engine/loader"
	"github.com/davik-lab/specula/engine/registry"
	"github.com/davik-lab/specula/engine/viewer"
	"github.com/davik-lab/specula/sim"
)

// State is the synchronizer's lifecycle state.
type State int

const (
	StateUnbound State = iota
	StateBound
)

func (s State) String() string {
	if s == StateBound {
		return "bound"
	}
	return "unbound"
}

var (
	// ErrNothingToBind is returned when BindAll is refused: no registered
	// entities, or none of them is a rigid body.
	ErrNothingToBind = errors.New("synchronizer: nothing to bind")

	// ErrNotBound is returned when OnUpdate runs before a successful BindAll.
	ErrNotBound = errors.New("synchronizer: not bound")
)

// nodeRole drives the per-role update dispatch.
type nodeRole int

const (
	roleShape nodeRole = iota
	roleLinkShape
	roleParticle
	roleCOG
	roleItemFrame
	roleLinkFrame
	roleDeco
)

type boundNode struct {
	node emit.ProjectedNode
	role nodeRole

	owner sim.Entity
	inst  sim.ShapeInstance
	link  sim.Link
	body  sim.Body
	cloud sim.ParticleCloud
	index int // particle index within the owning cloud
}

type cloudState struct {
	cloud sim.ParticleCloud
	nodes []*boundNode
}

type deferredBind struct {
	owner sim.Entity
	inst  sim.ShapeInstance
	prim  classify.Primitive
}

type gridSpec struct {
	ustep, vstep float64
	nu, nv       int
	frame        common.Frame
	color        common.Color
}

// cameraDeclarer is the optional emitter capability for camera asset
// declarations (the file emitter implements it).
type cameraDeclarer interface {
	DeclareCamera(c *sim.Camera) error
}

// Synchronizer orchestrates full rebuilds and incremental updates of one
// visual graph. A single logical thread drives it; BindAll and OnUpdate are
// never concurrent and never re-entrant.
type Synchronizer struct {
	sys sim.System
	em  emit.Emitter
	reg *registry.Registry
	ld  loader.Loader

	materials  *cache.Epoch[*sim.Material]
	geometries *cache.Epoch[classify.Primitive]
	cameras    *cache.Epoch[*sim.Camera]

	kindKeys  map[classify.Kind]uint64
	shapeKeys map[sim.Shape]uint64

	state    State
	next     uint
	nextNode uint64

	nodes    []*boundNode
	clouds   map[uint64]*cloudState
	deferred map[string][]deferredBind
	grids    []gridSpec

	cogSize       float64
	itemFrameSize float64
	linkFrameSize float64

	refuseLogged bool
	begun        bool
	timeBegin    time.Time
	lastFrame    emit.FrameDescriptor
	quit         bool
}

// New creates a synchronizer over one simulation system and one emitter.
// Both are required; New panics if either is nil.
func New(sys sim.System, em emit.Emitter, options ...SynchronizerBuilderOption) *Synchronizer {
	if sys == nil {
		panic("synchronizer: New requires a non-nil System")
	}
	if em == nil {
		panic("synchronizer: New requires a non-nil Emitter")
	}
	s := &Synchronizer{
		sys:        sys,
		em:         em,
		reg:        registry.New(),
		materials:  cache.NewEpoch[*sim.Material](),
		geometries: cache.NewEpoch[classify.Primitive](),
		cameras:    cache.NewEpoch[*sim.Camera](),
		kindKeys:   make(map[classify.Kind]uint64),
		shapeKeys:  make(map[sim.Shape]uint64),
		clouds:     make(map[uint64]*cloudState),
		deferred:   make(map[string][]deferredBind),
		nextNode:   1,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Synchronizer) State() State { return s.state }

// Registry returns the entity registry for direct membership queries.
func (s *Synchronizer) Registry() *registry.Registry { return s.reg }

// Add registers one entity for projection (idempotent; refused without a
// visual model).
func (s *Synchronizer) Add(e sim.Entity) bool { return s.reg.Add(e) }

// AddAll sweeps the system and registers every entity with a visual model.
func (s *Synchronizer) AddAll() int { return s.reg.AddAll(s.sys) }

// SetAnnotation attaches pass-through text to an entity's emitted declaration.
func (s *Synchronizer) SetAnnotation(e sim.Entity, text string) {
	s.reg.SetAnnotation(e, text)
}

// SetShowCOGs toggles center-of-gravity markers; size is the symbol size in
// world units. Takes effect on the next BindAll.
func (s *Synchronizer) SetShowCOGs(show bool, size float64) {
	if show {
		s.cogSize = size
	} else {
		s.cogSize = 0
	}
}

// SetShowItemFrames toggles per-entity reference-frame markers.
func (s *Synchronizer) SetShowItemFrames(show bool, size float64) {
	if show {
		s.itemFrameSize = size
	} else {
		s.itemFrameSize = 0
	}
}

// SetShowLinkFrames toggles per-link reference-frame markers.
func (s *Synchronizer) SetShowLinkFrames(show bool, size float64) {
	if show {
		s.linkFrameSize = size
	} else {
		s.linkFrameSize = 0
	}
}

// SetFrameNumber overrides the internal frame counter; the next emitted frame
// uses n and subsequent frames continue from it.
func (s *Synchronizer) SetFrameNumber(n uint) { s.next = n }

// AddGrid schedules a decorative grid (nu × nv cells of ustep × vstep) to be
// instantiated in the deco sub-group on the next BindAll.
func (s *Synchronizer) AddGrid(ustep, vstep float64, nu, nv int, frame common.Frame, color common.Color) {
	s.grids = append(s.grids, gridSpec{ustep: ustep, vstep: vstep, nu: nu, nv: nv, frame: frame, color: color})
}

// Quit marks the session as closing: no further OnUpdate passes are issued
// and the loader stops accepting prefetch work. In-flight loads finish and
// are discarded.
func (s *Synchronizer) Quit() {
	s.quit = true
	if s.ld != nil {
		s.ld.Close()
	}
}

// Stats returns the read-only overlay quantities derived from the last pass.
func (s *Synchronizer) Stats() viewer.Overlay {
	ov := viewer.Overlay{
		FrameNumber: s.lastFrame.Number,
		ModelTime:   s.sys.Time(),
		Quit:        s.quit,
	}
	if s.begun {
		ov.WallTime = time.Since(s.timeBegin).Seconds()
	}
	if ov.ModelTime > 0 {
		ov.Realtime = ov.WallTime / ov.ModelTime
	}
	return ov
}

// CacheSizes reports the persistent epoch sizes (materials, geometries,
// cameras) for inspection and tests.
func (s *Synchronizer) CacheSizes() (int, int, int) {
	return s.materials.Len(), s.geometries.Len(), s.cameras.Len()
}

// BindAll performs a full rebuild: every registered entity's shapes run
// through classification, composition, cache resolution, and emitter create
// ops. Re-invocation rebuilds the structural node set from scratch while
// reusing every already-resolved cache entry. The transition is refused while
// the registry is empty or holds no rigid body.
func (s *Synchronizer) BindAll() error {
	if s.reg.Len() == 0 {
		return s.refuse("no entities registered, nothing to bind")
	}
	hasBody := false
	for _, e := range s.reg.Entities() {
		if _, ok := e.(sim.Body); ok {
			hasBody = true
			break
		}
	}
	if !hasBody {
		return s.refuse("no rigid body registered, nothing to bind")
	}
	s.refuseLogged = false

	// structural rebuild: discard prior node associations entirely
	s.destroyAllNodes()

	fd := emit.FrameDescriptor{Number: s.next, Time: s.sys.Time()}
	s.next++
	if err := s.em.BeginFrame(fd); err != nil {
		return err
	}
	s.lastFrame = fd

	for _, e := range s.reg.Entities() {
		s.bindEntity(e)
	}
	for _, g := range s.grids {
		s.bindGrid(g)
	}

	if err := s.em.EndFrame(); err != nil {
		return err
	}
	s.state = StateBound
	return nil
}

// OnUpdate performs one incremental pass: drains pending mesh merges at the
// safe point, then recomposes and re-emits the transform of every bound node.
// Shape kinds never change post-bind; only data-driven parameters (endpoint
// pairs, spring radii) are re-extracted.
func (s *Synchronizer) OnUpdate() error {
	if s.state != StateBound {
		return ErrNotBound
	}
	if s.quit {
		return nil
	}
	if !s.begun {
		s.begun = true
		s.timeBegin = time.Now()
	}

	// safe point: collect completed mesh loads before touching the graph
	var merged []loader.MeshData
	if s.ld != nil {
		s.ld.DrainMerges(func(m loader.MeshData) { merged = append(merged, m) })
	}

	fd := emit.FrameDescriptor{Number: s.next, Time: s.sys.Time()}
	s.next++
	if err := s.em.BeginFrame(fd); err != nil {
		return err
	}
	s.lastFrame = fd

	for _, m := range merged {
		s.mergeDeferred(m)
	}

	for _, bn := range s.nodes {
		if bn.role == roleParticle {
			continue // clouds update as a unit below
		}
		s.updateNode(bn)
		if err := s.em.Apply(&bn.node, emit.OpUpdateTransform); err != nil {
			return err
		}
	}
	for _, cs := range s.clouds {
		if err := s.updateCloud(cs); err != nil {
			return err
		}
	}

	return s.em.EndFrame()
}

// Remove unbinds one entity: its nodes are destroyed, shared cache resources
// survive as long as another entity references them.
func (s *Synchronizer) Remove(e sim.Entity) {
	key := e.Key()
	if !s.reg.Contains(e) {
		return
	}
	kept := s.nodes[:0]
	for _, bn := range s.nodes {
		if bn.node.OwnerKey == key {
			if err := s.em.Apply(&bn.node, emit.OpDestroy); err != nil {
				log.Printf("synchronizer: destroy node %d: %v", bn.node.ID, err)
			}
			continue
		}
		kept = append(kept, bn)
	}
	s.nodes = kept
	delete(s.clouds, key)
	for path, binds := range s.deferred {
		filtered := binds[:0]
		for _, d := range binds {
			if d.owner.Key() != key {
				filtered = append(filtered, d)
			}
		}
		if len(filtered) == 0 {
			delete(s.deferred, path)
		} else {
			s.deferred[path] = filtered
		}
	}
	s.reg.Remove(e)
}

// RemoveAll unbinds everything and returns to StateUnbound.
func (s *Synchronizer) RemoveAll() {
	s.destroyAllNodes()
	s.reg.RemoveAll()
	s.state = StateUnbound
}

func (s *Synchronizer) refuse(msg string) error {
	if !s.refuseLogged {
		log.Printf("synchronizer: %s", msg)
		s.refuseLogged = true
	}
	return ErrNothingToBind
}

func (s *Synchronizer) destroyAllNodes() {
	for _, bn := range s.nodes {
		if err := s.em.Apply(&bn.node, emit.OpDestroy); err != nil {
			log.Printf("synchronizer: destroy node %d: %v", bn.node.ID, err)
		}
	}
	s.nodes = s.nodes[:0]
	clear(s.clouds)
	clear(s.deferred)
	s.reg.ClearNodes()
}

// bindEntity creates all nodes one entity owns: aux markers, camera
// declarations, then the shape projections.
func (s *Synchronizer) bindEntity(e sim.Entity) {
	var ids []emit.NodeID
	annotation := s.reg.Annotation(e.Key())

	if body, ok := e.(sim.Body); ok && s.cogSize > 0 {
		bn := s.createMarker(roleCOG, emit.GroupCOG, e, body.COGFrame(), s.cogSize)
		bn.body = body
		ids = append(ids, bn.node.ID)
	}
	if s.itemFrameSize > 0 {
		bn := s.createMarker(roleItemFrame, emit.GroupDeco, e, e.ModelFrame(), s.itemFrameSize)
		ids = append(ids, bn.node.ID)
	}
	if link, ok := e.(sim.Link); ok && s.linkFrameSize > 0 {
		frame, _ := common.FrameBetween(link.Point1(), link.Point2())
		bn := s.createMarker(roleLinkFrame, emit.GroupDeco, e, frame, s.linkFrameSize)
		bn.link = link
		ids = append(ids, bn.node.ID)
	}

	if decl, ok := s.em.(cameraDeclarer); ok {
		for _, cam := range e.VisualModel().Cameras() {
			c := cam
			_, created, _ := s.cameras.Resolve(c.Key(), func() (*sim.Camera, error) { return c, nil })
			if created {
				if err := decl.DeclareCamera(c); err != nil {
					log.Printf("synchronizer: declare camera %d: %v", c.Key(), err)
				}
			}
		}
	}

	switch owner := e.(type) {
	case sim.ParticleCloud:
		ids = append(ids, s.bindCloud(owner)...)
	case sim.Link:
		ids = append(ids, s.bindLink(owner, annotation)...)
	default:
		ids = append(ids, s.bindShapes(e, annotation)...)
	}
	s.reg.SetNodes(e.Key(), ids)
}

// bindShapes projects an entity's shape instances into the bodies sub-group.
func (s *Synchronizer) bindShapes(e sim.Entity, annotation string) []emit.NodeID {
	var ids []emit.NodeID
	for _, inst := range e.VisualModel().Shapes() {
		if !inst.Shape.Visible() {
			continue
		}
		prim := classify.Classify(inst)
		if !prim.Kind.Projectable() {
			log.Printf("synchronizer: %s shape on %q not projected", prim.Kind, e.Name())
			continue
		}
		if prim.Kind == classify.KindExternalMesh && s.ld != nil {
			if _, ok := s.ld.Get(prim.MeshPath); !ok {
				// defer until the prefetched mesh merges at a safe point
				s.ld.Prefetch(prim.MeshPath)
				s.deferred[prim.MeshPath] = append(s.deferred[prim.MeshPath], deferredBind{owner: e, inst: inst, prim: prim})
				continue
			}
		}
		t := compose.ForPrimitive(prim, e.ModelFrame(), inst.Frame)
		bn, err := s.createNode(roleShape, emit.GroupBodies, e, inst.Shape, prim, t, annotation)
		if err != nil {
			log.Printf("synchronizer: bind %s shape on %q: %v", prim.Kind, e.Name(), err)
			continue
		}
		bn.inst = inst
		annotation = "" // only the entity's first node carries it
		ids = append(ids, bn.node.ID)
	}
	return ids
}

// bindLink projects a link's two-point shapes (segments, springs) into the
// links sub-group; anything else on the link projects like a body shape.
func (s *Synchronizer) bindLink(link sim.Link, annotation string) []emit.NodeID {
	var ids []emit.NodeID
	for _, inst := range link.VisualModel().Shapes() {
		if !inst.Shape.Visible() {
			continue
		}
		prim := classify.Classify(inst)
		if !prim.Kind.Projectable() {
			log.Printf("synchronizer: %s shape on %q not projected", prim.Kind, link.Name())
			continue
		}
		var t common.Transform
		role := roleLinkShape
		switch prim.Kind {
		case classify.KindSegment:
			t, _ = compose.Between(link.Point1(), link.Point2(), 0)
		case classify.KindSpring:
			t, _ = compose.Between(link.Point1(), link.Point2(), prim.Radius)
		default:
			role = roleShape
			t = compose.ForPrimitive(prim, link.ModelFrame(), inst.Frame)
		}
		bn, err := s.createNode(role, emit.GroupLinks, link, inst.Shape, prim, t, annotation)
		if err != nil {
			log.Printf("synchronizer: bind %s shape on %q: %v", prim.Kind, link.Name(), err)
			continue
		}
		bn.inst = inst
		bn.link = link
		annotation = ""
		ids = append(ids, bn.node.ID)
	}
	return ids
}

// bindCloud creates one particle node per live particle, index-aligned with
// the cloud.
func (s *Synchronizer) bindCloud(cloud sim.ParticleCloud) []emit.NodeID {
	r := cloud.ParticleRadius()
	prim := classify.Primitive{
		Kind:      classify.KindParticle,
		Scale:     mgl64.Vec3{r, r, r},
		Radius:    r,
		Materials: []*sim.Material{classify.DefaultMaterial()},
	}
	cs := &cloudState{cloud: cloud}
	var ids []emit.NodeID
	for i := 0; i < cloud.Count(); i++ {
		t := common.Transform{
			Pos:     cloud.ParticlePos(i),
			RotAxis: mgl64.Vec3{1, 0, 0},
			Scale:   prim.Scale,
		}
		bn, err := s.createNode(roleParticle, emit.GroupParticles, cloud, nil, prim, t, "")
		if err != nil {
			log.Printf("synchronizer: bind particle %d on %q: %v", i, cloud.Name(), err)
			continue
		}
		bn.cloud = cloud
		bn.index = i
		cs.nodes = append(cs.nodes, bn)
		ids = append(ids, bn.node.ID)
	}
	s.clouds[cloud.Key()] = cs
	return ids
}

// bindGrid instantiates one decorative grid as per-line nodes in the deco
// sub-group.
func (s *Synchronizer) bindGrid(g gridSpec) {
	mat := classify.DefaultMaterial()
	line := func(p1, p2 mgl64.Vec3) {
		prim := classify.Primitive{
			Kind:      classify.KindLine,
			Scale:     common.UnitScale,
			Points:    []mgl64.Vec3{g.frame.TransformPoint(p1), g.frame.TransformPoint(p2)},
			Materials: []*sim.Material{mat},
		}
		t := common.Transform{RotAxis: mgl64.Vec3{1, 0, 0}, Scale: common.UnitScale}
		if _, err := s.createDeco(prim, t); err != nil {
			log.Printf("synchronizer: bind grid line: %v", err)
		}
	}
	uHalf := g.ustep * float64(g.nu) / 2
	vHalf := g.vstep * float64(g.nv) / 2
	for i := 0; i <= g.nu; i++ {
		u := -uHalf + float64(i)*g.ustep
		line(mgl64.Vec3{u, 0, -vHalf}, mgl64.Vec3{u, 0, vHalf})
	}
	for j := 0; j <= g.nv; j++ {
		v := -vHalf + float64(j)*g.vstep
		line(mgl64.Vec3{-uHalf, 0, v}, mgl64.Vec3{uHalf, 0, v})
	}
}

func (s *Synchronizer) createDeco(prim classify.Primitive, t common.Transform) (*boundNode, error) {
	bn, err := s.createNode(roleDeco, emit.GroupDeco, nil, nil, prim, t, "")
	return bn, err
}

// createMarker emits one auxiliary symbol node (COG or frame triad) scaled to
// the configured size.
func (s *Synchronizer) createMarker(role nodeRole, group emit.Group, e sim.Entity, frame common.Frame, size float64) *boundNode {
	angle, axis := frame.AngleAxis()
	prim := classify.Primitive{
		Kind:      classify.KindSymbol,
		Scale:     mgl64.Vec3{size, size, size},
		Materials: []*sim.Material{classify.DefaultMaterial()},
	}
	t := common.Transform{Pos: frame.Pos, RotAngle: angle, RotAxis: axis, Scale: prim.Scale}
	bn, err := s.createNode(role, group, e, nil, prim, t, "")
	if err != nil {
		log.Printf("synchronizer: bind marker: %v", err)
		return &boundNode{role: role, owner: e}
	}
	return bn
}

// createNode resolves cache entries, assembles the projected node, and issues
// the create op. e may be nil for decoration nodes; shape carries the source
// shape for identity-keyed geometry and may also be nil.
func (s *Synchronizer) createNode(role nodeRole, group emit.Group, e sim.Entity, shape sim.Shape, prim classify.Primitive, t common.Transform, annotation string) (*boundNode, error) {
	var handles []cache.Handle
	for _, m := range prim.Materials {
		mat := m
		h, _, err := s.materials.Resolve(mat.Key(), func() (*sim.Material, error) { return mat, nil })
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	geomKey := s.geometryKey(prim, shape)
	gh, _, err := s.geometries.Resolve(geomKey, func() (classify.Primitive, error) { return prim, nil })
	if err != nil {
		return nil, err
	}

	bn := &boundNode{role: role, owner: e}
	bn.node = emit.ProjectedNode{
		ID:           emit.NodeID(s.nextNode),
		Group:        group,
		Primitive:    prim,
		Transform:    t,
		Geometry:     gh,
		Materials:    handles,
		MaterialRefs: prim.Materials,
		GeometryKey:  geomKey,
		Annotation:   annotation,
	}
	s.nextNode++
	if e != nil {
		bn.node.OwnerKey = e.Key()
		bn.node.OwnerName = e.Name()
	}
	if err := s.em.Apply(&bn.node, emit.OpCreate); err != nil {
		return nil, err
	}
	s.nodes = append(s.nodes, bn)
	return bn, nil
}

// geometryKey derives the stable identity key geometry is cached under:
// shared unit primitives use one key per kind, content-bearing shapes their
// own identity, external meshes a hash of the file path.
func (s *Synchronizer) geometryKey(prim classify.Primitive, shape sim.Shape) uint64 {
	switch prim.Kind {
	case classify.KindMeshMaterials, classify.KindMeshColors, classify.KindSurface,
		classify.KindLine, classify.KindPath, classify.KindSpring:
		if shape != nil {
			if k, ok := s.shapeKeys[shape]; ok {
				return k
			}
			k := sim.NextKey()
			s.shapeKeys[shape] = k
			return k
		}
		return sim.NextKey()
	case classify.KindExternalMesh:
		h := fnv.New64a()
		h.Write([]byte(prim.MeshPath))
		return h.Sum64()
	default:
		if k, ok := s.kindKeys[prim.Kind]; ok {
			return k
		}
		k := sim.NextKey()
		s.kindKeys[prim.Kind] = k
		return k
	}
}

// mergeDeferred creates the nodes that were waiting on one prefetched mesh.
// Runs inside the frame bracket on the synchronization thread.
func (s *Synchronizer) mergeDeferred(m loader.MeshData) {
	binds := s.deferred[m.Path]
	if len(binds) == 0 {
		return
	}
	delete(s.deferred, m.Path)
	for _, d := range binds {
		if !s.reg.Contains(d.owner) {
			continue
		}
		t := compose.ForPrimitive(d.prim, d.owner.ModelFrame(), d.inst.Frame)
		bn, err := s.createNode(roleShape, emit.GroupBodies, d.owner, d.inst.Shape, d.prim, t, "")
		if err != nil {
			log.Printf("synchronizer: merge mesh %s: %v", m.Path, err)
			continue
		}
		bn.inst = d.inst
		s.reg.SetNodes(d.owner.Key(), append(s.reg.Nodes(d.owner.Key()), bn.node.ID))
	}
}

// updateNode recomposes one node's transform from current simulation state.
// Kind never changes; data-driven parameters (endpoint pairs, spring radii)
// are re-extracted before composition.
func (s *Synchronizer) updateNode(bn *boundNode) {
	switch bn.role {
	case roleShape:
		prim := bn.node.Primitive
		if prim.Kind == classify.KindCylinder {
			prim = classify.Classify(bn.inst)
			bn.node.Primitive = prim
		}
		bn.node.Transform = compose.ForPrimitive(prim, bn.owner.ModelFrame(), bn.inst.Frame)
	case roleLinkShape:
		prim := bn.node.Primitive
		if prim.Kind == classify.KindSpring {
			prim = classify.Classify(bn.inst)
			bn.node.Primitive = prim
		}
		radius := 0.0
		if prim.Kind == classify.KindSpring {
			radius = prim.Radius
		}
		bn.node.Transform, _ = compose.Between(bn.link.Point1(), bn.link.Point2(), radius)
	case roleCOG:
		frame := bn.body.COGFrame()
		angle, axis := frame.AngleAxis()
		bn.node.Transform = common.Transform{Pos: frame.Pos, RotAngle: angle, RotAxis: axis, Scale: bn.node.Primitive.Scale}
	case roleItemFrame:
		frame := bn.owner.ModelFrame()
		angle, axis := frame.AngleAxis()
		bn.node.Transform = common.Transform{Pos: frame.Pos, RotAngle: angle, RotAxis: axis, Scale: bn.node.Primitive.Scale}
	case roleLinkFrame:
		frame, _ := common.FrameBetween(bn.link.Point1(), bn.link.Point2())
		angle, axis := frame.AngleAxis()
		bn.node.Transform = common.Transform{Pos: frame.Pos, RotAngle: angle, RotAxis: axis, Scale: bn.node.Primitive.Scale}
	case roleDeco:
		// static
	}
}

// updateCloud applies the structural guard before updating particle nodes:
// on a live-count mismatch the whole cloud is skipped, never partially
// applied, because node index and particle index must stay aligned.
func (s *Synchronizer) updateCloud(cs *cloudState) error {
	n := cs.cloud.Count()
	if n != len(cs.nodes) {
		log.Printf("synchronizer: particle cloud %q has %d particles but %d bound nodes, update skipped",
			cs.cloud.Name(), n, len(cs.nodes))
		return nil
	}
	for i, bn := range cs.nodes {
		bn.node.Transform.Pos = cs.cloud.ParticlePos(i)
		if err := s.em.Apply(&bn.node, emit.OpUpdateTransform); err != nil {
			return err
		}
	}
	return nil
}

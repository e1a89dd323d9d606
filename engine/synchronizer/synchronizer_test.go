package synchronizer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davik-lab/specula/common"
	"github.com/davik-lab/specula/engine/classify"
	"github.com/davik-lab/specula/engine/emit"
	"github.com/davik-lab/specula/engine/loader"
	"github.com/davik-lab/specula/sim"
)

type recordedOp struct {
	op   emit.Op
	node emit.ProjectedNode
}

// fakeEmitter records every op and frame bracket it sees.
type fakeEmitter struct {
	frames  []emit.FrameDescriptor
	ops     []recordedOp
	cameras []*sim.Camera
	inFrame bool
}

var _ emit.Emitter = &fakeEmitter{}

func (f *fakeEmitter) BeginFrame(fd emit.FrameDescriptor) error {
	f.frames = append(f.frames, fd)
	f.inFrame = true
	return nil
}

func (f *fakeEmitter) EndFrame() error {
	f.inFrame = false
	return nil
}

func (f *fakeEmitter) Apply(node *emit.ProjectedNode, op emit.Op) error {
	f.ops = append(f.ops, recordedOp{op: op, node: *node})
	return nil
}

func (f *fakeEmitter) DeclareCamera(c *sim.Camera) error {
	f.cameras = append(f.cameras, c)
	return nil
}

func (f *fakeEmitter) count(op emit.Op) int {
	n := 0
	for _, r := range f.ops {
		if r.op == op {
			n++
		}
	}
	return n
}

func (f *fakeEmitter) lastOf(op emit.Op, id emit.NodeID) (emit.ProjectedNode, bool) {
	for i := len(f.ops) - 1; i >= 0; i-- {
		if f.ops[i].op == op && f.ops[i].node.ID == id {
			return f.ops[i].node, true
		}
	}
	return emit.ProjectedNode{}, false
}

// fakeLoader satisfies loader.Loader with a manually driven merge queue.
type fakeLoader struct {
	prefetched []string
	queued     []loader.MeshData
	cache      map[string]loader.MeshData
	closed     bool
}

var _ loader.Loader = &fakeLoader{}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{cache: make(map[string]loader.MeshData)}
}

func (l *fakeLoader) Prefetch(path string) { l.prefetched = append(l.prefetched, path) }

func (l *fakeLoader) DrainMerges(apply func(loader.MeshData)) int {
	n := len(l.queued)
	for _, m := range l.queued {
		l.cache[m.Path] = m
		if apply != nil {
			apply(m)
		}
	}
	l.queued = nil
	return n
}

func (l *fakeLoader) Get(path string) (loader.MeshData, bool) {
	m, ok := l.cache[path]
	return m, ok
}

func (l *fakeLoader) Close() { l.closed = true }

func boxBody(name string, size mgl64.Vec3) *sim.RigidBody {
	b := sim.NewRigidBody(name)
	model := sim.NewVisualModel()
	model.AddShape(&sim.Box{Size: size}, common.IdentityFrame())
	b.SetVisualModel(model)
	return b
}

func newHarness(options ...SynchronizerBuilderOption) (*sim.Assembly, *fakeEmitter, *Synchronizer) {
	sys := sim.NewAssembly()
	em := &fakeEmitter{}
	return sys, em, New(sys, em, options...)
}

func TestBindRefusedWhenEmpty(t *testing.T) {
	_, em, s := newHarness()
	assert.ErrorIs(t, s.BindAll(), ErrNothingToBind)
	assert.Equal(t, StateUnbound, s.State())
	assert.Empty(t, em.frames)
}

func TestBindRefusedWithoutBody(t *testing.T) {
	sys, _, s := newHarness()
	link := sim.NewSpringLink("spring")
	model := sim.NewVisualModel()
	model.AddShape(&sim.Spring{Radius: 0.1}, common.IdentityFrame())
	link.SetVisualModel(model)
	sys.AddEntity(link)
	s.AddAll()

	assert.ErrorIs(t, s.BindAll(), ErrNothingToBind)
	assert.Equal(t, StateUnbound, s.State())
}

func TestBindAllCreatesNodes(t *testing.T) {
	sys, em, s := newHarness()
	b := sim.NewRigidBody("crate")
	model := sim.NewVisualModel()
	model.AddShape(&sim.Box{Size: mgl64.Vec3{1, 1, 1}}, common.IdentityFrame())
	model.AddShape(&sim.Sphere{Radius: 0.5}, common.NewFrame(mgl64.Vec3{0, 1, 0}, mgl64.QuatIdent()))
	b.SetVisualModel(model)
	sys.AddEntity(b)
	require.Equal(t, 1, s.AddAll())

	require.NoError(t, s.BindAll())
	assert.Equal(t, StateBound, s.State())
	assert.Equal(t, 2, em.count(emit.OpCreate))
	assert.Equal(t, uint(0), em.frames[0].Number)
	assert.Len(t, s.Registry().Nodes(b.Key()), 2)
	for _, r := range em.ops {
		assert.Equal(t, emit.GroupBodies, r.node.Group)
		assert.Equal(t, b.Key(), r.node.OwnerKey)
	}
}

func TestRebindRebuildsButReusesCaches(t *testing.T) {
	sys, em, s := newHarness()
	sys.AddEntity(boxBody("crate", mgl64.Vec3{1, 1, 1}))
	s.AddAll()

	require.NoError(t, s.BindAll())
	m1, g1, c1 := s.CacheSizes()

	require.NoError(t, s.BindAll())
	m2, g2, c2 := s.CacheSizes()

	// structural rebuild: old node destroyed, new one created
	assert.Equal(t, 1, em.count(emit.OpDestroy))
	assert.Equal(t, 2, em.count(emit.OpCreate))
	// cache entries survive the rebind untouched
	assert.Equal(t, m1, m2)
	assert.Equal(t, g1, g2)
	assert.Equal(t, c1, c2)
}

func TestSharedMaterialResolvesOnce(t *testing.T) {
	sys, _, s := newHarness()
	shared := sim.NewMaterial()

	b1 := sim.NewRigidBody("a")
	m1 := sim.NewVisualModel()
	box1 := &sim.Box{Size: mgl64.Vec3{1, 1, 1}}
	box1.AddMaterial(shared)
	m1.AddShape(box1, common.IdentityFrame())
	b1.SetVisualModel(m1)

	b2 := sim.NewRigidBody("b")
	m2 := sim.NewVisualModel()
	box2 := &sim.Box{Size: mgl64.Vec3{2, 2, 2}}
	box2.AddMaterial(shared)
	m2.AddShape(box2, common.IdentityFrame())
	b2.SetVisualModel(m2)

	sys.AddEntity(b1)
	sys.AddEntity(b2)
	s.AddAll()
	require.NoError(t, s.BindAll())

	mats, geoms, _ := s.CacheSizes()
	assert.Equal(t, 1, mats, "one shared material instance, one cache entry")
	assert.Equal(t, 1, geoms, "boxes share one unit geometry")
}

func TestEqualValuedMaterialsStayDistinct(t *testing.T) {
	sys, _, s := newHarness()
	for _, name := range []string{"a", "b"} {
		b := sim.NewRigidBody(name)
		model := sim.NewVisualModel()
		box := &sim.Box{Size: mgl64.Vec3{1, 1, 1}}
		box.AddMaterial(sim.NewMaterial()) // equal value, distinct identity
		model.AddShape(box, common.IdentityFrame())
		b.SetVisualModel(model)
		sys.AddEntity(b)
	}
	s.AddAll()
	require.NoError(t, s.BindAll())

	mats, _, _ := s.CacheSizes()
	assert.Equal(t, 2, mats)
}

func TestFrameNumbersMonotonicWithOverride(t *testing.T) {
	sys, em, s := newHarness()
	sys.AddEntity(boxBody("crate", mgl64.Vec3{1, 1, 1}))
	s.AddAll()

	require.NoError(t, s.BindAll())
	require.NoError(t, s.OnUpdate())
	require.NoError(t, s.OnUpdate())

	s.SetFrameNumber(10)
	require.NoError(t, s.OnUpdate())
	require.NoError(t, s.OnUpdate())

	var got []uint
	for _, fd := range em.frames {
		got = append(got, fd.Number)
	}
	assert.Equal(t, []uint{0, 1, 2, 10, 11}, got)
}

func TestOnUpdateRecomposesTransforms(t *testing.T) {
	sys, em, s := newHarness()
	b := boxBody("crate", mgl64.Vec3{1, 1, 1})
	sys.AddEntity(b)
	s.AddAll()
	require.NoError(t, s.BindAll())
	id := em.ops[0].node.ID

	b.SetPose(mgl64.Vec3{0, 3, 0}, mgl64.QuatIdent())
	sys.SetTime(0.01)
	require.NoError(t, s.OnUpdate())

	assert.Equal(t, 1, em.count(emit.OpCreate), "updates never create nodes")
	upd, ok := em.lastOf(emit.OpUpdateTransform, id)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 3, 0}, upd.Transform.Pos)
	assert.InDelta(t, 0.01, em.frames[1].Time, 1e-12)
}

func TestCylinderEndpointsReextracted(t *testing.T) {
	sys, em, s := newHarness()
	b := sim.NewRigidBody("piston")
	model := sim.NewVisualModel()
	cyl := &sim.Cylinder{Radius: 0.5, P1: mgl64.Vec3{0, 0, 0}, P2: mgl64.Vec3{0, 2, 0}}
	model.AddShape(cyl, common.IdentityFrame())
	b.SetVisualModel(model)
	sys.AddEntity(b)
	s.AddAll()
	require.NoError(t, s.BindAll())

	created := em.ops[0].node
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, created.Transform.Pos)
	assert.Equal(t, mgl64.Vec3{0.5, 2, 0.5}, created.Transform.Scale)

	// the simulation stretches the cylinder
	cyl.P2 = mgl64.Vec3{0, 4, 0}
	require.NoError(t, s.OnUpdate())
	upd, ok := em.lastOf(emit.OpUpdateTransform, created.ID)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 2, 0}, upd.Transform.Pos)
	assert.Equal(t, mgl64.Vec3{0.5, 4, 0.5}, upd.Transform.Scale)
}

func TestSpringFollowsLinkEndpoints(t *testing.T) {
	sys, em, s := newHarness()
	sys.AddEntity(boxBody("anchor", mgl64.Vec3{1, 1, 1}))

	link := sim.NewSpringLink("spring")
	model := sim.NewVisualModel()
	model.AddShape(&sim.Spring{Radius: 0.25, Turns: 10}, common.IdentityFrame())
	link.SetVisualModel(model)
	link.SetEndpoints(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 2, 0})
	sys.AddEntity(link)
	s.AddAll()
	require.NoError(t, s.BindAll())

	var springID emit.NodeID
	for _, r := range em.ops {
		if r.node.Group == emit.GroupLinks {
			springID = r.node.ID
			assert.Equal(t, mgl64.Vec3{0.25, 2, 0.25}, r.node.Transform.Scale)
		}
	}
	require.NotZero(t, springID)

	link.SetEndpoints(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 3, 0})
	require.NoError(t, s.OnUpdate())
	upd, ok := em.lastOf(emit.OpUpdateTransform, springID)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0.25, 3, 0.25}, upd.Transform.Scale)
	assert.Equal(t, mgl64.Vec3{0, 1.5, 0}, upd.Transform.Pos)
}

func TestParticleCloudBindsPerParticle(t *testing.T) {
	sys, em, s := newHarness()
	sys.AddEntity(boxBody("floor", mgl64.Vec3{10, 1, 10}))

	cloud := sim.NewPointCloud("grains", 0.05)
	cloud.SetVisualModel(sim.NewVisualModel())
	cloud.SetPositions([]mgl64.Vec3{{0, 1, 0}, {0, 2, 0}, {0, 3, 0}})
	sys.AddEntity(cloud)
	s.AddAll()
	require.NoError(t, s.BindAll())

	particles := 0
	for _, r := range em.ops {
		if r.node.Group == emit.GroupParticles {
			particles++
			assert.Equal(t, mgl64.Vec3{0.05, 0.05, 0.05}, r.node.Transform.Scale)
		}
	}
	assert.Equal(t, 3, particles)
}

func TestParticleCountGuardSkipsCloud(t *testing.T) {
	sys, em, s := newHarness()
	sys.AddEntity(boxBody("floor", mgl64.Vec3{10, 1, 10}))

	cloud := sim.NewPointCloud("grains", 0.05)
	cloud.SetVisualModel(sim.NewVisualModel())
	positions := make([]mgl64.Vec3, 10)
	cloud.SetPositions(positions)
	sys.AddEntity(cloud)
	s.AddAll()
	require.NoError(t, s.BindAll())
	em.ops = nil

	// the simulation dropped two particles since binding
	cloud.SetPositions(positions[:8])
	require.NoError(t, s.OnUpdate())

	for _, r := range em.ops {
		assert.NotEqual(t, emit.GroupParticles, r.node.Group,
			"mismatched cloud must be skipped, not partially applied")
	}
	// the floor still updates
	assert.Equal(t, 1, em.count(emit.OpUpdateTransform))

	// restoring the bound count resumes updates
	cloud.SetPositions(positions)
	em.ops = nil
	require.NoError(t, s.OnUpdate())
	particles := 0
	for _, r := range em.ops {
		if r.node.Group == emit.GroupParticles {
			particles++
		}
	}
	assert.Equal(t, 10, particles)
}

func TestUnsupportedShapesSkipped(t *testing.T) {
	sys, em, s := newHarness()
	b := sim.NewRigidBody("crate")
	model := sim.NewVisualModel()
	model.AddShape(&sim.Barrel{}, common.IdentityFrame())
	model.AddShape(&sim.Box{Size: mgl64.Vec3{1, 1, 1}}, common.IdentityFrame())
	b.SetVisualModel(model)
	sys.AddEntity(b)
	s.AddAll()
	require.NoError(t, s.BindAll())

	assert.Equal(t, 1, em.count(emit.OpCreate))
	assert.Equal(t, classify.KindBox, em.ops[0].node.Primitive.Kind)
}

func TestHiddenShapesSkipped(t *testing.T) {
	sys, em, s := newHarness()
	b := sim.NewRigidBody("crate")
	model := sim.NewVisualModel()
	box := &sim.Box{Size: mgl64.Vec3{1, 1, 1}}
	box.Hidden = true
	model.AddShape(box, common.IdentityFrame())
	model.AddShape(&sim.Sphere{Radius: 1}, common.IdentityFrame())
	b.SetVisualModel(model)
	sys.AddEntity(b)
	s.AddAll()
	require.NoError(t, s.BindAll())

	assert.Equal(t, 1, em.count(emit.OpCreate))
	assert.Equal(t, classify.KindSphere, em.ops[0].node.Primitive.Kind)
}

func TestAnnotationOnFirstNodeOnly(t *testing.T) {
	sys, em, s := newHarness()
	b := sim.NewRigidBody("crate")
	model := sim.NewVisualModel()
	model.AddShape(&sim.Box{Size: mgl64.Vec3{1, 1, 1}}, common.IdentityFrame())
	model.AddShape(&sim.Sphere{Radius: 1}, common.IdentityFrame())
	b.SetVisualModel(model)
	sys.AddEntity(b)
	s.AddAll()
	s.SetAnnotation(b, "modifier='subdiv'")
	require.NoError(t, s.BindAll())

	assert.Equal(t, "modifier='subdiv'", em.ops[0].node.Annotation)
	assert.Empty(t, em.ops[1].node.Annotation)
}

func TestRemoveDestroysOwnedNodes(t *testing.T) {
	sys, em, s := newHarness()
	a := boxBody("a", mgl64.Vec3{1, 1, 1})
	b := boxBody("b", mgl64.Vec3{2, 2, 2})
	sys.AddEntity(a)
	sys.AddEntity(b)
	s.AddAll()
	require.NoError(t, s.BindAll())
	em.ops = nil

	s.Remove(a)
	assert.Equal(t, 1, em.count(emit.OpDestroy))
	assert.False(t, s.Registry().Contains(a))
	assert.Equal(t, StateBound, s.State())

	// the survivor keeps updating
	em.ops = nil
	require.NoError(t, s.OnUpdate())
	assert.Equal(t, 1, em.count(emit.OpUpdateTransform))
	assert.Equal(t, b.Key(), em.ops[0].node.OwnerKey)
}

func TestRemoveAllUnbinds(t *testing.T) {
	sys, em, s := newHarness()
	sys.AddEntity(boxBody("crate", mgl64.Vec3{1, 1, 1}))
	s.AddAll()
	require.NoError(t, s.BindAll())
	em.ops = nil

	s.RemoveAll()
	assert.Equal(t, 1, em.count(emit.OpDestroy))
	assert.Equal(t, StateUnbound, s.State())
	assert.Zero(t, s.Registry().Len())
	assert.ErrorIs(t, s.OnUpdate(), ErrNotBound)
}

func TestCOGAndFrameMarkers(t *testing.T) {
	sys, em, s := newHarness(WithCOGMarkers(0.04), WithItemFrameMarkers(0.05))
	b := boxBody("crate", mgl64.Vec3{1, 1, 1})
	b.SetPose(mgl64.Vec3{1, 2, 3}, mgl64.QuatIdent())
	sys.AddEntity(b)
	s.AddAll()
	require.NoError(t, s.BindAll())

	var cog, deco int
	for _, r := range em.ops {
		switch r.node.Group {
		case emit.GroupCOG:
			cog++
			assert.Equal(t, classify.KindSymbol, r.node.Primitive.Kind)
			assert.Equal(t, mgl64.Vec3{0.04, 0.04, 0.04}, r.node.Transform.Scale)
			assert.Equal(t, mgl64.Vec3{1, 2, 3}, r.node.Transform.Pos)
		case emit.GroupDeco:
			deco++
		}
	}
	assert.Equal(t, 1, cog)
	assert.Equal(t, 1, deco)
}

func TestMarkersFollowBody(t *testing.T) {
	sys, em, s := newHarness(WithCOGMarkers(0.04))
	b := boxBody("crate", mgl64.Vec3{1, 1, 1})
	sys.AddEntity(b)
	s.AddAll()
	require.NoError(t, s.BindAll())

	b.SetPose(mgl64.Vec3{5, 0, 0}, mgl64.QuatIdent())
	require.NoError(t, s.OnUpdate())
	for _, r := range em.ops {
		if r.op == emit.OpUpdateTransform && r.node.Group == emit.GroupCOG {
			assert.Equal(t, mgl64.Vec3{5, 0, 0}, r.node.Transform.Pos)
			return
		}
	}
	t.Fatal("no COG marker update emitted")
}

func TestCamerasDeclaredOnce(t *testing.T) {
	sys, em, s := newHarness()
	b := boxBody("crate", mgl64.Vec3{1, 1, 1})
	b.VisualModel().AddCamera(sim.NewCamera())
	sys.AddEntity(b)
	s.AddAll()

	require.NoError(t, s.BindAll())
	require.NoError(t, s.BindAll())
	assert.Len(t, em.cameras, 1)
}

func TestGridBindsDecoLines(t *testing.T) {
	sys, em, s := newHarness()
	sys.AddEntity(boxBody("crate", mgl64.Vec3{1, 1, 1}))
	s.AddAll()
	s.AddGrid(0.5, 0.5, 4, 2, common.IdentityFrame(), common.Color{R: 0.3, G: 0.3, B: 0.3})
	require.NoError(t, s.BindAll())

	lines := 0
	for _, r := range em.ops {
		if r.node.Group == emit.GroupDeco {
			lines++
			assert.Equal(t, classify.KindLine, r.node.Primitive.Kind)
			assert.Len(t, r.node.Primitive.Points, 2)
		}
	}
	// (nu+1) u-lines plus (nv+1) v-lines
	assert.Equal(t, 8, lines)
}

func TestDeferredMeshCreatesAfterMerge(t *testing.T) {
	ld := newFakeLoader()
	sys, em, s := newHarness(WithLoader(ld))
	b := sim.NewRigidBody("chassis")
	model := sim.NewVisualModel()
	model.AddShape(&sim.MeshFile{Path: "meshes/chassis.obj"}, common.IdentityFrame())
	model.AddShape(&sim.Box{Size: mgl64.Vec3{1, 1, 1}}, common.IdentityFrame())
	b.SetVisualModel(model)
	sys.AddEntity(b)
	s.AddAll()

	require.NoError(t, s.BindAll())
	// the mesh node is deferred; only the box bound
	assert.Equal(t, 1, em.count(emit.OpCreate))
	assert.Equal(t, []string{"meshes/chassis.obj"}, ld.prefetched)
	require.Len(t, s.Registry().Nodes(b.Key()), 1)

	// load completes; the next update merges it at the safe point
	ld.queued = append(ld.queued, loader.MeshData{Path: "meshes/chassis.obj", VertexCount: 100, FaceCount: 200})
	require.NoError(t, s.OnUpdate())

	assert.Equal(t, 2, em.count(emit.OpCreate))
	assert.Len(t, s.Registry().Nodes(b.Key()), 2)
	found := false
	for _, r := range em.ops {
		if r.op == emit.OpCreate && r.node.Primitive.Kind == classify.KindExternalMesh {
			found = true
			assert.Equal(t, "meshes/chassis.obj", r.node.Primitive.MeshPath)
		}
	}
	require.True(t, found, "merged mesh node was not created")

	// once cached, a rebind binds it immediately
	em.ops = nil
	require.NoError(t, s.BindAll())
	assert.Equal(t, 2, em.count(emit.OpCreate))
}

func TestQuitStopsUpdatesAndClosesLoader(t *testing.T) {
	ld := newFakeLoader()
	sys, em, s := newHarness(WithLoader(ld))
	sys.AddEntity(boxBody("crate", mgl64.Vec3{1, 1, 1}))
	s.AddAll()
	require.NoError(t, s.BindAll())

	s.Quit()
	assert.True(t, ld.closed)
	frames := len(em.frames)
	require.NoError(t, s.OnUpdate())
	assert.Len(t, em.frames, frames, "no frame emitted after quit")
	assert.True(t, s.Stats().Quit)
}

func TestStatsTracksModelTime(t *testing.T) {
	sys, _, s := newHarness()
	sys.AddEntity(boxBody("crate", mgl64.Vec3{1, 1, 1}))
	s.AddAll()
	require.NoError(t, s.BindAll())

	sys.SetTime(0.5)
	require.NoError(t, s.OnUpdate())
	ov := s.Stats()
	assert.Equal(t, uint(1), ov.FrameNumber)
	assert.Equal(t, 0.5, ov.ModelTime)
	assert.GreaterOrEqual(t, ov.WallTime, 0.0)
}

// package sim defines the surface the projection engine consumes from a running
// simulation: enumerable entities, their visual models, and the shape and
// material descriptors those models expose. The simulation owns every object
// here; the engine holds non-owning references plus identity-derived stable
// keys. Lightweight concrete implementations (RigidBody, SpringLink,
// PointCloud, Assembly) are provided for simulations that do not carry their
// own, and for tests.
package sim

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/davik-lab/specula/common"
)

var keyCounter atomic.Uint64

// NextKey allocates a process-unique stable key. Keys are identity-derived and
// content-independent: two equal-valued objects created separately always get
// distinct keys.
func NextKey() uint64 {
	return keyCounter.Add(1)
}

// Entity is an opaque handle to one simulation object. Identity is reference
// identity, surfaced through Key. An entity with a nil visual model has no
// visual representation and is skipped by the projection layer.
type Entity interface {
	// Key returns the entity's stable identity key.
	//
	// Returns:
	//   - uint64: identity-derived key, constant for the entity's lifetime
	Key() uint64

	// Name returns the entity's human-readable name.
	//
	// Returns:
	//   - string: the name, possibly empty
	Name() string

	// VisualModel returns the entity's visual model, or nil when the entity has
	// no visual representation.
	//
	// Returns:
	//   - *VisualModel: the model or nil
	VisualModel() *VisualModel

	// ModelFrame returns the current world frame of the entity's visual model.
	//
	// Returns:
	//   - common.Frame: the visual-model frame in world coordinates
	ModelFrame() common.Frame
}

// Body is an entity with a center-of-gravity frame, used for COG symbol markers.
type Body interface {
	Entity

	// COGFrame returns the body's center-of-gravity frame in world coordinates.
	//
	// Returns:
	//   - common.Frame: the COG frame
	COGFrame() common.Frame
}

// Link is an entity whose visuals are defined by two absolute endpoints
// (springs, distance constraints, generic two-point connectors).
type Link interface {
	Entity

	// Point1 returns the first absolute endpoint.
	//
	// Returns:
	//   - mgl64.Vec3: endpoint position in world coordinates
	Point1() mgl64.Vec3

	// Point2 returns the second absolute endpoint.
	//
	// Returns:
	//   - mgl64.Vec3: endpoint position in world coordinates
	Point2() mgl64.Vec3
}

// ParticleCloud is an entity holding a variable-size set of identical particles.
type ParticleCloud interface {
	Entity

	// Count returns the number of live particles.
	//
	// Returns:
	//   - int: current particle count
	Count() int

	// ParticlePos returns the world position of particle i. The index must be
	// in [0, Count()).
	//
	// Parameters:
	//   - i: particle index
	//
	// Returns:
	//   - mgl64.Vec3: particle position in world coordinates
	ParticlePos(i int) mgl64.Vec3

	// ParticleRadius returns the render radius shared by all particles.
	//
	// Returns:
	//   - float64: particle radius
	ParticleRadius() float64
}

// System is the ordered, enumerable collection of entities a simulation exposes.
type System interface {
	// Entities returns all entities in a stable order.
	//
	// Returns:
	//   - []Entity: the entity list; callers must not mutate it
	Entities() []Entity

	// Time returns the current simulated time in seconds.
	//
	// Returns:
	//   - float64: simulation time
	Time() float64
}

// RigidBody is the reference Body implementation.
type RigidBody struct {
	key   uint64
	name  string
	model *VisualModel
	frame common.Frame
	cog   common.Frame
}

var _ Body = &RigidBody{}

// NewRigidBody creates a rigid body with an identity frame and no visual model.
func NewRigidBody(name string) *RigidBody {
	return &RigidBody{
		key:   NextKey(),
		name:  name,
		frame: common.IdentityFrame(),
		cog:   common.IdentityFrame(),
	}
}

func (b *RigidBody) Key() uint64              { return b.key }
func (b *RigidBody) Name() string             { return b.name }
func (b *RigidBody) VisualModel() *VisualModel { return b.model }
func (b *RigidBody) ModelFrame() common.Frame { return b.frame }
func (b *RigidBody) COGFrame() common.Frame   { return b.cog }

// SetVisualModel attaches the body's visual model.
func (b *RigidBody) SetVisualModel(m *VisualModel) { b.model = m }

// SetPose moves the body (and its COG frame) to the given world pose.
func (b *RigidBody) SetPose(pos mgl64.Vec3, rot mgl64.Quat) {
	b.frame = common.NewFrame(pos, rot)
	b.cog = b.frame
}

// SetCOGFrame overrides the COG frame when it does not coincide with the model frame.
func (b *RigidBody) SetCOGFrame(f common.Frame) { b.cog = f }

// SpringLink is the reference Link implementation: a two-point connector whose
// endpoints are driven by the simulation each step.
type SpringLink struct {
	key    uint64
	name   string
	model  *VisualModel
	p1, p2 mgl64.Vec3
}

var _ Link = &SpringLink{}

// NewSpringLink creates a link with coincident endpoints at the origin.
func NewSpringLink(name string) *SpringLink {
	return &SpringLink{key: NextKey(), name: name}
}

func (l *SpringLink) Key() uint64               { return l.key }
func (l *SpringLink) Name() string              { return l.name }
func (l *SpringLink) VisualModel() *VisualModel { return l.model }
func (l *SpringLink) ModelFrame() common.Frame  { return common.IdentityFrame() }
func (l *SpringLink) Point1() mgl64.Vec3        { return l.p1 }
func (l *SpringLink) Point2() mgl64.Vec3        { return l.p2 }

// SetVisualModel attaches the link's visual model.
func (l *SpringLink) SetVisualModel(m *VisualModel) { l.model = m }

// SetEndpoints updates both absolute endpoints.
func (l *SpringLink) SetEndpoints(p1, p2 mgl64.Vec3) {
	l.p1 = p1
	l.p2 = p2
}

// PointCloud is the reference ParticleCloud implementation.
type PointCloud struct {
	key       uint64
	name      string
	model     *VisualModel
	positions []mgl64.Vec3
	radius    float64
}

var _ ParticleCloud = &PointCloud{}

// NewPointCloud creates an empty cloud with the given shared particle radius.
func NewPointCloud(name string, radius float64) *PointCloud {
	return &PointCloud{key: NextKey(), name: name, radius: radius}
}

func (c *PointCloud) Key() uint64                  { return c.key }
func (c *PointCloud) Name() string                 { return c.name }
func (c *PointCloud) VisualModel() *VisualModel    { return c.model }
func (c *PointCloud) ModelFrame() common.Frame     { return common.IdentityFrame() }
func (c *PointCloud) Count() int                   { return len(c.positions) }
func (c *PointCloud) ParticlePos(i int) mgl64.Vec3 { return c.positions[i] }
func (c *PointCloud) ParticleRadius() float64      { return c.radius }

// SetVisualModel attaches the cloud's visual model.
func (c *PointCloud) SetVisualModel(m *VisualModel) { c.model = m }

// SetPositions replaces the particle set.
func (c *PointCloud) SetPositions(pos []mgl64.Vec3) { c.positions = pos }

// Assembly is the reference System implementation: an ordered entity list plus
// the current simulation time.
type Assembly struct {
	entities []Entity
	time     float64
}

var _ System = &Assembly{}

// NewAssembly creates an empty assembly at time zero.
func NewAssembly() *Assembly {
	return &Assembly{}
}

func (a *Assembly) Entities() []Entity { return a.entities }
func (a *Assembly) Time() float64      { return a.time }

// AddEntity appends an entity; order is preserved.
func (a *Assembly) AddEntity(e Entity) { a.entities = append(a.entities, e) }

// SetTime advances (or rewinds) the simulation clock.
func (a *Assembly) SetTime(t float64) { a.time = t }

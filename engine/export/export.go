// package export is the file emitter: it serializes projected frames for an
// offline rendering back-end as one asset-description stream plus a numbered
// sequence of per-frame state streams. Streams are append-only; node destroy
// operations are no-ops here.
//
// The line format is deliberately plain: one declaration or state record per
// line, `kind key=value ...` fields, consumed by the back-end's import script.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/davik-lab/specula/common"
	"github.com/davik-lab/specula/engine/cache"
	"github.com/davik-lab/specula/engine/classify"
	"github.com/davik-lab/specula/engine/emit"
	"github.com/davik-lab/specula/sim"
)

// StateFactory opens the output stream for one frame's state records.
type StateFactory func(fd emit.FrameDescriptor) (io.WriteCloser, error)

// Exporter implements emit.Emitter over append-only streams. Not safe for
// concurrent use; the synchronization thread is the only writer.
type Exporter struct {
	cfg Config

	assets       io.Writer
	assetsCloser io.Closer
	stateFactory StateFactory
	state        io.WriteCloser

	// persistent epochs: one declaration per identity per process lifetime
	matsDeclared *cache.Epoch[struct{}]
	geomDeclared *cache.Epoch[struct{}]
	camsDeclared *cache.Epoch[struct{}]

	// frame epochs, reset each BeginFrame while split-asset mode is active
	frameMats *cache.Epoch[struct{}]
	frameGeom *cache.Epoch[struct{}]

	customScript string
	customData   string

	scriptWritten bool
	inFrame       bool
}

var _ emit.Emitter = &Exporter{}

// NewExporter creates an exporter with the given options. Without an explicit
// assets writer or state factory it writes files under cfg.BasePath the way
// the offline back-end expects: the asset stream at BasePath/ScriptFilename
// and state streams at BasePath/output/stateNNNNN.dat.
func NewExporter(options ...ExporterBuilderOption) *Exporter {
	e := &Exporter{
		cfg:          DefaultConfig(),
		matsDeclared: cache.NewEpoch[struct{}](),
		geomDeclared: cache.NewEpoch[struct{}](),
		camsDeclared: cache.NewEpoch[struct{}](),
		frameMats:    cache.NewEpoch[struct{}](),
		frameGeom:    cache.NewEpoch[struct{}](),
	}
	for _, option := range options {
		option(e)
	}
	if e.stateFactory == nil {
		e.stateFactory = e.fileStateFactory
	}
	return e
}

// Config returns the exporter's configuration.
func (e *Exporter) Config() Config { return e.cfg }

// SetCustomScript sets a text block appended verbatim to the asset stream.
func (e *Exporter) SetCustomScript(text string) { e.customScript = text }

// SetCustomData sets a text block appended verbatim to every state stream.
func (e *Exporter) SetCustomData(text string) { e.customData = text }

// ExportScript writes the one-time header of the asset stream: picture setup,
// camera, light, background, marker toggles, and the contact-symbol
// configuration. Must be called once before the first frame; calling it again
// rewrites nothing (the stream is append-only) and returns nil.
func (e *Exporter) ExportScript() error {
	if e.scriptWritten {
		return nil
	}
	w, err := e.assetsWriter()
	if err != nil {
		return err
	}
	cfg := e.cfg
	fmt.Fprintf(w, "picture file=%s width=%d height=%d\n", cfg.PictureFilename, cfg.PictureWidth, cfg.PictureHeight)
	fmt.Fprintf(w, "camera loc=%s aim=%s angle=%s ortho=%t\n",
		vec3(cfg.Camera.Location), vec3(cfg.Camera.Aim), fnum(cfg.Camera.AngleDeg), cfg.Camera.Orthographic)
	fmt.Fprintf(w, "light loc=%s color=%s shadow=%t\n",
		vec3(cfg.Light.Location), fcolor(cfg.Light.Color), cfg.Light.CastShadow)
	fmt.Fprintf(w, "background color=%s\n", fcolor(cfg.Background))
	writeMarker(w, "cog", cfg.COGMarkers)
	writeMarker(w, "item_frames", cfg.ItemFrameMarkers)
	writeMarker(w, "asset_frames", cfg.AssetFrameMarkers)
	writeMarker(w, "link_frames", cfg.LinkFrameMarkers)
	writeContacts(w, cfg.Contacts)
	fmt.Fprintf(w, "wireframe thickness=%s\n", fnum(cfg.WireframeThickness))
	if e.customScript != "" {
		fmt.Fprintln(w, e.customScript)
	}
	e.scriptWritten = true
	return nil
}

// DeclareCamera appends one camera declaration, once per camera identity.
func (e *Exporter) DeclareCamera(c *sim.Camera) error {
	_, created, err := e.camsDeclared.Resolve(c.Key(), func() (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil || !created {
		return err
	}
	w, err := e.assetsWriter()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "camera_asset id=%d loc=%s aim=%s angle=%s ortho=%t\n",
		c.Key(), vec3(c.Location), vec3(c.Aim), fnum(c.AngleDeg), c.Orthographic)
	return nil
}

func (e *Exporter) BeginFrame(fd emit.FrameDescriptor) error {
	if e.inFrame {
		return fmt.Errorf("export: frame %d begun before previous frame ended", fd.Number)
	}
	s, err := e.stateFactory(fd)
	if err != nil {
		return fmt.Errorf("export: open state stream: %w", err)
	}
	e.state = s
	e.inFrame = true
	if !e.cfg.SingleAssetFile {
		e.frameMats.Reset()
		e.frameGeom.Reset()
	}
	fmt.Fprintf(e.state, "frame number=%d time=%s\n", fd.Number, fnum(fd.Time))
	return nil
}

func (e *Exporter) EndFrame() error {
	if !e.inFrame {
		return fmt.Errorf("export: EndFrame without BeginFrame")
	}
	if e.customData != "" {
		fmt.Fprintln(e.state, e.customData)
	}
	err := e.state.Close()
	e.state = nil
	e.inFrame = false
	if err != nil {
		return fmt.Errorf("export: close state stream: %w", err)
	}
	return nil
}

func (e *Exporter) Apply(node *emit.ProjectedNode, op emit.Op) error {
	if op == emit.OpDestroy {
		// streams are append-only per frame; removal simply stops emitting
		return nil
	}
	if !e.inFrame {
		return fmt.Errorf("export: apply outside frame")
	}
	switch op {
	case emit.OpCreate:
		if err := e.declareResources(node); err != nil {
			return err
		}
		e.writeNodeLine(e.state, "node", node)
		return nil
	case emit.OpUpdateTransform:
		if !e.cfg.SingleAssetFile {
			// split mode re-declares into every state stream so the back-end
			// picks up attributes that changed since the last frame
			if err := e.declareResources(node); err != nil {
				return err
			}
		}
		e.writeNodeLine(e.state, "update", node)
		return nil
	}
	return fmt.Errorf("export: unknown op %d", op)
}

// declareResources writes material and geometry declarations for a node. In
// single-asset mode each identity is declared once in the asset stream; in
// split mode the frame epoch re-declares into every state stream so the
// back-end picks up time-varying attributes.
func (e *Exporter) declareResources(node *emit.ProjectedNode) error {
	mats, geom := e.matsDeclared, e.geomDeclared
	dst := io.Writer(nil)
	if e.cfg.SingleAssetFile {
		w, err := e.assetsWriter()
		if err != nil {
			return err
		}
		dst = w
	} else {
		mats, geom = e.frameMats, e.frameGeom
		dst = e.state
	}

	for _, m := range node.MaterialRefs {
		_, created, _ := mats.Resolve(m.Key(), func() (struct{}, error) { return struct{}{}, nil })
		if created {
			writeMaterial(dst, m)
		}
	}
	_, created, _ := geom.Resolve(node.GeometryKey, func() (struct{}, error) { return struct{}{}, nil })
	if created {
		writeGeometry(dst, node)
	}
	return nil
}

func (e *Exporter) writeNodeLine(w io.Writer, record string, node *emit.ProjectedNode) {
	t := node.Transform
	fmt.Fprintf(w, "%s id=%d owner=%d group=%s kind=%s geom=%d pos=%s rot_angle=%s rot_axis=%s scale=%s",
		record, node.ID, node.OwnerKey, node.Group, node.Primitive.Kind, node.GeometryKey,
		vec3(t.Pos), fnum(t.RotAngle), vec3(t.RotAxis), vec3(t.Scale))
	if record == "node" && node.Annotation != "" {
		fmt.Fprintf(w, " %s", node.Annotation)
	}
	fmt.Fprintln(w)
}

func (e *Exporter) assetsWriter() (io.Writer, error) {
	if e.assets != nil {
		return e.assets, nil
	}
	path := filepath.Join(e.cfg.BasePath, e.cfg.ScriptFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("export: open asset stream: %w", err)
	}
	e.assets = f
	e.assetsCloser = f
	return f, nil
}

func (e *Exporter) fileStateFactory(fd emit.FrameDescriptor) (io.WriteCloser, error) {
	dir := filepath.Join(e.cfg.BasePath, "output")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, fmt.Sprintf("state%05d.dat", fd.Number)))
}

// Close releases the asset stream when the exporter opened it itself.
func (e *Exporter) Close() error {
	if e.state != nil {
		e.state.Close()
		e.state = nil
		e.inFrame = false
	}
	if e.assetsCloser != nil {
		err := e.assetsCloser.Close()
		e.assetsCloser = nil
		return err
	}
	return nil
}

// DeclaredMaterials returns how many distinct materials the persistent asset
// stream has declared.
func (e *Exporter) DeclaredMaterials() int { return e.matsDeclared.Len() }

func writeMaterial(w io.Writer, m *sim.Material) {
	fmt.Fprintf(w, "material id=%d name=%q diffuse=%s ambient=%s specular=%s emissive=%s metallic=%s roughness=%s opacity=%s",
		m.Key(), m.Name, fcolor(m.Diffuse), fcolor(m.Ambient), fcolor(m.Specular), fcolor(m.Emissive),
		fnum(m.Metallic), fnum(m.Roughness), fnum(m.Opacity))
	if m.KdTexture != "" {
		fmt.Fprintf(w, " kd_texture=%q", m.KdTexture)
	}
	if m.NormalTexture != "" {
		fmt.Fprintf(w, " normal_texture=%q", m.NormalTexture)
	}
	fmt.Fprintln(w)
}

func writeGeometry(w io.Writer, node *emit.ProjectedNode) {
	p := node.Primitive
	fmt.Fprintf(w, "geometry id=%d kind=%s", node.GeometryKey, p.Kind)
	switch p.Kind {
	case classify.KindExternalMesh:
		fmt.Fprintf(w, " path=%q", p.MeshPath)
	case classify.KindLine, classify.KindPath:
		fmt.Fprintf(w, " points=%d", len(p.Points))
		for _, pt := range p.Points {
			fmt.Fprintf(w, " %s", vec3(pt))
		}
	case classify.KindMeshColors:
		fmt.Fprintf(w, " per_vertex_color=%t", p.PerVertexColor)
	}
	if p.Wireframe {
		fmt.Fprintf(w, " wireframe=true")
	}
	fmt.Fprintln(w)
}

func writeMarker(w io.Writer, name string, m MarkerConfig) {
	fmt.Fprintf(w, "markers type=%s show=%t size=%s\n", name, m.Show, fnum(m.Size))
}

func writeContacts(w io.Writer, c ContactConfig) {
	fmt.Fprintf(w, "contacts mode=%s", c.Mode)
	switch c.Mode {
	case ContactsVector:
		fmt.Fprintf(w, " length_mode=%s length=%s length_attr=%q width_mode=%s width=%s width_attr=%q tip=%t",
			c.VectorLengthMode, fnum(c.VectorLength), c.VectorLengthAttr,
			c.VectorWidthMode, fnum(c.VectorWidth), c.VectorWidthAttr, c.VectorTip)
	case ContactsSphere:
		fmt.Fprintf(w, " size_mode=%s size=%s size_attr=%q",
			c.SphereSizeMode, fnum(c.SphereSize), c.SphereSizeAttr)
	}
	if c.Mode != ContactsOff {
		fmt.Fprintf(w, " color_mode=%s color=%s color_attr=%q colormap=%s,%s",
			c.ColorMode, fcolor(c.Color), c.ColorAttr, fnum(c.ColormapStart), fnum(c.ColormapEnd))
	}
	fmt.Fprintln(w)
}

func fnum(v float64) string { return fmt.Sprintf("%g", v) }

func vec3(v [3]float64) string { return fmt.Sprintf("%g,%g,%g", v[0], v[1], v[2]) }

func fcolor(c common.Color) string { return fmt.Sprintf("%g,%g,%g", c.R, c.G, c.B) }

package export

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/davik-lab/specula/common"
)

// ContactMode selects how contacts are visualized by the offline back-end.
type ContactMode string

const (
	ContactsOff    ContactMode = "off"
	ContactsVector ContactMode = "vector"
	ContactsSphere ContactMode = "sphere"
)

// AttrMode switches one contact-symbol property between a constant value and a
// data-attribute-driven value.
type AttrMode string

const (
	AttrConstant AttrMode = "constant"
	AttrDriven   AttrMode = "attr"
)

// CameraConfig is the default camera written to the asset stream.
type CameraConfig struct {
	Location     [3]float64 `toml:"location"`
	Aim          [3]float64 `toml:"aim"`
	AngleDeg     float64    `toml:"angle_deg"`
	Orthographic bool       `toml:"orthographic"`
}

// LightConfig is the default light written to the asset stream.
type LightConfig struct {
	Location   [3]float64   `toml:"location"`
	Color      common.Color `toml:"color"`
	CastShadow bool         `toml:"cast_shadow"`
}

// MarkerConfig toggles one family of reference-frame markers and sets its size.
type MarkerConfig struct {
	Show bool    `toml:"show"`
	Size float64 `toml:"size"`
}

// ContactConfig is the full contact-symbol surface: mode plus per-property
// constant/attribute switches, scales, and the falsecolor range.
type ContactConfig struct {
	Mode ContactMode `toml:"mode"`

	VectorLengthMode AttrMode `toml:"vector_length_mode"`
	VectorLengthAttr string   `toml:"vector_length_attr"`
	VectorLength     float64  `toml:"vector_length"`
	VectorWidthMode  AttrMode `toml:"vector_width_mode"`
	VectorWidthAttr  string   `toml:"vector_width_attr"`
	VectorWidth      float64  `toml:"vector_width"`
	VectorTip        bool     `toml:"vector_tip"`

	SphereSizeMode AttrMode `toml:"sphere_size_mode"`
	SphereSizeAttr string   `toml:"sphere_size_attr"`
	SphereSize     float64  `toml:"sphere_size"`

	ColorMode     AttrMode     `toml:"color_mode"`
	ColorAttr     string       `toml:"color_attr"`
	Color         common.Color `toml:"color"`
	ColormapStart float64      `toml:"colormap_start"`
	ColormapEnd   float64      `toml:"colormap_end"`
}

// Config is the recognized configuration surface of the file emitter.
type Config struct {
	// BasePath is the directory all output lands under; it must already exist.
	BasePath string `toml:"base_path"`
	// ScriptFilename is the asset-stream filename under BasePath.
	ScriptFilename string `toml:"script_filename"`
	// PictureFilename is the base name of images the back-end renders.
	PictureFilename string `toml:"picture_filename"`
	PictureWidth    int    `toml:"picture_width"`
	PictureHeight   int    `toml:"picture_height"`

	Camera     CameraConfig `toml:"camera"`
	Light      LightConfig  `toml:"light"`
	Background common.Color `toml:"background"`

	COGMarkers        MarkerConfig `toml:"cog_markers"`
	ItemFrameMarkers  MarkerConfig `toml:"item_frame_markers"`
	AssetFrameMarkers MarkerConfig `toml:"asset_frame_markers"`
	LinkFrameMarkers  MarkerConfig `toml:"link_frame_markers"`

	Contacts ContactConfig `toml:"contacts"`

	// WireframeThickness is the tube radius for meshes rendered as wire cages.
	WireframeThickness float64 `toml:"wireframe_thickness"`

	// SingleAssetFile declares every resource once in the asset stream. When
	// false, resources are re-declared in each per-frame state stream so
	// time-varying attributes (e.g. colors) survive.
	SingleAssetFile bool `toml:"single_asset_file"`
}

// DefaultConfig returns the configuration the original back-end assumes when
// nothing is set.
func DefaultConfig() Config {
	return Config{
		ScriptFilename:  "exported.assets.txt",
		PictureFilename: "pic",
		PictureWidth:    1280,
		PictureHeight:   720,
		Camera: CameraConfig{
			Location: [3]float64{2, 2, 2},
			AngleDeg: 50,
		},
		Light: LightConfig{
			Location:   [3]float64{2, 4, 2},
			Color:      common.White,
			CastShadow: true,
		},
		Background:         common.White,
		COGMarkers:         MarkerConfig{Size: 0.04},
		ItemFrameMarkers:   MarkerConfig{Size: 0.05},
		AssetFrameMarkers:  MarkerConfig{Size: 0.03},
		LinkFrameMarkers:   MarkerConfig{Size: 0.04},
		Contacts: ContactConfig{
			Mode:             ContactsOff,
			VectorLengthMode: AttrConstant,
			VectorLength:     0.1,
			VectorWidthMode:  AttrConstant,
			VectorWidth:      0.01,
			VectorTip:        true,
			SphereSizeMode:   AttrConstant,
			SphereSize:       0.02,
			ColorMode:        AttrConstant,
			Color:            common.Color{R: 1, G: 0, B: 0},
			ColormapEnd:      1,
		},
		WireframeThickness: 0.001,
		SingleAssetFile:    true,
	}
}

// LoadConfig reads a TOML configuration file, applying defaults for anything
// the file leaves unset.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("export: read config: %w", err)
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("export: parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration as TOML.
func SaveConfig(path string, cfg Config) error {
	b, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("export: encode config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("export: write config: %w", err)
	}
	return nil
}

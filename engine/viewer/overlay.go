// package viewer carries the read-only state record an interactive front-end
// overlays on top of the live scene (frame counter, clocks, realtime factor)
// and a websocket broadcaster that streams it to connected viewers. Nothing
// here participates in the synchronization contract; it is derived output.
package viewer

// Overlay is one snapshot of the per-frame HUD quantities.
type Overlay struct {
	FrameNumber uint    `json:"frame_number"`
	ModelTime   float64 `json:"model_time"`
	WallTime    float64 `json:"wall_time"`
	Realtime    float64 `json:"realtime_factor"`
	Quit        bool    `json:"quit"`
}

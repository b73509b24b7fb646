package detect

import "fmt"

// Box is one bounding box plus its label, positioned in frame pixels. The
// label sits just above the box unless that would leave the frame.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
	Label  string  `json:"label"`
	LabelX float64 `json:"labelX"`
	LabelY float64 `json:"labelY"`
	Color  string  `json:"color"`
}

// Overlay is the draw list for one tick, sized to the frame's native
// resolution. The client clears its canvas and redraws these boxes each tick.
type Overlay struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Boxes  []Box `json:"boxes"`
}

const boxColor = "red"

// buildOverlay renders every prediction (unfiltered; low-confidence boxes are
// still drawn, thresholds only gate the flags) into an Overlay.
func buildOverlay(preds []Prediction, width, height int) Overlay {
	o := Overlay{Width: width, Height: height, Boxes: make([]Box, 0, len(preds))}
	for _, p := range preds {
		x, y, w, h := p.BBox[0], p.BBox[1], p.BBox[2], p.BBox[3]
		labelY := y - 5
		if y <= 10 {
			labelY = 10
		}
		o.Boxes = append(o.Boxes, Box{
			X: x, Y: y, Width: w, Height: h,
			Label:  fmt.Sprintf("%s - %.1f%%", p.Class, p.Score*100),
			LabelX: x,
			LabelY: labelY,
			Color:  boxColor,
		})
	}
	return o
}

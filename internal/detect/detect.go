// Package detect samples webcam frames through a pretrained object detector
// and turns raw predictions into proctoring signals: person presence,
// suspicious objects, and overlay boxes for the client to render.
package detect

// Prediction is one detection returned by the model.
type Prediction struct {
	Class string    `json:"class"`
	Score float64   `json:"score"`
	BBox  [4]float64 `json:"bbox"` // x, y, width, height in frame pixels
}

// Frame is the most recent webcam snapshot posted by the client. Seq grows
// monotonically; the sampler uses it to tell a fresh frame from a stale one.
type Frame struct {
	JPEG   []byte
	Width  int
	Height int
	Seq    uint64
}

// FrameSource yields the latest frame. ok is false while no ready frame exists.
type FrameSource interface {
	Frame() (frame Frame, ok bool)
}

// confidenceThreshold returns the minimum score for a class to count as
// detected. Person and cell phone carry tuned thresholds; everything else
// only needs to clear the noise floor.
func confidenceThreshold(class string) float64 {
	switch class {
	case "person":
		return 0.40
	case "cell phone":
		return 0.30
	default:
		return 0.15
	}
}

// classifyDetections filters predictions by their per-class thresholds and
// returns the surviving class labels in prediction order.
func classifyDetections(preds []Prediction) []string {
	var classes []string
	for _, p := range preds {
		if p.Score > confidenceThreshold(p.Class) {
			classes = append(classes, p.Class)
		}
	}
	return classes
}

var suspiciousClasses = map[string]bool{
	"cell phone": true,
	"laptop":     true,
}

// IsSuspicious reports whether a detected class counts as a proctoring
// violation.
func IsSuspicious(class string) bool {
	return suspiciousClasses[class]
}

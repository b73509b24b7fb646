package detect

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeModel struct {
	preds []Prediction
	err   error
	calls int
}

func (m *fakeModel) Detect(_ context.Context, _ Frame) ([]Prediction, error) {
	m.calls++
	return m.preds, m.err
}

func putFrame(b *FrameBuffer) {
	b.Put([]byte{0xff, 0xd8}, 640, 480)
}

func TestClassifyDetectionsThresholds(t *testing.T) {
	preds := []Prediction{
		{Class: "person", Score: 0.35},     // below person threshold
		{Class: "person", Score: 0.45},     // above
		{Class: "cell phone", Score: 0.25}, // below cell phone threshold
		{Class: "cell phone", Score: 0.31}, // above
		{Class: "book", Score: 0.10},       // below default threshold
		{Class: "laptop", Score: 0.20},     // above default
	}

	got := classifyDetections(preds)
	want := []string{"person", "cell phone", "laptop"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("classifyDetections = %v, want %v", got, want)
	}
}

func TestSamplerSetsFlagsAndAccumulatesLabels(t *testing.T) {
	model := &fakeModel{preds: []Prediction{
		{Class: "person", Score: 0.9, BBox: [4]float64{10, 20, 100, 200}},
		{Class: "cell phone", Score: 0.5, BBox: [4]float64{5, 5, 20, 40}},
	}}
	frames := NewFrameBuffer()
	s := NewSampler(model, frames, 0)

	putFrame(frames)
	s.sampleOnce(context.Background())

	person, suspicious, labels := s.Snapshot()
	if !person || !suspicious {
		t.Errorf("flags = (%v, %v), want both true", person, suspicious)
	}
	if !reflect.DeepEqual(labels, []string{"cell phone", "person"}) {
		t.Errorf("labels = %v", labels)
	}

	// Next tick: only the person remains; flags follow the current frame but
	// the label set keeps everything seen this attempt.
	model.preds = []Prediction{{Class: "person", Score: 0.9}}
	putFrame(frames)
	s.sampleOnce(context.Background())

	person, suspicious, labels = s.Snapshot()
	if !person || suspicious {
		t.Errorf("flags = (%v, %v), want (true, false)", person, suspicious)
	}
	if !reflect.DeepEqual(labels, []string{"cell phone", "person"}) {
		t.Errorf("accumulated labels = %v", labels)
	}
}

func TestSamplerBelowThresholdNeverSetsFlag(t *testing.T) {
	model := &fakeModel{preds: []Prediction{{Class: "person", Score: 0.35}}}
	frames := NewFrameBuffer()
	s := NewSampler(model, frames, 0)

	putFrame(frames)
	s.sampleOnce(context.Background())

	person, _, labels := s.Snapshot()
	if person {
		t.Error("person flag set by below-threshold detection")
	}
	if len(labels) != 0 {
		t.Errorf("labels = %v, want empty", labels)
	}
}

func TestSamplerSkipsWithoutReadyFrame(t *testing.T) {
	model := &fakeModel{}
	s := NewSampler(model, NewFrameBuffer(), 0)

	s.sampleOnce(context.Background())
	if model.calls != 0 {
		t.Errorf("detect called %d times with no ready frame", model.calls)
	}
}

func TestSamplerSkipsStaleFrame(t *testing.T) {
	model := &fakeModel{preds: []Prediction{{Class: "person", Score: 0.9}}}
	frames := NewFrameBuffer()
	s := NewSampler(model, frames, 0)

	putFrame(frames)
	s.sampleOnce(context.Background())
	s.sampleOnce(context.Background()) // same frame again

	if model.calls != 1 {
		t.Errorf("detect called %d times for one frame, want 1", model.calls)
	}
}

func TestSamplerInferenceFailureKeepsState(t *testing.T) {
	model := &fakeModel{preds: []Prediction{{Class: "person", Score: 0.9}}}
	frames := NewFrameBuffer()
	s := NewSampler(model, frames, 0)

	putFrame(frames)
	s.sampleOnce(context.Background())

	model.err = errors.New("sidecar down")
	putFrame(frames)
	s.sampleOnce(context.Background())

	person, _, _ := s.Snapshot()
	if !person {
		t.Error("failed inference should not clear previous flags")
	}
}

func TestOverlayDrawsAllPredictionsWithLabels(t *testing.T) {
	model := &fakeModel{preds: []Prediction{
		{Class: "person", Score: 0.971, BBox: [4]float64{50, 60, 100, 200}},
		{Class: "book", Score: 0.05, BBox: [4]float64{5, 8, 10, 10}}, // below threshold, still drawn
	}}
	frames := NewFrameBuffer()
	s := NewSampler(model, frames, 0)

	putFrame(frames)
	s.sampleOnce(context.Background())

	o := s.Overlay()
	if o.Width != 640 || o.Height != 480 {
		t.Errorf("overlay sized %dx%d, want frame native resolution", o.Width, o.Height)
	}
	if len(o.Boxes) != 2 {
		t.Fatalf("boxes = %d, want 2", len(o.Boxes))
	}
	if o.Boxes[0].Label != "person - 97.1%" {
		t.Errorf("label = %q", o.Boxes[0].Label)
	}
	if o.Boxes[0].LabelY != 55 {
		t.Errorf("labelY = %v, want y-5", o.Boxes[0].LabelY)
	}
	// Box near the top edge clamps its label to y=10.
	if o.Boxes[1].LabelY != 10 {
		t.Errorf("clamped labelY = %v, want 10", o.Boxes[1].LabelY)
	}
}

func TestResetAttemptClearsState(t *testing.T) {
	model := &fakeModel{preds: []Prediction{{Class: "cell phone", Score: 0.5}}}
	frames := NewFrameBuffer()
	s := NewSampler(model, frames, 0)

	putFrame(frames)
	s.sampleOnce(context.Background())
	s.ResetAttempt()

	person, suspicious, labels := s.Snapshot()
	if person || suspicious || len(labels) != 0 {
		t.Errorf("state not cleared: (%v, %v, %v)", person, suspicious, labels)
	}
}

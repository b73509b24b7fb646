package detect

import "sync"

// FrameBuffer is a FrameSource fed by the transport layer: the client posts
// webcam snapshots and the sampler consumes whichever is newest. Older frames
// are simply overwritten; the sampler never needs history.
type FrameBuffer struct {
	mu    sync.Mutex
	frame Frame
	ready bool
}

// NewFrameBuffer returns an empty buffer; Frame reports not-ready until the
// first Put.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Put stores the latest frame and bumps its sequence number.
func (b *FrameBuffer) Put(jpeg []byte, width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = Frame{
		JPEG:   jpeg,
		Width:  width,
		Height: height,
		Seq:    b.frame.Seq + 1,
	}
	b.ready = true
}

// Frame returns the most recent frame, if any.
func (b *FrameBuffer) Frame() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame, b.ready
}

// Clear marks the buffer not-ready; used when the webcam is toggled off.
func (b *FrameBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = false
}

package scanner

import (
	"context"
	"sync"
	"sync/atomic"
)

// fakeDevice hands out streams fed by the test.
type fakeDevice struct {
	openErr   error
	neverLive bool

	opens  atomic.Int32
	closes atomic.Int32

	mu      sync.Mutex
	current *fakeStream
}

func (d *fakeDevice) Open(ctx context.Context, _ Facing) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opens.Add(1)
	s := &fakeStream{device: d, frames: make(chan Frame), ready: make(chan struct{})}
	if !d.neverLive {
		close(s.ready)
	}
	d.mu.Lock()
	d.current = s
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDevice) stream() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// held reports whether a stream is open and not yet released.
func (d *fakeDevice) held() bool {
	return d.opens.Load() > d.closes.Load()
}

type fakeStream struct {
	device *fakeDevice
	frames chan Frame
	ready  chan struct{}
	once   sync.Once
}

func (s *fakeStream) Ready() <-chan struct{} { return s.ready }
func (s *fakeStream) Frames() <-chan Frame   { return s.frames }

func (s *fakeStream) Close() error {
	s.once.Do(func() { s.device.closes.Add(1) })
	return nil
}

// send delivers a frame, giving up if the loop has gone away.
func (s *fakeStream) send(ctx context.Context, payload string) bool {
	select {
	case s.frames <- Frame(payload):
		return true
	case <-ctx.Done():
		return false
	}
}

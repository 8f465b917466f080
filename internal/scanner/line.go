package scanner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// LineDecoder treats every non-blank line as a payload. Hardware scanners
// in keyboard-wedge or serial mode emit one code per line.
type LineDecoder struct{}

func (LineDecoder) Decode(f Frame) (string, error) {
	line := bytes.TrimSpace(f)
	if len(line) == 0 {
		return "", ErrNoCode
	}
	return string(line), nil
}

// FileDevice reads lines from a device node such as a serial port or an
// evdev-backed tty. Each Open opens the file afresh and Close releases it.
type FileDevice struct {
	path string
}

func NewFileDevice(path string) *FileDevice {
	return &FileDevice{path: path}
}

func (d *FileDevice) Open(_ context.Context, _ Facing) (Stream, error) {
	f, err := os.OpenFile(d.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.path, err)
	}
	return newLineStream(f, f.Close), nil
}

// ReaderDevice shares one long-lived reader, such as stdin, across
// sessions. Lines that arrive while no stream is open are dropped.
type ReaderDevice struct {
	once   sync.Once
	mu     sync.Mutex
	active chan Frame
	ended  bool
	r      io.Reader
}

func NewReaderDevice(r io.Reader) *ReaderDevice {
	return &ReaderDevice{r: r}
}

func (d *ReaderDevice) Open(_ context.Context, _ Facing) (Stream, error) {
	d.once.Do(func() { go d.pump() })

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ended {
		return nil, fmt.Errorf("reader closed: %w", ErrDeviceNotFound)
	}
	if d.active != nil {
		return nil, ErrDeviceBusy
	}
	frames := make(chan Frame, 1)
	d.active = frames

	ready := make(chan struct{})
	close(ready)
	s := &readerStream{device: d, frames: frames, ready: ready}
	return s, nil
}

func (d *ReaderDevice) pump() {
	sc := bufio.NewScanner(d.r)
	for sc.Scan() {
		line := append(Frame(nil), sc.Bytes()...)
		d.mu.Lock()
		if d.active != nil {
			select {
			case d.active <- line:
			default:
			}
		}
		d.mu.Unlock()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.ended = true
	if d.active != nil {
		close(d.active)
		d.active = nil
	}
}

func (d *ReaderDevice) detach(frames chan Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == frames {
		d.active = nil
	}
}

type readerStream struct {
	device *ReaderDevice
	frames chan Frame
	ready  chan struct{}
	once   sync.Once
}

func (s *readerStream) Ready() <-chan struct{} { return s.ready }
func (s *readerStream) Frames() <-chan Frame   { return s.frames }

func (s *readerStream) Close() error {
	s.once.Do(func() { s.device.detach(s.frames) })
	return nil
}

// lineStream scans lines from an owned reader until it is closed.
type lineStream struct {
	frames chan Frame
	ready  chan struct{}
	close  func() error
	once   sync.Once
	err    error
	done   chan struct{}
}

func newLineStream(r io.Reader, closeFn func() error) *lineStream {
	s := &lineStream{
		frames: make(chan Frame),
		ready:  make(chan struct{}),
		close:  closeFn,
		done:   make(chan struct{}),
	}
	close(s.ready)
	go s.scan(r)
	return s
}

func (s *lineStream) scan(r io.Reader) {
	defer close(s.frames)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := append(Frame(nil), sc.Bytes()...)
		select {
		case s.frames <- line:
		case <-s.done:
			return
		}
	}
}

func (s *lineStream) Ready() <-chan struct{} { return s.ready }
func (s *lineStream) Frames() <-chan Frame   { return s.frames }

func (s *lineStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.close()
	})
	return s.err
}

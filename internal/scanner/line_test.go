package scanner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineDecoder(t *testing.T) {
	got, err := LineDecoder{}.Decode(Frame("  https://door.example.com/checkin/e1?token=abc\r"))
	require.NoError(t, err)
	assert.Equal(t, "https://door.example.com/checkin/e1?token=abc", got)

	_, err = LineDecoder{}.Decode(Frame(" \t"))
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestFileDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner")
	require.NoError(t, os.WriteFile(path, []byte("first\n\nsecond\n"), 0o600))

	s := newTestSession(NewFileDevice(path))
	got := make(chan string, 2)
	require.NoError(t, s.Start(context.Background(), func(_ context.Context, payload string) Action {
		got <- payload
		return Continue
	}))

	assert.Equal(t, "first", <-got)
	assert.Equal(t, "second", <-got)
	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond, "end of file ends the run")
}

func TestFileDeviceMissing(t *testing.T) {
	s := newTestSession(NewFileDevice(filepath.Join(t.TempDir(), "absent")))

	err := s.Start(context.Background(), func(context.Context, string) Action { return Continue })

	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, KindDeviceNotFound, startErr.Kind)
}

func TestReaderDeviceSharesReaderAcrossSessions(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	d := NewReaderDevice(pr)

	stream, err := d.Open(context.Background(), FacingEnvironment)
	require.NoError(t, err)

	_, err = d.Open(context.Background(), FacingEnvironment)
	assert.ErrorIs(t, err, ErrDeviceBusy)

	_, err = io.WriteString(pw, "one\n")
	require.NoError(t, err)
	assert.Equal(t, Frame("one"), <-stream.Frames())
	require.NoError(t, stream.Close())

	again, err := d.Open(context.Background(), FacingEnvironment)
	require.NoError(t, err, "closing releases the reader for the next session")
	_, err = io.WriteString(pw, "two\n")
	require.NoError(t, err)
	assert.Equal(t, Frame("two"), <-again.Frames())
	require.NoError(t, again.Close())
}

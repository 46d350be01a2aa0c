package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-thermal-capture/capture"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFileWritesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.bin")
	f, err := CreateFile(path)
	require.NoError(t, err)

	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	_, err = f.Write([]byte{4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.Written())

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	_, err = f.Write([]byte{5})
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestCreateFileValidatesPath(t *testing.T) {
	_, err := CreateFile(filepath.Join(t.TempDir(), "missing", "run.bin"))
	assert.Error(t, err)

	_, err = CreateFile(t.TempDir() + string(filepath.Separator))
	assert.Error(t, err)
}

func TestQueueKeepsOrder(t *testing.T) {
	q := NewQueue(3)
	for i := byte(0); i < 3; i++ {
		_, err := q.Write([]byte{i})
		require.NoError(t, err)
	}
	_, err := q.Write([]byte{9})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 3, q.Len())

	p, ok := q.TryRead()
	require.True(t, ok)
	assert.Equal(t, []byte{0}, p)

	require.NoError(t, q.Close())
	_, err = q.Write([]byte{9})
	assert.Error(t, err)

	ctx := context.Background()
	p, err = q.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, p)
	p, err = q.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, p)
	_, err = q.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestQueueReadHonoursContext(t *testing.T) {
	q := NewQueue(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Read(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPreviewKeepsLatest(t *testing.T) {
	p := NewPreview()
	_, ok := p.Latest()
	assert.False(t, ok)

	for i := byte(0); i < 3; i++ {
		_, err := p.Write([]byte{i})
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(2), p.Drops())

	b, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, b)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, []byte{2}, latest, "latest survives Next")

	done := make(chan error, 1)
	go func() {
		_, err := p.Next()
		done <- err
	}()
	require.NoError(t, p.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}

// gate blocks every write until released.
type gate struct {
	mu      sync.Mutex
	release chan struct{}
	writes  [][]byte
	err     error
}

func (g *gate) Write(p []byte) (int, error) {
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, g.err
	}
	g.writes = append(g.writes, p)
	return len(p), nil
}

func (g *gate) snapshot() [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]byte(nil), g.writes...)
}

func TestAsyncDropsOldestWhenFull(t *testing.T) {
	inner := &gate{release: make(chan struct{})}
	a, err := NewAsync(inner, AsyncOptions{Capacity: 2, Logger: quietLogger})
	require.NoError(t, err)

	// first frame is taken by the forwarding goroutine and blocks on the gate
	_, err = a.Write([]byte{0})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return a.Stats().Queued == 0 }, time.Second, time.Millisecond)

	for i := byte(1); i <= 4; i++ {
		_, err := a.Write([]byte{i})
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(2), a.Stats().Dropped)

	close(inner.release)
	require.NoError(t, a.Close())

	assert.Equal(t, [][]byte{{0}, {3}, {4}}, inner.snapshot())
	assert.Equal(t, uint64(3), a.Stats().Written)
}

func TestAsyncKeepsControlFramesPaired(t *testing.T) {
	inner := &gate{release: make(chan struct{})}
	close(inner.release)
	a, err := NewAsync(inner, AsyncOptions{Paired: true, Logger: quietLogger})
	require.NoError(t, err)

	ctrl := capture.EncodeControlFrame(42 * time.Millisecond)
	_, err = a.Write(ctrl[:])
	require.NoError(t, err)
	_, err = a.Write([]byte{7, 7})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	writes := inner.snapshot()
	require.Len(t, writes, 2)
	assert.Equal(t, ctrl[:], writes[0])
	assert.Equal(t, []byte{7, 7}, writes[1])
	assert.Equal(t, uint64(1), a.Stats().Written)
}

func TestAsyncReportsInnerError(t *testing.T) {
	boom := errors.New("disk full")
	inner := &gate{release: make(chan struct{}), err: boom}
	close(inner.release)
	a, err := NewAsync(inner, AsyncOptions{Logger: quietLogger})
	require.NoError(t, err)

	_, err = a.Write([]byte{1})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := a.Write([]byte{2})
		return errors.Is(err, boom)
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, a.Close(), boom)
}

func TestNewAsyncValidates(t *testing.T) {
	_, err := NewAsync(nil, AsyncOptions{})
	assert.Error(t, err)
	_, err = NewAsync(io.Discard, AsyncOptions{Capacity: -1})
	assert.Error(t, err)
}

// fakeToken is a completed mqtt.Token.
type fakeToken struct {
	err     error
	timeout bool
}

func (t fakeToken) Wait() bool                     { return !t.timeout }
func (t fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakePublisher struct {
	token    fakeToken
	topics   []string
	payloads [][]byte
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload.([]byte))
	return p.token
}

func TestMQTTPublishesEnvelopes(t *testing.T) {
	pub := &fakePublisher{}
	s, err := NewMQTT(pub, MQTTConfig{
		Topic:         "thermal/frames/cam0",
		Source:        "cam0",
		ControlFrames: true,
		Logger:        quietLogger,
	})
	require.NoError(t, err)

	for i, ms := range []time.Duration{0, 33 * time.Millisecond} {
		ctrl := capture.EncodeControlFrame(ms)
		_, err := s.Write(ctrl[:])
		require.NoError(t, err)
		_, err = s.Write([]byte{byte(i), 0xAA})
		require.NoError(t, err)
	}

	require.Len(t, pub.payloads, 2)
	assert.Equal(t, []string{"thermal/frames/cam0", "thermal/frames/cam0"}, pub.topics)

	env, err := DecodeEnvelope(pub.payloads[1])
	require.NoError(t, err)
	assert.Equal(t, "cam0", env.Source)
	assert.Equal(t, uint64(1), env.Seq)
	require.NotNil(t, env.ElapsedMS)
	assert.Equal(t, uint32(33), *env.ElapsedMS)
	assert.Equal(t, []byte{1, 0xAA}, env.Data)

	st := s.Stats()
	assert.Equal(t, uint64(2), st.Published)
	assert.Zero(t, st.Errors)
	assert.NoError(t, s.Close())
}

func TestMQTTWithoutControlFrames(t *testing.T) {
	pub := &fakePublisher{}
	s, err := NewMQTT(pub, MQTTConfig{Topic: "t", Logger: quietLogger})
	require.NoError(t, err)

	_, err = s.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	env, err := DecodeEnvelope(pub.payloads[0])
	require.NoError(t, err)
	assert.Nil(t, env.ElapsedMS)
	assert.Equal(t, []byte{1, 2, 3, 4}, env.Data)
}

func TestMQTTPublishFailures(t *testing.T) {
	boom := errors.New("not connected")
	s, err := NewMQTT(&fakePublisher{token: fakeToken{err: boom}}, MQTTConfig{Topic: "t", Logger: quietLogger})
	require.NoError(t, err)
	_, err = s.Write([]byte{1})
	assert.ErrorIs(t, err, boom)

	s, err = NewMQTT(&fakePublisher{token: fakeToken{timeout: true}}, MQTTConfig{Topic: "t", Logger: quietLogger})
	require.NoError(t, err)
	_, err = s.Write([]byte{1})
	assert.Error(t, err)
	assert.Equal(t, uint64(1), s.Stats().Errors)

	_, err = NewMQTT(&fakePublisher{}, MQTTConfig{})
	assert.Error(t, err, "topic is required")
	_, err = DialMQTT(context.Background(), MQTTConfig{})
	assert.Error(t, err, "broker is required")
}

func TestReadRecording(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		ctrl := capture.EncodeControlFrame(time.Duration(i*10) * time.Millisecond)
		buf.Write(ctrl[:])
		buf.Write([]byte{byte(i), byte(i)})
	}
	raw := buf.Bytes()

	var elapsed []time.Duration
	n, err := ReadRecording(bytes.NewReader(raw), 2, true, func(i int, d time.Duration, frame []byte) error {
		assert.Equal(t, []byte{byte(i), byte(i)}, frame)
		elapsed = append(elapsed, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond}, elapsed)

	_, err = ReadRecording(bytes.NewReader(raw[:len(raw)-1]), 2, true, func(int, time.Duration, []byte) error { return nil })
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	n, err = ReadRecording(bytes.NewReader([]byte{1, 2, 3, 4}), 2, false, func(int, time.Duration, []byte) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

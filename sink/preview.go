package sink

import (
	"io"
	"sync/atomic"

	"github.com/e7canasta/orion-thermal-capture/internal/mailbox"
)

// Preview holds only the most recent frame. Register it without control
// frames. A frame that is overwritten before it was taken counts as a drop.
type Preview struct {
	slot   *mailbox.Slot[[]byte]
	latest atomic.Pointer[[]byte]
}

// NewPreview returns an empty preview.
func NewPreview() *Preview {
	return &Preview{slot: mailbox.New[[]byte]()}
}

// Write implements io.Writer. It never blocks.
func (p *Preview) Write(b []byte) (int, error) {
	p.latest.Store(&b)
	p.slot.Put(b)
	return len(b), nil
}

// Latest returns the most recent frame, whether or not Next has taken it.
func (p *Preview) Latest() ([]byte, bool) {
	b := p.latest.Load()
	if b == nil {
		return nil, false
	}
	return *b, true
}

// Next blocks until a frame not seen by a previous Next is available. It
// returns io.EOF once the preview is closed.
func (p *Preview) Next() ([]byte, error) {
	b, ok := p.slot.Take()
	if !ok {
		return nil, io.EOF
	}
	return b, nil
}

// Drops returns how many frames were replaced before Next took them.
func (p *Preview) Drops() uint64 {
	return p.slot.Drops()
}

// Close wakes blocked Next calls.
func (p *Preview) Close() error {
	p.slot.Close()
	return nil
}

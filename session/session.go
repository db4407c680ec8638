package session

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge/codec"
	"github.com/plasmoverse/opusbridge/errors"
)

const (
	stateOpen   = "open"
	stateClosed = "closed"

	eventClose = "close"
)

var errClosed = stderrors.New("session closed")

// base holds what decoder and encoder sessions share.
// Callers serialize access; the handle table guard does this for the bridge.
type base struct {
	id        uuid.UUID
	kind      string
	channels  codec.Channels
	lifecycle *fsm.FSM
	logger    *zap.Logger
}

func newBase(kind string, channels codec.Channels, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := base{
		id:       uuid.New(),
		kind:     kind,
		channels: channels,
	}
	log := logger.With(zap.String("session", b.id.String()), zap.String("type", kind))
	b.logger = log
	b.lifecycle = fsm.NewFSM(
		stateOpen,
		fsm.Events{
			{Name: eventClose, Src: []string{stateOpen}, Dst: stateClosed},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				log.Debug("session state changed",
					zap.String("from", e.Src),
					zap.String("to", e.Dst))
			},
		},
	)
	return b
}

// ID returns the session correlation ID.
func (b *base) ID() uuid.UUID {
	return b.id
}

// Channels returns the channel count fixed at construction.
func (b *base) Channels() codec.Channels {
	return b.channels
}

// IsOpen reports whether the session has not been closed.
func (b *base) IsOpen() bool {
	return b.lifecycle.Is(stateOpen)
}

func (b *base) ensureOpen(phase errors.Phase) error {
	if b.IsOpen() {
		return nil
	}
	return errors.State(phase, "Failed to resolve "+b.kind+" handle", errClosed)
}

// markClosed moves the session to closed. It fails when already closed.
func (b *base) markClosed() error {
	if err := b.lifecycle.Event(context.Background(), eventClose); err != nil {
		return errors.State(errors.PhaseClose, "Failed to resolve "+b.kind+" handle", errClosed)
	}
	return nil
}

// Package activity is the best-effort audit sink.  Logging must never cause
// the calling operation to fail: every internal error is logged server-side
// and discarded.
package activity

import (
	"context"
	"log"
	"time"

	"github.com/kasraf/reelbase/internal/model"
)

// Sink persists one audit entry.  Implemented by sqlstore.ActivityLog and
// docstore.ActivityLog.
type Sink interface {
	Append(ctx context.Context, e model.ActivityEntry) error
}

// Reader serves the paginated admin listing.
type Reader interface {
	Page(ctx context.Context, page, size int) ([]model.ActivityView, int64, error)
}

// Publisher hands an entry to the message broker instead of writing it
// directly; a background consumer persists it.
type Publisher interface {
	Publish(ctx context.Context, e model.ActivityEntry) error
}

// Logger records audit entries fire-and-forget.  Exactly one of sink or pub
// is used: direct writes when no broker is configured, broker fan-out
// otherwise.
type Logger struct {
	sink Sink
	pub  Publisher
}

// NewLogger writes entries straight to the active backend.
func NewLogger(sink Sink) *Logger {
	return &Logger{sink: sink}
}

// NewPublishingLogger hands entries to the broker.
func NewPublishingLogger(pub Publisher) *Logger {
	return &Logger{pub: pub}
}

// Log records the entry.  It returns nothing: failures are swallowed after
// being logged, and ordering across concurrent calls is whatever the backend
// provides.  The write is detached from the request's cancellation so a
// client disconnect cannot lose the entry mid-flight.
func (l *Logger) Log(ctx context.Context, e model.ActivityEntry) {
	if l == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var err error
	switch {
	case l.pub != nil:
		err = l.pub.Publish(ctx, e)
	case l.sink != nil:
		err = l.sink.Append(ctx, e)
	}
	if err != nil {
		log.Printf("activity: dropped entry action=%s actor=%s: %v", e.Action, e.ActorID, err)
	}
}

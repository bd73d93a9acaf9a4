// Package queue contains the broker payloads, the activity publisher and
// the background consumer that persists published entries.
package queue

import (
	"time"

	"github.com/kasraf/reelbase/internal/model"
)

const activityQueueName = "user.activity"

// ActivityEvent is the wire form of an audit entry.
type ActivityEvent struct {
	ActorID     string         `json:"actor_id"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type,omitempty"`
	EntityID    string         `json:"entity_id,omitempty"`
	EntityTitle string         `json:"entity_title,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IP          string         `json:"ip,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func eventFromEntry(e model.ActivityEntry) ActivityEvent {
	return ActivityEvent{
		ActorID:     e.ActorID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		EntityTitle: e.EntityTitle,
		Metadata:    e.Metadata,
		IP:          e.IP,
		CreatedAt:   e.CreatedAt,
	}
}

func (ev ActivityEvent) entry() model.ActivityEntry {
	return model.ActivityEntry{
		ActorID:     ev.ActorID,
		Action:      ev.Action,
		EntityType:  ev.EntityType,
		EntityID:    ev.EntityID,
		EntityTitle: ev.EntityTitle,
		Metadata:    ev.Metadata,
		IP:          ev.IP,
		CreatedAt:   ev.CreatedAt,
	}
}

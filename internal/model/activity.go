package model

import "time"

// ActivityEntry is a single append-only audit record.  Action is a free-form
// tag ("login", "register", "added_to_watchlist", ...).  Entity fields are
// optional and describe what the action touched.
type ActivityEntry struct {
	ID          string         `json:"id,omitempty"`
	ActorID     string         `json:"actor_id"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type,omitempty"`
	EntityID    string         `json:"entity_id,omitempty"`
	EntityTitle string         `json:"entity_title,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IP          string         `json:"ip,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ActivityView is an entry joined with display names for the admin listing.
// TargetName is filled only when the entry targets another user.
type ActivityView struct {
	ActivityEntry
	ActorName  string `json:"actor_name"`
	TargetName string `json:"target_name,omitempty"`
}

// Package events publishes domain events to downstream consumers such as
// group chat and notification workers.
package events

import (
	"context"
	"sync"
	"time"
)

// RoutingKeyGroupFormed is the routing key of GroupFormedEvent messages.
const RoutingKeyGroupFormed = "group.formed"

// GroupFormedEvent is emitted once for every dinner group the matcher
// persists.
type GroupFormedEvent struct {
	GroupID         string    `json:"group_id"`
	TimeSlotID      string    `json:"time_slot_id"`
	DinnerType      string    `json:"dinner_type"`
	RestaurantName  string    `json:"restaurant_name,omitempty"`
	ReservationDate string    `json:"reservation_date"`
	ReservationTime string    `json:"reservation_time"`
	UserIDs         []string  `json:"user_ids"`
	FormedAt        time.Time `json:"formed_at"`
}

// Publisher delivers domain events.
type Publisher interface {
	PublishGroupFormed(ctx context.Context, event GroupFormedEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishGroupFormed(context.Context, GroupFormedEvent) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []GroupFormedEvent

	// Err, when set, is returned from every publish and nothing is recorded.
	Err error
}

func (r *Recorder) PublishGroupFormed(_ context.Context, event GroupFormedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []GroupFormedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GroupFormedEvent, len(r.events))
	copy(out, r.events)
	return out
}

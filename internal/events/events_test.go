package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestGroupFormedEventJSON(t *testing.T) {
	event := GroupFormedEvent{
		GroupID:         "g-1",
		TimeSlotID:      "slot-1",
		DinnerType:      "regular",
		ReservationDate: "2026-11-05",
		ReservationTime: "19:00",
		UserIDs:         []string{"u-1", "u-2"},
		FormedAt:        time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC),
	}

	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{"group_id", "time_slot_id", "dinner_type", "reservation_date", "reservation_time", "user_ids", "formed_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing key %q in %s", key, body)
		}
	}
	if _, ok := fields["restaurant_name"]; ok {
		t.Errorf("empty restaurant_name should be omitted: %s", body)
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}

	for _, id := range []string{"g-1", "g-2"} {
		if err := rec.PublishGroupFormed(ctx, GroupFormedEvent{GroupID: id}); err != nil {
			t.Fatalf("PublishGroupFormed failed: %v", err)
		}
	}

	got := rec.Events()
	if len(got) != 2 || got[0].GroupID != "g-1" || got[1].GroupID != "g-2" {
		t.Errorf("unexpected events: %+v", got)
	}

	boom := errors.New("broker down")
	rec.Err = boom
	if err := rec.PublishGroupFormed(ctx, GroupFormedEvent{GroupID: "g-3"}); !errors.Is(err, boom) {
		t.Errorf("expected broker error, got %v", err)
	}
	if len(rec.Events()) != 2 {
		t.Errorf("failed publish should not be recorded")
	}

	if err := (NopPublisher{}).PublishGroupFormed(ctx, GroupFormedEvent{}); err != nil {
		t.Errorf("NopPublisher returned %v", err)
	}
}

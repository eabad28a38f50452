package service

import (
	"errors"
	"testing"
	"time"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return t0 }

func TestRegistryCallLifecycle(t *testing.T) {
	r := NewRegistry(0, fixedClock)

	kind, rec, err := r.Apply(model.ConversationUpdate{
		ID:             "A",
		Channel:        model.Ptr(model.ChannelPhone),
		Status:         model.Ptr(model.StatusRinging),
		CounterpartyID: model.Ptr("+1555"),
		StartedAt:      &t0,
	})
	if err != nil {
		t.Fatalf("apply ringing: %v", err)
	}
	if kind != TransitionStarted {
		t.Fatalf("expected started, got %s", kind)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", r.Len())
	}

	kind, rec, err = r.Apply(model.ConversationUpdate{ID: "A", Status: model.Ptr(model.StatusInProgress)})
	if err != nil {
		t.Fatalf("apply in-progress: %v", err)
	}
	if kind != TransitionUpdated {
		t.Fatalf("expected updated, got %s", kind)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 record after merge, got %d", r.Len())
	}
	if rec.CounterpartyID != "+1555" {
		t.Fatalf("counterparty not preserved: %q", rec.CounterpartyID)
	}

	kind, rec, err = r.Apply(model.ConversationUpdate{
		ID:              "A",
		Status:          model.Ptr(model.StatusCompleted),
		DurationSeconds: model.Ptr(42),
	})
	if err != nil {
		t.Fatalf("apply completed: %v", err)
	}
	if kind != TransitionEnded {
		t.Fatalf("expected ended, got %s", kind)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
	if rec.CounterpartyID != "+1555" || rec.DurationSeconds == nil || *rec.DurationSeconds != 42 {
		t.Fatalf("ended record not merged: %+v", rec)
	}
	if _, ok := r.Get("A"); ok {
		t.Fatalf("ended record still retrievable")
	}
}

func TestRegistrySingleShotTerminal(t *testing.T) {
	r := NewRegistry(0, fixedClock)

	kind, rec, err := r.Apply(model.ConversationUpdate{
		ID:             "B",
		Channel:        model.Ptr(model.ChannelSMS),
		Status:         model.Ptr(model.StatusCompleted),
		CounterpartyID: model.Ptr("+1777"),
		StartedAt:      &t0,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if kind != TransitionEnded {
		t.Fatalf("expected ended, got %s", kind)
	}
	if r.Len() != 0 {
		t.Fatalf("single-shot record was inserted")
	}
	if rec.ID != "B" || rec.Channel != model.ChannelSMS {
		t.Fatalf("unexpected synthesized record: %+v", rec)
	}
}

func TestRegistryRejectsIncompleteUpdates(t *testing.T) {
	r := NewRegistry(0, fixedClock)

	tests := []struct {
		name   string
		update model.ConversationUpdate
	}{
		{"missing id", model.ConversationUpdate{Channel: model.Ptr(model.ChannelPhone), Status: model.Ptr(model.StatusRinging)}},
		{"missing status", model.ConversationUpdate{ID: "A", Channel: model.Ptr(model.ChannelPhone)}},
		{"new id without channel", model.ConversationUpdate{ID: "A", Status: model.Ptr(model.StatusRinging)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.Apply(tt.update)
			if !errors.Is(err, ErrIncompleteUpdate) {
				t.Fatalf("expected ErrIncompleteUpdate, got %v", err)
			}
			if r.Len() != 0 {
				t.Fatalf("registry mutated by rejected update")
			}
		})
	}
}

func TestRegistryNoDuplicateStarts(t *testing.T) {
	r := NewRegistry(0, fixedClock)
	start := model.ConversationUpdate{
		ID:      "A",
		Channel: model.Ptr(model.ChannelPhone),
		Status:  model.Ptr(model.StatusRinging),
	}

	if kind, _, _ := r.Apply(start); kind != TransitionStarted {
		t.Fatalf("expected first apply to start, got %s", kind)
	}
	if kind, _, _ := r.Apply(start); kind != TransitionUpdated {
		t.Fatalf("expected repeat to update, got %s", kind)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one record per id, got %d", r.Len())
	}
}

func TestRegistrySnapshotOrderAndIsolation(t *testing.T) {
	r := NewRegistry(0, fixedClock)
	for _, id := range []string{"c", "a", "b"} {
		if _, _, err := r.Apply(model.ConversationUpdate{
			ID:      id,
			Channel: model.Ptr(model.ChannelChat),
			Status:  model.Ptr(model.StatusInProgress),
		}); err != nil {
			t.Fatalf("apply %s: %v", id, err)
		}
	}
	if _, _, err := r.Apply(model.ConversationUpdate{ID: "a", Status: model.Ptr(model.StatusCompleted)}); err != nil {
		t.Fatalf("end a: %v", err)
	}

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].ID != "c" || snap[1].ID != "b" {
		t.Fatalf("unexpected snapshot order: %+v", snap)
	}

	snap[0].Status = model.StatusFailed
	if rec, _ := r.Get("c"); rec.Status != model.StatusInProgress {
		t.Fatalf("snapshot shares memory with registry")
	}
}

func TestRegistryDefaultsStartedAtFromClock(t *testing.T) {
	r := NewRegistry(0, fixedClock)
	_, rec, err := r.Apply(model.ConversationUpdate{
		ID:      "A",
		Channel: model.Ptr(model.ChannelPhone),
		Status:  model.Ptr(model.StatusRinging),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !rec.StartedAt.Equal(t0) {
		t.Fatalf("expected startedAt from clock, got %v", rec.StartedAt)
	}
}

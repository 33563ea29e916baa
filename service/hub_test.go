package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestPublishDeliversToProjectObservers(t *testing.T) {
	hub := NewHub()

	var mu sync.Mutex
	var got []Event
	hub.Subscribe("p1", func(ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		return nil
	})

	var other []Event
	hub.Subscribe("p2", func(ev Event) error {
		other = append(other, ev)
		return nil
	})

	hub.BroadcastProgress("p1", "script", "running", "Generating script...", nil)
	hub.SendCompletion("p1")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 events for p1, got %d", len(got))
	}
	if got[0].Type != EventTypeProgress || got[0].Stage != "script" || got[0].Status != "running" {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	if got[1].Type != EventTypeCompleted || got[1].ProjectID != "p1" {
		t.Errorf("unexpected second event: %+v", got[1])
	}
	if len(other) != 0 {
		t.Errorf("expected no events for p2, got %d", len(other))
	}
}

func TestFailedObserverRemovedOthersUnaffected(t *testing.T) {
	hub := NewHub()

	var healthy []Event
	hub.Subscribe("p1", func(ev Event) error {
		healthy = append(healthy, ev)
		return nil
	})
	hub.Subscribe("p1", func(ev Event) error {
		return errors.New("connection closed")
	})

	if n := hub.ObserverCount("p1"); n != 2 {
		t.Fatalf("expected 2 observers, got %d", n)
	}

	hub.SendError("p1", "stage failed")
	if n := hub.ObserverCount("p1"); n != 1 {
		t.Errorf("expected failed observer removed, count = %d", n)
	}

	hub.SendCompletion("p1")
	if len(healthy) != 2 {
		t.Errorf("expected healthy observer to receive both events, got %d", len(healthy))
	}
}

func TestLastUnsubscribeReleasesGroup(t *testing.T) {
	hub := NewHub()

	a := hub.Subscribe("p1", func(Event) error { return nil })
	b := hub.Subscribe("p1", func(Event) error { return nil })

	hub.Unsubscribe(a)
	if n := hub.ObserverCount("p1"); n != 1 {
		t.Errorf("expected 1 observer after first unsubscribe, got %d", n)
	}
	hub.Unsubscribe(b)
	if n := hub.ObserverCount("p1"); n != 0 {
		t.Errorf("expected 0 observers after last unsubscribe, got %d", n)
	}

	// publishing to a project with no observers is a no-op
	hub.SendCompletion("p1")
	hub.Unsubscribe(nil)
	hub.Unsubscribe(b)
}

func TestHubConcurrentChurn(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			projectID := fmt.Sprintf("p%d", n%2)
			for j := 0; j < 100; j++ {
				o := hub.Subscribe(projectID, func(Event) error { return nil })
				hub.BroadcastProgress(projectID, "script", "running", "working", nil)
				hub.Unsubscribe(o)
			}
		}(i)
	}
	wg.Wait()

	if n := hub.ObserverCount("p0") + hub.ObserverCount("p1"); n != 0 {
		t.Errorf("expected all observers gone after churn, got %d", n)
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sifan077/SnipURL/internal/app/model"
)

// memClickRepository keeps created events in memory so HasClickFromIP answers
// from the actual event history instead of a canned value.
type memClickRepository struct {
	events []model.ClickEvent
}

func (m *memClickRepository) Create(ctx context.Context, event *model.ClickEvent) error {
	m.events = append(m.events, *event)
	return nil
}

func (m *memClickRepository) HasClickFromIP(ctx context.Context, code, ip string) (bool, error) {
	for _, e := range m.events {
		if e.Code == code && e.IP == ip {
			return true, nil
		}
	}
	return false, nil
}

func (m *memClickRepository) Aggregate(ctx context.Context, filter model.ClickFilter) (*model.ClickStats, error) {
	return &model.ClickStats{}, nil
}

func TestClickConsumer_Store_UniqueClickCounting(t *testing.T) {
	var totalBumps, uniqueBumps int64
	mappings := &mockMappingRepository{
		recordClickFn: func(ctx context.Context, code string, at time.Time, unique bool) error {
			totalBumps++
			if unique {
				uniqueBumps++
			}
			return nil
		},
	}
	clicks := &memClickRepository{}
	consumer := NewClickConsumer(nil, nil, clicks, mappings, nil)

	// Five visits from three distinct addresses.
	ips := []string{"203.0.113.1", "203.0.113.2", "203.0.113.1", "203.0.113.3", "203.0.113.2"}
	for i, ip := range ips {
		event := &model.ClickEvent{
			ID:        string(rune('a' + i)),
			Code:      "abc1234",
			IP:        ip,
			Timestamp: time.Now().UTC(),
		}
		if err := consumer.store(context.Background(), event); err != nil {
			t.Fatalf("store returned error on event %d: %v", i, err)
		}
	}

	if totalBumps != 5 {
		t.Fatalf("expected total_clicks bumped 5 times, got %d", totalBumps)
	}
	if uniqueBumps != 3 {
		t.Fatalf("expected unique_clicks bumped 3 times, got %d", uniqueBumps)
	}
	if len(clicks.events) != 5 {
		t.Fatalf("expected 5 persisted events, got %d", len(clicks.events))
	}
}

func TestClickConsumer_Store_UniquePerCode(t *testing.T) {
	var uniqueBumps int
	mappings := &mockMappingRepository{
		recordClickFn: func(ctx context.Context, code string, at time.Time, unique bool) error {
			if unique {
				uniqueBumps++
			}
			return nil
		},
	}
	clicks := &memClickRepository{}
	consumer := NewClickConsumer(nil, nil, clicks, mappings, nil)

	// The same IP is unique once per code, not once globally.
	for _, code := range []string{"aaa1111", "bbb2222"} {
		event := &model.ClickEvent{ID: code, Code: code, IP: "203.0.113.1", Timestamp: time.Now().UTC()}
		if err := consumer.store(context.Background(), event); err != nil {
			t.Fatalf("store returned error: %v", err)
		}
	}

	if uniqueBumps != 2 {
		t.Fatalf("expected one unique bump per code, got %d", uniqueBumps)
	}
}

func TestClickConsumer_Store_EventDurableBeforeCounters(t *testing.T) {
	counterErr := errors.New("connection refused")
	mappings := &mockMappingRepository{
		recordClickFn: func(ctx context.Context, code string, at time.Time, unique bool) error {
			return counterErr
		},
	}
	clicks := &memClickRepository{}
	consumer := NewClickConsumer(nil, nil, clicks, mappings, nil)

	event := &model.ClickEvent{ID: "x", Code: "abc1234", IP: "203.0.113.1", Timestamp: time.Now().UTC()}
	if err := consumer.store(context.Background(), event); err != nil {
		t.Fatalf("expected counter failure to be swallowed, got %v", err)
	}
	if len(clicks.events) != 1 {
		t.Fatal("expected the event row to be persisted despite the counter failure")
	}
}

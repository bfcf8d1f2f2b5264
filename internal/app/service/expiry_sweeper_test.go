package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExpirySweeper_Sweep(t *testing.T) {
	var gotBefore time.Time
	repo := &mockMappingRepository{
		deactivateExpFn: func(ctx context.Context, before time.Time) (int64, error) {
			gotBefore = before
			return 3, nil
		},
	}

	sweeper := NewExpirySweeper(nil, repo, time.Minute)
	sweeper.sweep()

	if gotBefore.IsZero() {
		t.Fatal("expected sweep to run against the current time")
	}
	if time.Since(gotBefore) > time.Second {
		t.Fatalf("expected a recent cutoff, got %v", gotBefore)
	}
}

func TestExpirySweeper_SweepError(t *testing.T) {
	repo := &mockMappingRepository{
		deactivateExpFn: func(ctx context.Context, before time.Time) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}

	// A failing sweep only logs; the next tick retries.
	sweeper := NewExpirySweeper(nil, repo, time.Minute)
	sweeper.sweep()
}

func TestExpirySweeper_StartStop(t *testing.T) {
	sweeper := NewExpirySweeper(nil, &mockMappingRepository{}, time.Hour)
	sweeper.Start()
	sweeper.Stop()
}

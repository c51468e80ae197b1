package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 3, p.err
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler("not a schedule", &countingPurger{}); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestRunPurge(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure is logged", errors.New("db down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &countingPurger{err: tt.err}
			s, err := NewScheduler("@hourly", p)
			if err != nil {
				t.Fatal(err)
			}
			s.RunPurge()
			if got := p.calls.Load(); got != 1 {
				t.Errorf("calls = %d, want 1", got)
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler("@every 1h", &countingPurger{})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Stop(context.Background())
}

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prankline/prankline/internal/database/models"
)

type stubSessions map[models.SessionState]int64

func (s stubSessions) CountByState(context.Context) (map[models.SessionState]int64, error) {
	return s, nil
}

type stubWorkers int

func (s stubWorkers) ActiveCount() int { return int(s) }

func TestCollector(t *testing.T) {
	col := NewCollector(stubSessions{
		models.StatePlayingAudio: 2,
		models.StateCompleted:    5,
	}, stubWorkers(2), time.Now().Add(-time.Minute))

	reg := prometheus.NewRegistry()
	if err := reg.Register(col); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	byName := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += "{" + l.GetValue() + "}"
			}
			byName[key] = m.GetGauge().GetValue()
		}
	}

	if got := byName["prankline_sessions{PLAYING_AUDIO}"]; got != 2 {
		t.Errorf("sessions{PLAYING_AUDIO} = %v, want 2", got)
	}
	if got := byName["prankline_sessions{COMPLETED}"]; got != 5 {
		t.Errorf("sessions{COMPLETED} = %v, want 5", got)
	}
	// States with no rows still get a zero-valued series.
	if got, ok := byName["prankline_sessions{FAILED}"]; !ok || got != 0 {
		t.Errorf("sessions{FAILED} = %v (present %v), want 0", got, ok)
	}
	if got := byName["prankline_timeout_workers_active"]; got != 2 {
		t.Errorf("timeout_workers_active = %v, want 2", got)
	}
	if got := byName["prankline_uptime_seconds"]; got < 59 {
		t.Errorf("uptime_seconds = %v, want >= 59", got)
	}
}

func TestCollectorNilProviders(t *testing.T) {
	col := NewCollector(nil, nil, time.Now())

	reg := prometheus.NewRegistry()
	if err := reg.Register(col); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

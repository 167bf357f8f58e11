// Package scheduler serializes actions through a single active slot fed by
// two FIFO lanes. Urgent work (user requests, event reactions) always runs
// as soon as the slot frees; patient work (periodic and scheduled syncs)
// additionally waits for the gate, which the service closes during playback.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/actions"
	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/metrics"
)

// Lane names, also used as the queue-depth metric label.
const (
	LaneUrgent  = "urgent"
	LanePatient = "patient"
)

// bulkTypes are deduplicated on enqueue: a second full-library run of the
// same kind while one is already active or waiting is pointless work.
var bulkTypes = map[string]bool{
	actions.TypeSyncAll:   true,
	actions.TypeImportAll: true,
	actions.TypeExportAll: true,
}

// Gate reports whether patient work may start right now.
type Gate func() bool

// Scheduler holds the two lanes and the active slot. It is driven entirely
// from the service loop goroutine; the only cross-goroutine surface is the
// read-only Snapshot, which is published under its own lock.
type Scheduler struct {
	urgent  []actions.Action
	patient []actions.Action
	active  actions.Action
	gate    Gate

	notifier actions.Notifier
	logger   zerolog.Logger

	snapMu sync.Mutex
	snap   Snapshot
}

// Snapshot is a point-in-time view of the scheduler for the status endpoint.
type Snapshot struct {
	Active   string
	Awaiting string
	Urgent   int
	Patient  int
}

// New creates a scheduler. A nil gate keeps the patient lane always open.
func New(gate Gate, notifier actions.Notifier) *Scheduler {
	if gate == nil {
		gate = func() bool { return true }
	}
	return &Scheduler{
		gate:     gate,
		notifier: notifier,
		logger:   log.WithComponent("scheduler"),
	}
}

// Enqueue appends an action to a lane. A bulk action already active or
// waiting in either lane absorbs the new request, so at most one instance of
// each bulk kind exists across the active slot and both lanes.
func (s *Scheduler) Enqueue(action actions.Action, patient bool) {
	if bulkTypes[action.Type()] && s.holds(action.Type()) {
		s.logger.Debug().
			Str(log.FieldAction, action.Type()).
			Str("event", "scheduler.deduplicated").
			Msg("bulk action already queued")
		return
	}

	lane := LaneUrgent
	if patient {
		lane = LanePatient
		s.patient = append(s.patient, action)
	} else {
		s.urgent = append(s.urgent, action)
	}
	metrics.QueueDepth.WithLabelValues(lane).Set(float64(s.laneLen(lane)))
	s.publish()

	s.logger.Debug().
		Str(log.FieldAction, action.Type()).
		Str(log.FieldLane, lane).
		Str("event", "scheduler.enqueued").
		Msg("action queued")
}

// Snapshot returns the last published scheduler state. Safe to call from any
// goroutine.
func (s *Scheduler) Snapshot() Snapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.snap
}

// publish refreshes the cross-goroutine snapshot. Called only from the loop
// goroutine that owns the queues.
func (s *Scheduler) publish() {
	snap := Snapshot{Urgent: len(s.urgent), Patient: len(s.patient)}
	if s.active != nil {
		snap.Active = s.active.Type()
		snap.Awaiting = s.active.Awaiting()
	}
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

// holds reports whether an instance of the type is anywhere in the
// scheduler: the active slot or either lane.
func (s *Scheduler) holds(actionType string) bool {
	if s.active != nil && s.active.Type() == actionType {
		return true
	}
	for _, a := range s.urgent {
		if a.Type() == actionType {
			return true
		}
	}
	for _, a := range s.patient {
		if a.Type() == actionType {
			return true
		}
	}
	return false
}

// Pump runs queued actions until the active one suspends, the lanes drain,
// or only gated patient work remains.
func (s *Scheduler) Pump(ctx context.Context) {
	defer s.publish()
	for {
		if s.active == nil && !s.promote() {
			return
		}
		if !s.runActive(ctx, nil) {
			return
		}
	}
}

// Deliver hands a host notification to the suspended active action. Returns
// true when the notification was consumed. An unmatched or mismatched
// payload leaves the action suspended.
func (s *Scheduler) Deliver(ctx context.Context, method string, payload json.RawMessage) bool {
	if s.active == nil || s.active.Awaiting() != method {
		return false
	}
	if s.runActive(ctx, payload) {
		s.Pump(ctx)
	} else {
		s.publish()
	}
	return true
}

// Awaiting returns the notification the active action is suspended on, or
// empty when nothing is suspended.
func (s *Scheduler) Awaiting() string {
	if s.active == nil {
		return ""
	}
	return s.active.Awaiting()
}

// ActiveType returns the active action's type, or empty when idle.
func (s *Scheduler) ActiveType() string {
	if s.active == nil {
		return ""
	}
	return s.active.Type()
}

// Len returns the number of actions waiting in a lane.
func (s *Scheduler) Len(lane string) int {
	return s.laneLen(lane)
}

// Idle reports whether nothing is active and both lanes are empty.
func (s *Scheduler) Idle() bool {
	return s.active == nil && len(s.urgent) == 0 && len(s.patient) == 0
}

// promote moves the next eligible queued action into the active slot.
func (s *Scheduler) promote() bool {
	switch {
	case len(s.urgent) > 0:
		s.active = s.urgent[0]
		s.urgent = s.urgent[1:]
		metrics.QueueDepth.WithLabelValues(LaneUrgent).Set(float64(len(s.urgent)))
	case len(s.patient) > 0 && s.gate():
		s.active = s.patient[0]
		s.patient = s.patient[1:]
		metrics.QueueDepth.WithLabelValues(LanePatient).Set(float64(len(s.patient)))
	default:
		return false
	}

	s.logger.Info().
		Str(log.FieldAction, s.active.Type()).
		Str("event", "scheduler.started").
		Msg("action started")
	return true
}

// runActive advances the active action one step. Returns true when the slot
// freed up (completion or failure), false when the action suspended.
func (s *Scheduler) runActive(ctx context.Context, payload json.RawMessage) bool {
	action := s.active
	done, err := action.Run(ctx, payload)

	if err != nil {
		s.active = nil
		metrics.ActionsTotal.WithLabelValues(action.Type(), "failure").Inc()
		s.logger.Error().
			Err(err).
			Str(log.FieldAction, action.Type()).
			Str("event", "scheduler.failed").
			Msg("action failed")

		var actionErr *actions.Error
		if s.notifier != nil && errors.As(err, &actionErr) {
			s.notifier.Notify(actionErr.Notification, actionErr.Message)
		}
		return true
	}

	if !done {
		if action.Awaiting() == "" {
			// A suspension must name its wake-up event or the slot would
			// stall forever.
			s.active = nil
			s.logger.Warn().
				Str(log.FieldAction, action.Type()).
				Str("event", "scheduler.stalled").
				Msg("action suspended without awaiting, dropped")
			return true
		}
		s.logger.Debug().
			Str(log.FieldAction, action.Type()).
			Str(log.FieldAwaiting, action.Awaiting()).
			Str("event", "scheduler.suspended").
			Msg("action awaiting notification")
		return false
	}

	s.active = nil
	metrics.ActionsTotal.WithLabelValues(action.Type(), "success").Inc()
	s.logger.Info().
		Str(log.FieldAction, action.Type()).
		Str("event", "scheduler.finished").
		Msg("action finished")
	return true
}

func (s *Scheduler) laneLen(lane string) int {
	if lane == LanePatient {
		return len(s.patient)
	}
	return len(s.urgent)
}

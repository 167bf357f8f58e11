// Package service is the engine's long-lived event loop. It drains the host
// notification stream serially, applies the configured triggers, maintains
// the periodic and post-playback alarms, and drives the scheduler. All
// scheduler and store access happens on the loop goroutine; the only
// concurrency is the alarms and the listener, both of which re-enter through
// the bus.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/actions"
	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/kodi"
	"github.com/nfosync/nfosync/internal/lastknown"
	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/media"
	"github.com/nfosync/nfosync/internal/progress"
	"github.com/nfosync/nfosync/internal/scheduler"
	"github.com/nfosync/nfosync/internal/timestamps"
	"github.com/nfosync/nfosync/internal/utcdt"
)

// scheduleCheckInterval is how often the loop re-checks the clock-based
// schedule while otherwise idle.
const scheduleCheckInterval = time.Minute

// HostClient is the slice of the host client the service needs: gateway RPC,
// bus broadcasts and the playback probe.
type HostClient interface {
	media.RPC
	NotifyAll(ctx context.Context, message string, data any) error
	IsPlaying(ctx context.Context) bool
}

// Options wire a Service together.
type Options struct {
	Config     *config.Holder
	Client     HostClient
	Listener   *kodi.Listener
	Progress   *progress.Registry
	AppName    string
	AppVersion string
}

// Service owns the event loop and everything it drives.
type Service struct {
	cfg      *config.Holder
	client   HostClient
	listener *kodi.Listener
	sched    *scheduler.Scheduler
	env      *actions.Env

	lastKnown *lastknown.Store
	stamps    *timestamps.Store

	periodic *Alarm
	playWait *Alarm

	// prev is the settings snapshot the loop last acted on, used to detect
	// which knobs a reload actually changed.
	prev config.Settings

	logger zerolog.Logger
}

// New builds a Service and its collaborators from resolved options.
func New(opts Options) *Service {
	settings := opts.Config.Get()

	s := &Service{
		cfg:       opts.Config,
		client:    opts.Client,
		listener:  opts.Listener,
		lastKnown: lastknown.Open(settings.ProfileDir),
		stamps:    timestamps.Open(settings.ProfileDir),
		prev:      settings,
		logger:    log.WithComponent("service"),
	}

	notifier := newBusNotifier(opts.Client, opts.Config.Get, opts.AppName)
	s.env = &actions.Env{
		Gateway:    media.NewGateway(opts.Client),
		LastKnown:  s.lastKnown,
		Timestamps: s.stamps,
		Settings:   opts.Config.Get,
		Progress:   opts.Progress,
		Notifier:   notifier,
		AppName:    opts.AppName,
		AppVersion: opts.AppVersion,
	}

	s.periodic = NewAlarm("periodic", kodi.MethodSyncAll, map[string]any{"patient": true}, true, s.sendBus)
	s.playWait = NewAlarm("play_wait", kodi.MethodWaitDone, nil, false, s.sendBus)

	s.sched = scheduler.New(s.patientGate, notifier)
	return s
}

// Env exposes the action environment, mainly for wiring the status server.
func (s *Service) Env() *actions.Env { return s.env }

// Scheduler exposes queue state for the status server.
func (s *Service) Scheduler() *scheduler.Scheduler { return s.sched }

// LastSync returns the current sync watermark.
func (s *Service) LastSync() time.Time { return s.stamps.LastSync() }

// Run executes the event loop until ctx is cancelled. On exit the current
// action is abandoned in place and pending store mutations are flushed.
func (s *Service) Run(ctx context.Context) error {
	settingsCh := make(chan config.Settings, 1)
	s.cfg.Subscribe(settingsCh)

	s.startUp(ctx)

	ticker := time.NewTicker(scheduleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()

		case n, ok := <-s.listener.Notifications():
			if !ok {
				s.shutdown()
				return nil
			}
			s.onNotification(ctx, n)

		case settings := <-settingsCh:
			s.onSettingsChanged(ctx, settings)

		case <-ticker.C:
			s.checkSchedule(ctx)
		}
	}
}

func (s *Service) startUp(ctx context.Context) {
	settings := s.cfg.Get()
	log.SetVerbose(settings.UI.IsLoggingVerbose)

	switch {
	case settings.Triggers.SyncOnStart:
		s.logger.Info().Str("event", "service.sync_on_start").Msg("startup sync")
		s.sched.Enqueue(actions.NewSyncAll(s.env, false), false)
	case s.scheduledSyncDue(settings):
		if settings.Scheduled.RunMissedSyncs {
			s.logger.Info().Str("event", "service.missed_sync").Msg("running missed scheduled sync")
			s.sched.Enqueue(actions.NewSyncAll(s.env, false), false)
		}
	}

	if settings.Scheduled.IsEnabled {
		s.updateSchedule(settings)
	}
	if minutes := settings.Periodic.PeriodMinutes(); minutes > 0 {
		s.periodic.Set(minutes)
	}

	s.sched.Pump(ctx)
}

func (s *Service) shutdown() {
	s.periodic.Cancel()
	s.playWait.Cancel()
	if err := s.lastKnown.WriteChanges(); err != nil {
		s.logger.Error().
			Err(err).
			Str("event", "service.final_flush_failed").
			Msg("pending change-detection state lost")
	}
	s.logger.Info().Str("event", "service.stopped").Msg("service stopped")
}

// onNotification is the single ingress for bus events. Dispatch stops at the
// first matching rule; resuming a suspended action always wins.
func (s *Service) onNotification(ctx context.Context, n kodi.Notification) {
	s.logger.Debug().
		Str(log.FieldMethod, n.Method).
		Str("sender", n.Sender).
		Str("event", "service.notification").
		Msg("bus notification")

	if s.sched.Awaiting() == n.Method {
		s.sched.Deliver(ctx, n.Method, n.Data)
		return
	}

	settings := s.cfg.Get()

	switch n.Method {
	case kodi.MethodSyncAll.Recv():
		s.sched.Enqueue(actions.NewSyncAll(s.env, false), parsePatient(n.Data))

	case kodi.MethodSyncOne.Recv():
		if item, patient, ok := parseBusItem(n.Data); ok {
			s.sched.Enqueue(actions.NewSyncOne(s.env, item), patient)
		}

	case kodi.MethodImportAll.Recv():
		s.sched.Enqueue(actions.NewImportAll(s.env), parsePatient(n.Data))

	case kodi.MethodExportOne.Recv():
		if item, patient, ok := parseBusItem(n.Data); ok {
			s.sched.Enqueue(actions.NewExportOne(s.env, item), patient)
		}

	case kodi.MethodExportAll.Recv():
		s.sched.Enqueue(actions.NewExportAll(s.env), parsePatient(n.Data))

	case kodi.MethodWaitDone.Recv():
		s.playWait.Cancel()

	case kodi.OnPlay:
		s.playWait.Cancel()

	case kodi.OnStop:
		if wait := settings.Avoidance.WaitTime; wait > 0 {
			s.playWait.Set(wait)
		} else {
			s.sendBus(kodi.MethodWaitDone, nil)
		}

	case kodi.OnUpdate:
		if settings.Triggers.ExportOnUpdate {
			s.onLibraryUpdate(ctx, settings, n.Data)
		}

	case kodi.OnScanFinished:
		if settings.Triggers.SyncOnScan {
			s.sched.Enqueue(actions.NewSyncAll(s.env, true), true)
		}
	}

	s.sched.Pump(ctx)
}

// onLibraryUpdate handles a host-side item update. Updates caused by our own
// refreshes (and plain additions, when configured) must not bounce back as
// exports; instead the item's current checksum is recorded so the next sync
// pass sees it as unchanged.
func (s *Service) onLibraryUpdate(ctx context.Context, settings config.Settings, payload json.RawMessage) {
	var data struct {
		Item struct {
			Type string  `json:"type"`
			ID   *uint32 `json:"id"`
		} `json:"item"`
		Added       bool `json:"added"`
		Transaction bool `json:"transaction"`
	}
	if err := json.Unmarshal(payload, &data); err != nil || data.Item.ID == nil {
		return
	}
	mediaType, err := media.ParseType(data.Item.Type)
	if err != nil {
		return
	}
	item := media.Item{Type: mediaType, ID: *data.Item.ID}

	if data.Added && (settings.Triggers.IgnoresAddUpdate || !data.Transaction) {
		checksum, err := s.env.Gateway.NewInfo(item).Checksum(ctx)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str(log.FieldMediaType, string(item.Type)).
				Uint32(log.FieldMediaID, item.ID).
				Str("event", "service.echo_checksum_failed").
				Msg("cannot record checksum for suppressed update")
			return
		}
		s.lastKnown.SetChecksum(item.Type, item.ID, checksum)
		s.logger.Debug().
			Str(log.FieldMediaType, string(item.Type)).
			Uint32(log.FieldMediaID, item.ID).
			Str("event", "service.update_suppressed").
			Msg("update recorded without export")
		return
	}

	s.sched.Enqueue(actions.NewExportOne(s.env, item), false)
}

// onSettingsChanged reacts to a config reload: verbosity, alarm intervals and
// the schedule may all have moved, and a newly opened patient gate may allow
// queued work to start.
func (s *Service) onSettingsChanged(ctx context.Context, settings config.Settings) {
	s.logger.Info().Str("event", "service.settings_changed").Msg("applying new settings")
	log.SetVerbose(settings.UI.IsLoggingVerbose)

	if settings.Periodic.PeriodMinutes() != s.prev.Periodic.PeriodMinutes() {
		s.periodic.Set(settings.Periodic.PeriodMinutes())
	}
	if s.playWait.IsActive() && settings.Avoidance.WaitTime != s.prev.Avoidance.WaitTime {
		s.playWait.Set(settings.Avoidance.WaitTime)
	}
	if settings.Scheduled.IsEnabled {
		s.updateSchedule(settings)
	}

	s.prev = settings
	s.sched.Pump(ctx)
}

func (s *Service) checkSchedule(ctx context.Context) {
	settings := s.cfg.Get()
	if !s.scheduledSyncDue(settings) {
		return
	}
	s.logger.Info().Str("event", "service.scheduled_sync").Msg("scheduled sync due")
	s.sched.Enqueue(actions.NewSyncAll(s.env, false), true)
	s.updateSchedule(settings)
	s.sched.Pump(ctx)
}

func (s *Service) scheduledSyncDue(settings config.Settings) bool {
	return settings.Scheduled.IsEnabled && !utcdt.LocalNow().Before(s.stamps.NextScheduled())
}

func (s *Service) updateSchedule(settings config.Settings) {
	// The schedule is configured as local wall time.
	next, err := NextScheduledTime(utcdt.LocalNow(), settings.Scheduled)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("event", "service.schedule_invalid").
			Msg("cannot compute next scheduled sync")
		return
	}
	s.stamps.SetNextScheduled(next)
	s.logger.Info().
		Time("next", next).
		Str("event", "service.schedule_updated").
		Msg("next scheduled sync")
}

// patientGate reports whether patient work may start: not during playback
// (when avoidance is on) and not while the post-stop wait is pending.
func (s *Service) patientGate() bool {
	if s.playWait.IsActive() {
		return false
	}
	settings := s.cfg.Get()
	if !settings.Avoidance.IsEnabled {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return !s.client.IsPlaying(ctx)
}

// sendBus broadcasts an internal message so it re-enters through the
// listener, keeping alarm effects serialized with host events.
func (s *Service) sendBus(message kodi.Method, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.NotifyAll(ctx, message.Send(), payload); err != nil {
		s.logger.Warn().
			Err(err).
			Str(log.FieldMethod, message.Send()).
			Str("event", "service.bus_send_failed").
			Msg("bus broadcast failed")
	}
}

func parsePatient(payload json.RawMessage) bool {
	var data struct {
		Patient bool `json:"patient"`
	}
	if len(payload) == 0 || json.Unmarshal(payload, &data) != nil {
		return false
	}
	return data.Patient
}

func parseBusItem(payload json.RawMessage) (media.Item, bool, bool) {
	var data struct {
		Type    string  `json:"type"`
		ID      *uint32 `json:"id"`
		Patient bool    `json:"patient"`
	}
	if err := json.Unmarshal(payload, &data); err != nil || data.ID == nil {
		return media.Item{}, false, false
	}
	mediaType, err := media.ParseType(data.Type)
	if err != nil {
		return media.Item{}, false, false
	}
	return media.Item{Type: mediaType, ID: *data.ID}, data.Patient, true
}

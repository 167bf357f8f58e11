package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/kodi"
	"github.com/nfosync/nfosync/internal/log"
)

// Alarm is a named, cancellable, optionally looping timer. Firing broadcasts
// a bus message rather than calling into the service directly, so the effect
// arrives through the listener and stays serialized with every other event.
type Alarm struct {
	name    string
	message kodi.Method
	payload any
	loop    bool
	send    func(message kodi.Method, payload any)
	logger  zerolog.Logger

	mu      sync.Mutex
	minutes int
	timer   *time.Timer
}

// NewAlarm creates an unarmed alarm. send is invoked from the timer
// goroutine and must be safe to call concurrently.
func NewAlarm(name string, message kodi.Method, payload any, loop bool, send func(kodi.Method, any)) *Alarm {
	return &Alarm{
		name:    name,
		message: message,
		payload: payload,
		loop:    loop,
		send:    send,
		logger:  log.WithComponent("alarm"),
	}
}

// Set arms the alarm, replacing any previous arming. minutes <= 0 just
// cancels.
func (a *Alarm) Set(minutes int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	if minutes <= 0 {
		return
	}
	a.minutes = minutes
	a.timer = time.AfterFunc(time.Duration(minutes)*time.Minute, a.fire)

	a.logger.Debug().
		Str("alarm", a.name).
		Int("minutes", minutes).
		Bool("loop", a.loop).
		Str("event", "alarm.set").
		Msg("alarm armed")
}

// Cancel disarms the alarm.
func (a *Alarm) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.minutes > 0 {
		a.logger.Debug().
			Str("alarm", a.name).
			Str("event", "alarm.canceled").
			Msg("alarm canceled")
	}
	a.cancelLocked()
}

// IsActive reports whether the alarm is armed. A single-shot alarm
// deactivates when it fires; a looping alarm stays active.
func (a *Alarm) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.minutes > 0
}

// Minutes returns the currently armed interval, 0 when disarmed.
func (a *Alarm) Minutes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.minutes
}

func (a *Alarm) cancelLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.minutes = 0
}

func (a *Alarm) fire() {
	a.mu.Lock()
	if a.loop && a.minutes > 0 {
		a.timer = time.AfterFunc(time.Duration(a.minutes)*time.Minute, a.fire)
	} else {
		a.minutes = 0
		a.timer = nil
	}
	a.mu.Unlock()

	a.logger.Debug().
		Str("alarm", a.name).
		Str("event", "alarm.fired").
		Msg("alarm fired")
	a.send(a.message, a.payload)
}

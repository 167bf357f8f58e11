// Package actions implements the engine's resumable units of work. An action
// either completes synchronously, or suspends by naming the host notification
// it needs; the scheduler redelivers that notification and the action picks
// up where it left off. Phased actions compose sub-actions through a lazy
// pull iterator, so bulk work never materializes the whole item list of
// actions up front.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/lastknown"
	"github.com/nfosync/nfosync/internal/media"
	"github.com/nfosync/nfosync/internal/progress"
	"github.com/nfosync/nfosync/internal/timestamps"
)

// Action type names, used for queue deduplication and logging.
const (
	TypeSyncAll      = "Sync All"
	TypeSyncOne      = "Sync One"
	TypeImportAll    = "Import All"
	TypeImportOne    = "Import One"
	TypeExportAll    = "Export All"
	TypeExportOne    = "Export One"
	TypeClean        = "Clean"
	TypeScan         = "Scan"
	TypeWriteChanges = "Write Changes"
)

// Notification codes carried by graceful failures. The values are message
// identifiers from the addon's localized string table and stay stable so
// dashboards and user notifications keep their meaning.
const (
	CodeImportFailed      = 32007
	CodeExportFailed      = 32043
	CodeSyncAllFailed     = 32064
	CodeExportAllFailures = 32073
	CodeBadInvocation     = 32074
	CodeImportAllFailed   = 32085
	CodeSyncOneFailed     = 32086
)

// Action is a resumable unit of work.
//
// Run performs work until completion or a suspension point. done=false means
// the action has set Awaiting to the notification it needs and keeps the
// active slot; the scheduler calls Run again with that notification's
// payload. Payloads are forwarded exactly once.
type Action interface {
	Run(ctx context.Context, payload json.RawMessage) (done bool, err error)
	Awaiting() string
	Type() string
}

// Error is a graceful, reportable action failure. Anything else bubbling out
// of an action is fatal to the current action tree.
type Error struct {
	Notification int
	Message      string
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a graceful failure with a user-notification code.
func NewError(notification int, message string, cause error) *Error {
	return &Error{Notification: notification, Message: message, Err: cause}
}

// Notifier delivers user-facing notifications (distinct from logging).
type Notifier interface {
	Notify(code int, message string)
}

// Env bundles the collaborators every action needs. One Env is built at
// service start and shared; only one action runs at a time, so none of these
// need locking.
type Env struct {
	Gateway    *media.Gateway
	LastKnown  *lastknown.Store
	Timestamps *timestamps.Store
	Settings   func() config.Settings
	Progress   *progress.Registry
	Notifier   Notifier
	AppName    string
	AppVersion string
}

// requestResponse is the shared suspension bookkeeping for actions that send
// one host request and wait for one named notification.
type requestResponse struct {
	awaiting string
}

func (r *requestResponse) Awaiting() string { return r.awaiting }

// phaseIter pulls the next sub-action. A nil action means the sequence is
// exhausted. Errors from the iterator are treated like sub-action errors.
type phaseIter func(ctx context.Context) (Action, error)

// phased drives an ordered sequence of sub-actions. A suspending sub-action
// suspends the whole tree; the resumption payload is forwarded to it once.
type phased struct {
	typeName string
	awaiting string
	active   Action
	next     phaseIter

	// wrapErr translates a graceful sub-action failure into this action's
	// own notification code. nil re-raises unchanged.
	wrapErr func(*Error) error
	// cleanup runs once on completion or failure (closing progress, etc.).
	cleanup func()
}

func (p *phased) Type() string     { return p.typeName }
func (p *phased) Awaiting() string { return p.awaiting }

func (p *phased) Run(ctx context.Context, payload json.RawMessage) (bool, error) {
	done, err := p.runPhases(ctx, payload)
	if err != nil {
		p.awaiting = ""
		p.runCleanup()
		return false, err
	}
	if done {
		p.runCleanup()
	}
	return done, nil
}

func (p *phased) runPhases(ctx context.Context, payload json.RawMessage) (bool, error) {
	for {
		if p.active == nil {
			next, err := p.next(ctx)
			if err != nil {
				return false, p.translate(err)
			}
			if next == nil {
				return true, nil
			}
			p.active = next
		}

		done, err := p.active.Run(ctx, payload)
		payload = nil
		if err != nil {
			return false, p.translate(err)
		}

		if !done {
			p.awaiting = p.active.Awaiting()
			return false, nil
		}
		p.active = nil
		p.awaiting = ""
	}
}

func (p *phased) translate(err error) error {
	var actionErr *Error
	if p.wrapErr != nil && errors.As(err, &actionErr) {
		return p.wrapErr(actionErr)
	}
	return err
}

func (p *phased) runCleanup() {
	if p.cleanup != nil {
		p.cleanup()
		p.cleanup = nil
	}
}

// phasesOf adapts a fixed slice of actions into a pull iterator.
func phasesOf(actions ...Action) phaseIter {
	i := 0
	return func(context.Context) (Action, error) {
		if i >= len(actions) {
			return nil, nil
		}
		a := actions[i]
		i++
		return a, nil
	}
}

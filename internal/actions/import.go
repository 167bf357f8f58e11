package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nfosync/nfosync/internal/kodi"
	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/media"
	"github.com/nfosync/nfosync/internal/metrics"
	"github.com/nfosync/nfosync/internal/progress"
)

// ImportOne asks the host to re-read one item from its sidecar, then waits
// for the host to confirm. A show refresh finishes with an update
// notification; movies and episodes are removed and re-added, so the removal
// notification is the completion signal.
type ImportOne struct {
	requestResponse
	env  *Env
	item media.Item
}

// NewImportOne creates a refresh-and-wait import for an item.
func NewImportOne(env *Env, item media.Item) *ImportOne {
	return &ImportOne{env: env, item: item}
}

func (a *ImportOne) Type() string { return TypeImportOne }

func (a *ImportOne) Run(ctx context.Context, payload json.RawMessage) (bool, error) {
	if a.awaiting == "" {
		if err := a.env.Gateway.Refresh(ctx, a.item); err != nil {
			return false, NewError(CodeImportFailed,
				fmt.Sprintf("refresh failed for %s %d", a.item.Type, a.item.ID), err)
		}
		metrics.ImportsTotal.WithLabelValues(string(a.item.Type)).Inc()

		if a.item.Type == media.TypeTVShow {
			a.awaiting = kodi.OnUpdate
		} else {
			a.awaiting = kodi.OnRemove
		}
		logger := log.WithComponent("actions")
		logger.Debug().
			Str(log.FieldMediaType, string(a.item.Type)).
			Uint32(log.FieldMediaID, a.item.ID).
			Str(log.FieldAwaiting, a.awaiting).
			Str("event", "import.refreshing").
			Msg("refresh requested")
		return false, nil
	}

	// Resumed: the host emits these notifications for unrelated items too,
	// so stay suspended until the id matches.
	if id, ok := notificationItemID(payload); !ok || id != a.item.ID {
		return false, nil
	}
	a.awaiting = ""
	return true, nil
}

// notificationItemID extracts the library id from an update or removal
// notification payload. Updates nest the id under "item"; removals carry it
// at the top level.
func notificationItemID(payload json.RawMessage) (uint32, bool) {
	var data struct {
		ID   *uint32 `json:"id"`
		Item *struct {
			ID *uint32 `json:"id"`
		} `json:"item"`
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		return 0, false
	}
	if data.Item != nil && data.Item.ID != nil {
		return *data.Item.ID, true
	}
	if data.ID != nil {
		return *data.ID, true
	}
	return 0, false
}

// ImportAll refreshes every library item from its sidecar, one sub-import at
// a time. A refresh failure aborts the run.
type ImportAll struct {
	phased
}

// NewImportAll creates a full-library import.
func NewImportAll(env *Env) *ImportAll {
	a := &ImportAll{}
	sink := env.Progress.NewSink("Importing", true)
	a.typeName = TypeImportAll
	a.next = importAllPhases(env, sink)
	a.cleanup = sink.Close
	a.wrapErr = func(err *Error) error {
		return NewError(CodeImportAllFailed, "import all failed", err)
	}
	return a
}

func importAllPhases(env *Env, sink progress.Sink) phaseIter {
	typeIdx := 0
	var items []media.Item
	itemIdx := 0

	return func(ctx context.Context) (Action, error) {
		for !sink.IsCanceled() {
			if items == nil {
				if typeIdx >= len(media.LibraryTypes) {
					return nil, nil
				}
				fetched, err := env.Gateway.All(ctx, media.LibraryTypes[typeIdx])
				if err != nil {
					return nil, err
				}
				items = fetched
				itemIdx = 0
			}
			if itemIdx >= len(items) {
				items = nil
				typeIdx++
				continue
			}

			item := items[itemIdx]
			itemIdx++
			sink.Step(string(item.Type), itemIdx, len(items))
			return NewImportOne(env, item), nil
		}
		return nil, nil
	}
}

package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nfosync/nfosync/internal/kodi"
	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/media"
	"github.com/nfosync/nfosync/internal/metrics"
	"github.com/nfosync/nfosync/internal/progress"
	"github.com/nfosync/nfosync/internal/utcdt"
)

// SyncOne reconciles one item between library and sidecar. The direction is
// decided by change detection: the host checksum against the last known
// checksum, and the sidecar mtime against the later of the last known mtime
// and the last sync watermark. When both sides changed, import-first mode
// imports and then exports without overwriting, so hand edits win; otherwise
// it exports first and the import picks the result back up.
type SyncOne struct {
	phased
}

// NewSyncOne creates a single-item sync for an item. A standalone sync always
// considers both directions; the sync.should_import/should_export toggles
// scope the phases of a full-library sync only.
func NewSyncOne(env *Env, item media.Item) *SyncOne {
	return newSyncOneScoped(env, item, true, true)
}

func newSyncOneScoped(env *Env, item media.Item, allowImport, allowExport bool) *SyncOne {
	a := &SyncOne{}
	a.typeName = TypeSyncOne
	a.next = syncOnePhases(env, item, allowImport, allowExport)
	a.wrapErr = func(err *Error) error {
		return NewError(CodeSyncOneFailed,
			fmt.Sprintf("sync failed for %s %d", item.Type, item.ID), err)
	}
	return a
}

func syncOnePhases(env *Env, item media.Item, allowImport, allowExport bool) phaseIter {
	var plan []Action
	planned := false

	return func(ctx context.Context) (Action, error) {
		if !planned {
			planned = true
			built, err := buildSyncOnePlan(ctx, env, item, allowImport, allowExport)
			if err != nil {
				return nil, err
			}
			plan = built
		}
		if len(plan) == 0 {
			return nil, nil
		}
		next := plan[0]
		plan = plan[1:]
		return next, nil
	}
}

// buildSyncOnePlan inspects both sides of an item and decides which
// sub-actions to run. Returns an empty plan when nothing changed.
func buildSyncOnePlan(ctx context.Context, env *Env, item media.Item, allowImport, allowExport bool) ([]Action, error) {
	settings := env.Settings()
	info := env.Gateway.NewInfo(item)

	shouldExport := false
	if allowExport {
		checksum, err := info.Checksum(ctx)
		if err != nil {
			return nil, err
		}
		known, ok := env.LastKnown.Checksum(item.Type, item.ID)
		shouldExport = !ok || checksum != known
	}

	shouldImport := false
	if allowImport {
		file, err := info.File(ctx)
		if err != nil {
			return nil, err
		}
		if path, found := media.FindNFO(item.Type, file); found {
			if mtime, ok := env.Gateway.ModTime(ctx, path); ok {
				threshold := env.Timestamps.LastSync()
				if knownMtime, ok := env.LastKnown.Timestamp(item.Type, item.ID); ok && knownMtime.After(threshold) {
					threshold = knownMtime
				}
				shouldImport = mtime.After(threshold)
			}
		}
	}

	logger := log.WithComponent("actions")
	logger.Debug().
		Str(log.FieldMediaType, string(item.Type)).
		Uint32(log.FieldMediaID, item.ID).
		Bool("should_import", shouldImport).
		Bool("should_export", shouldExport).
		Str("event", "sync.decision").
		Msg("change detection")

	var plan []Action
	switch {
	case shouldImport && shouldExport:
		if settings.Sync.ShouldImportFirst {
			noOverwrite := false
			plan = append(plan,
				NewImportOne(env, item),
				newExportOneSubtask(env, info, &noOverwrite))
		} else {
			plan = append(plan,
				newExportOneSubtask(env, info, nil),
				NewImportOne(env, item))
		}
	case shouldImport:
		plan = append(plan, NewImportOne(env, item))
	case shouldExport:
		plan = append(plan, newExportOneSubtask(env, info, nil))
	}
	if len(plan) > 0 {
		plan = append(plan, newWriteChanges(env))
	}
	return plan, nil
}

// SyncAll is the full reconciliation pass: optional library clean, per-item
// change sync across all media types, optional source scan, and a final
// flush of change-detection state.
type SyncAll struct {
	phased
}

// NewSyncAll creates a full-library sync. skipScan suppresses the trailing
// source scan even when scanning is enabled, which the service uses when the
// sync itself was triggered by a finished scan.
func NewSyncAll(env *Env, skipScan bool) *SyncAll {
	a := &SyncAll{}
	settings := env.Settings()
	sink := env.Progress.NewSink("Syncing", settings.UI.ShouldShowSync)

	var phases []Action
	if settings.Sync.ShouldClean {
		phases = append(phases, newClean(env, sink))
	}
	if settings.Sync.ShouldImport || settings.Sync.ShouldExport {
		phases = append(phases, newSyncChanges(env, sink))
	}
	if settings.Sync.ShouldScan && !skipScan {
		phases = append(phases, newScan(env))
	}
	phases = append(phases, newWriteChanges(env))

	started := false
	inner := phasesOf(phases...)
	a.typeName = TypeSyncAll
	a.next = func(ctx context.Context) (Action, error) {
		if !started {
			started = true
			metrics.SyncRunning.Set(1)
		}
		return inner(ctx)
	}
	a.cleanup = func() {
		metrics.SyncRunning.Set(0)
		sink.Close()
	}
	a.wrapErr = func(err *Error) error {
		return NewError(CodeSyncAllFailed, "library sync failed", err)
	}
	return a
}

// syncChanges walks every media type and runs a SyncOne per item, then
// advances the last-sync watermark to the moment the pass started. Items
// changed while the pass runs stay ahead of the watermark and are caught by
// the next pass.
type syncChanges struct {
	phased
}

func newSyncChanges(env *Env, sink progress.Sink) *syncChanges {
	a := &syncChanges{}
	a.typeName = "Sync Changes"
	a.next = syncChangesPhases(env, sink)
	return a
}

func syncChangesPhases(env *Env, sink progress.Sink) phaseIter {
	var startedAt time.Time
	typeIdx := 0
	var items []media.Item
	itemIdx := 0
	finished := false

	return func(ctx context.Context) (Action, error) {
		if startedAt.IsZero() {
			startedAt = utcdt.Now()
		}
		if finished {
			return nil, nil
		}

		for !sink.IsCanceled() {
			if items == nil {
				if typeIdx >= len(media.LibraryTypes) {
					break
				}
				t := media.LibraryTypes[typeIdx]
				fetched, err := env.Gateway.All(ctx, t)
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
			settings := env.Settings()
			return newSyncOneScoped(env, item,
				settings.Sync.ShouldImport, settings.Sync.ShouldExport), nil
		}

		finished = true
		if !sink.IsCanceled() {
			env.Timestamps.SetLastSync(startedAt)
			metrics.LastSyncTimestamp.Set(float64(startedAt.Unix()))
		}
		return nil, nil
	}
}

// clean asks the host to drop stale library entries and waits for the
// clean-finished notification.
type clean struct {
	requestResponse
	env  *Env
	sink progress.Sink
}

func newClean(env *Env, sink progress.Sink) *clean {
	return &clean{env: env, sink: sink}
}

func (a *clean) Type() string { return TypeClean }

func (a *clean) Run(ctx context.Context, _ json.RawMessage) (bool, error) {
	if a.awaiting == "" {
		a.sink.Step("cleaning library", 0, 1)
		if err := a.env.Gateway.Clean(ctx); err != nil {
			return false, err
		}
		a.awaiting = kodi.OnCleanFinished
		return false, nil
	}
	a.awaiting = ""
	return true, nil
}

// scan asks the host to scan sources for new content and waits for the
// scan-finished notification.
type scan struct {
	requestResponse
	env *Env
}

func newScan(env *Env) *scan {
	return &scan{env: env}
}

func (a *scan) Type() string { return TypeScan }

func (a *scan) Run(ctx context.Context, _ json.RawMessage) (bool, error) {
	if a.awaiting == "" {
		if err := a.env.Gateway.Scan(ctx, a.env.Settings().UI.ShouldShowSync); err != nil {
			return false, err
		}
		a.awaiting = kodi.OnScanFinished
		return false, nil
	}
	a.awaiting = ""
	return true, nil
}

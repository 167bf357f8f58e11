package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/media"
	"github.com/nfosync/nfosync/internal/metrics"
	"github.com/nfosync/nfosync/internal/nfo"
	"github.com/nfosync/nfosync/internal/progress"
)

// ExportOne writes one item's host-side state into its sidecar file and
// records the resulting checksum and sidecar mtime. Export failures are
// graceful: the action completes, flags itself failed and (when standalone)
// notifies the user, so one broken sidecar never aborts a bulk run.
type ExportOne struct {
	env       *Env
	info      *media.Info
	overwrite *bool
	subtask   bool
	failed    bool
}

// NewExportOne creates a standalone export for an item. Overwrite behavior
// follows the export settings.
func NewExportOne(env *Env, item media.Item) *ExportOne {
	return &ExportOne{env: env, info: env.Gateway.NewInfo(item)}
}

// newExportOneSubtask creates an export phase that shares an already fetched
// info and leaves the flush to the enclosing action. overwrite nil defers to
// the export settings.
func newExportOneSubtask(env *Env, info *media.Info, overwrite *bool) *ExportOne {
	return &ExportOne{env: env, info: info, overwrite: overwrite, subtask: true}
}

func (a *ExportOne) Type() string     { return TypeExportOne }
func (a *ExportOne) Awaiting() string { return "" }

// Failed reports whether the last Run ended in a graceful export failure.
func (a *ExportOne) Failed() bool { return a.failed }

func (a *ExportOne) Run(ctx context.Context, _ json.RawMessage) (bool, error) {
	item := a.info.Item
	if err := a.export(ctx); err != nil {
		a.failed = true
		logger := log.WithComponent("actions")
		logger.Error().
			Err(err).
			Str(log.FieldMediaType, string(item.Type)).
			Uint32(log.FieldMediaID, item.ID).
			Str("event", "export.failed").
			Msg("sidecar export failed")
		metrics.ExportsTotal.WithLabelValues(string(item.Type), "failure").Inc()
		if !a.subtask {
			a.env.Notifier.Notify(CodeExportFailed, fmt.Sprintf("export failed for %s %d", item.Type, item.ID))
		}
		return true, nil
	}

	metrics.ExportsTotal.WithLabelValues(string(item.Type), "success").Inc()
	if !a.subtask {
		if err := a.env.LastKnown.WriteChanges(); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (a *ExportOne) export(ctx context.Context) error {
	settings := a.env.Settings()
	item := a.info.Item

	file, err := a.info.File(ctx)
	if err != nil {
		return err
	}
	if file == "" {
		return fmt.Errorf("item has no content file")
	}

	opts := nfo.Options{
		Overwrite:            settings.Export.CanOverwrite,
		Minimal:              settings.Export.IsMinimal,
		ActorHandling:        settings.Export.ActorHandling,
		ExportPluginTrailers: settings.Export.ShouldExportPluginTrailers,
		AppName:              a.env.AppName,
		AppVersion:           a.env.AppVersion,
	}
	if a.overwrite != nil {
		opts.Overwrite = *a.overwrite
	}

	path, found := media.FindNFO(item.Type, file)
	var doc *nfo.Document
	switch {
	case found:
		doc, err = nfo.Load(item, path, opts)
		if err != nil {
			return err
		}
	case settings.Export.CanCreateNFO:
		path = media.CreateNFOPath(item.Type, file, settings.Export.MovieNFONaming)
		doc = nfo.Create(item, opts)
	default:
		return fmt.Errorf("no sidecar for %q and creation is disabled", file)
	}

	details, err := a.info.Details(ctx)
	if err != nil {
		return err
	}
	set, err := a.info.MovieSet(ctx)
	if err != nil {
		return err
	}
	arts, err := a.info.Art(ctx)
	if err != nil {
		return err
	}
	seasons, err := a.info.Seasons(ctx)
	if err != nil {
		return err
	}

	doc.Apply(details, set, arts, seasons)
	if err := doc.Write(path); err != nil {
		return err
	}

	checksum, err := a.info.Checksum(ctx)
	if err != nil {
		return err
	}
	a.env.LastKnown.SetChecksum(item.Type, item.ID, checksum)
	if mtime, ok := a.env.Gateway.ModTime(ctx, path); ok {
		a.env.LastKnown.SetTimestamp(item.Type, item.ID, mtime)
	}

	logger := log.WithComponent("actions")
	logger.Debug().
		Str(log.FieldMediaType, string(item.Type)).
		Uint32(log.FieldMediaID, item.ID).
		Str(log.FieldNFOPath, path).
		Uint32(log.FieldChecksum, checksum).
		Str("event", "export.written").
		Msg("sidecar written")
	return nil
}

// ExportAll exports every library item, one sub-export per item. Individual
// failures are counted and reported in a single notification at the end.
type ExportAll struct {
	phased
}

// NewExportAll creates a full-library export.
func NewExportAll(env *Env) *ExportAll {
	a := &ExportAll{}
	sink := env.Progress.NewSink("Exporting", true)
	a.typeName = TypeExportAll
	a.next = exportAllPhases(env, sink)
	a.cleanup = sink.Close
	return a
}

func exportAllPhases(env *Env, sink progress.Sink) phaseIter {
	typeIdx := 0
	var items []media.Item
	itemIdx := 0
	failures := 0
	finished := false
	var last *ExportOne

	return func(ctx context.Context) (Action, error) {
		if last != nil {
			if last.Failed() {
				failures++
			}
			last = nil
		}
		if finished {
			return nil, nil
		}

		for !sink.IsCanceled() {
			if items == nil {
				if typeIdx >= len(media.LibraryTypes) {
					break
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
			last = newExportOneSubtask(env, env.Gateway.NewInfo(item), nil)
			return last, nil
		}

		finished = true
		if failures > 0 {
			env.Notifier.Notify(CodeExportAllFailures, fmt.Sprintf("%d items failed to export", failures))
		}
		return newWriteChanges(env), nil
	}
}

// Package lastknown persists the engine's per-item change-detection state:
// the checksum and sidecar modification time observed at the last sync. One
// compact binary file per media type. Absence of a record means the item has
// never been observed, which forces a sync on first encounter.
package lastknown

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/media"
	"github.com/nfosync/nfosync/internal/utcdt"
)

var fileNames = map[media.Type]string{
	media.TypeMovie:   "movies.dat",
	media.TypeTVShow:  "tvshows.dat",
	media.TypeEpisode: "episodes.dat",
}

type tracker struct {
	path    string
	records map[uint32]record
	dirty   bool
}

// Store is the persistent (type, id) → {checksum?, mtime?} map. Mutations are
// in-memory until WriteChanges; only one action runs at a time, so no
// internal locking is needed.
type Store struct {
	trackers map[media.Type]*tracker
	logger   zerolog.Logger
}

// Open loads the per-type tracker files from the profile directory. Missing
// files start empty; truncated files keep the records read so far.
func Open(profileDir string) *Store {
	logger := log.WithComponent("lastknown")
	s := &Store{
		trackers: make(map[media.Type]*tracker, len(fileNames)),
		logger:   logger,
	}
	for t, name := range fileNames {
		path := filepath.Join(profileDir, name)
		tr := &tracker{path: path, records: map[uint32]record{}}

		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			tr.records = decode(data)
			logger.Debug().
				Str(log.FieldPath, path).
				Int("records", len(tr.records)).
				Str("event", "lastknown.loaded").
				Msg("tracker loaded")
		case os.IsNotExist(err):
			// First run for this type.
		default:
			logger.Warn().
				Err(err).
				Str(log.FieldPath, path).
				Str("event", "lastknown.load_failed").
				Msg("starting with empty tracker")
		}
		s.trackers[t] = tr
	}
	return s
}

// Checksum returns the last known checksum for an item.
func (s *Store) Checksum(t media.Type, id uint32) (uint32, bool) {
	rec, ok := s.trackers[t].records[id]
	if !ok || !rec.hasChecksum {
		return 0, false
	}
	return rec.checksum, true
}

// SetChecksum records an item's checksum (in memory until WriteChanges).
func (s *Store) SetChecksum(t media.Type, id uint32, checksum uint32) {
	tr := s.trackers[t]
	rec := tr.records[id]
	rec.checksum = checksum
	rec.hasChecksum = true
	tr.records[id] = rec
	tr.dirty = true
}

// Timestamp returns the last known sidecar modification time for an item.
func (s *Store) Timestamp(t media.Type, id uint32) (time.Time, bool) {
	rec, ok := s.trackers[t].records[id]
	if !ok || !rec.hasMtime {
		return time.Time{}, false
	}
	return utcdt.FromUnix(rec.mtime), true
}

// SetTimestamp records an item's sidecar modification time.
func (s *Store) SetTimestamp(t media.Type, id uint32, ts time.Time) {
	tr := s.trackers[t]
	rec := tr.records[id]
	rec.mtime = ts.Unix()
	rec.hasMtime = true
	tr.records[id] = rec
	tr.dirty = true
}

// Delete drops an item's record.
func (s *Store) Delete(t media.Type, id uint32) {
	tr := s.trackers[t]
	if _, ok := tr.records[id]; ok {
		delete(tr.records, id)
		tr.dirty = true
	}
}

// Len returns the number of records held for a media type.
func (s *Store) Len(t media.Type) int {
	return len(s.trackers[t].records)
}

// WriteChanges persists every tracker that has unwritten mutations. Writes
// are atomic (temp file + rename); untouched trackers are skipped entirely.
func (s *Store) WriteChanges() error {
	var firstErr error
	for t, tr := range s.trackers {
		if !tr.dirty {
			continue
		}
		if err := s.writeTracker(tr); err != nil {
			s.logger.Error().
				Err(err).
				Str(log.FieldMediaType, string(t)).
				Str(log.FieldPath, tr.path).
				Str("event", "lastknown.write_failed").
				Msg("unable to write tracker file")
			if firstErr == nil {
				firstErr = fmt.Errorf("write tracker %s: %w", tr.path, err)
			}
			continue
		}
		tr.dirty = false
	}
	return firstErr
}

func (s *Store) writeTracker(tr *tracker) error {
	if err := os.MkdirAll(filepath.Dir(tr.path), 0o755); err != nil {
		return err
	}

	ids := make([]uint32, 0, len(tr.records))
	for id := range tr.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	pending, err := renameio.NewPendingFile(tr.path)
	if err != nil {
		return err
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			s.logger.Debug().Err(err).Msg("cleanup pending tracker file")
		}
	}()

	if _, err := pending.Write(encode(tr.records, ids)); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

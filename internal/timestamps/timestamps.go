// Package timestamps persists the engine's two schedule watermarks:
// last_sync (UTC) and next_scheduled (local wall time).
package timestamps

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/utcdt"
)

const fileName = "timestamps.json"

type fileFormat struct {
	LastSync      string `json:"last_sync"`
	NextScheduled string `json:"next_scheduled"`
}

// Store holds the sync watermarks and writes them through on every set.
// Mutations come from the service loop; the lock keeps reads from the status
// endpoint safe.
type Store struct {
	path   string
	logger zerolog.Logger

	mu            sync.RWMutex
	lastSync      time.Time
	nextScheduled time.Time
}

// Open loads timestamps.json from the profile directory. A missing or
// corrupt file resets to defaults: last_sync = now, next_scheduled =
// 1980-01-01 (always overdue).
func Open(profileDir string) *Store {
	s := &Store{
		path:          filepath.Join(profileDir, fileName),
		logger:        log.WithComponent("timestamps"),
		lastSync:      utcdt.Now(),
		nextScheduled: time.Date(1980, time.January, 1, 0, 0, 0, 0, time.Local),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().
				Err(err).
				Str(log.FieldPath, s.path).
				Str("event", "timestamps.load_failed").
				Msg("resetting timestamps to defaults")
		}
		s.write()
		return s
	}

	var contents fileFormat
	if err := json.Unmarshal(data, &contents); err != nil {
		s.logger.Warn().
			Err(err).
			Str(log.FieldPath, s.path).
			Str("event", "timestamps.parse_failed").
			Msg("resetting timestamps to defaults")
		s.write()
		return s
	}

	if ts, err := utcdt.FromISO(contents.LastSync); err == nil {
		s.lastSync = ts
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05", contents.NextScheduled, time.Local); err == nil {
		s.nextScheduled = ts
	}

	s.write()
	return s
}

// LastSync returns the UTC watermark of the most recent completed sync.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// SetLastSync updates and persists the sync watermark.
func (s *Store) SetLastSync(ts time.Time) {
	s.mu.Lock()
	s.lastSync = ts.UTC()
	s.mu.Unlock()
	s.write()
}

// NextScheduled returns the local time of the next scheduled sync.
func (s *Store) NextScheduled() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextScheduled
}

// SetNextScheduled updates and persists the next scheduled sync time.
func (s *Store) SetNextScheduled(ts time.Time) {
	s.mu.Lock()
	s.nextScheduled = ts
	s.mu.Unlock()
	s.write()
}

func (s *Store) write() {
	contents := fileFormat{
		LastSync:      utcdt.ToISO(s.lastSync),
		NextScheduled: s.nextScheduled.Format("2006-01-02T15:04:05"),
	}
	data, err := json.Marshal(contents)
	if err != nil {
		s.logger.Error().Err(err).Str("event", "timestamps.encode_failed").Msg("cannot encode timestamps")
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error().
			Err(err).
			Str(log.FieldPath, s.path).
			Str("event", "timestamps.write_failed").
			Msg("cannot create profile directory")
		return
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error().
			Err(err).
			Str(log.FieldPath, s.path).
			Str("event", "timestamps.write_failed").
			Msg("unable to write timestamps file")
	}
}

// Package config provides configuration management for nfosync.
//
// Precedence is ENV > file > defaults, mirroring how the daemon is deployed:
// a YAML settings file edited by the user, with environment overrides for
// containerized setups. The file is hot-reloaded; the service treats a reload
// as a settings-changed event.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// MovieNFONaming selects the filename used when creating a movie sidecar.
type MovieNFONaming string

const (
	NamingMovie    MovieNFONaming = "movie"    // <dir>/movie.nfo
	NamingFilename MovieNFONaming = "filename" // <basename>.nfo
)

// ActorHandling selects the cast merge policy on export.
type ActorHandling string

const (
	ActorsLeave     ActorHandling = "leave"
	ActorsUpdate    ActorHandling = "update"
	ActorsOverwrite ActorHandling = "overwrite"
	ActorsMerge     ActorHandling = "merge"
)

// Settings is the fully resolved runtime configuration.
type Settings struct {
	Host         HostSettings
	ProfileDir   string // where <type>.dat and timestamps.json live
	StatusListen string // status/metrics HTTP listen address
	LogLevel     string

	Sync      SyncSettings
	Export    ExportSettings
	Triggers  TriggerSettings
	Avoidance AvoidanceSettings
	Periodic  PeriodicSettings
	Scheduled ScheduledSettings
	UI        UISettings
}

// HostSettings describe how to reach the host media application.
type HostSettings struct {
	BaseURL    string // JSON-RPC over HTTP, e.g. http://127.0.0.1:8080
	NotifyAddr string // JSON-RPC notification TCP socket, e.g. 127.0.0.1:9090
	Username   string
	Password   string
	Timeout    string // request timeout, e.g. "30s"
	Sender     string // sender id used on the bus
}

type SyncSettings struct {
	ShouldClean       bool
	ShouldImport      bool
	ShouldExport      bool
	ShouldScan        bool
	ShouldImportFirst bool
}

type ExportSettings struct {
	CanCreateNFO               bool
	MovieNFONaming             MovieNFONaming
	IsMinimal                  bool
	CanOverwrite               bool
	ActorHandling              ActorHandling
	ShouldExportPluginTrailers bool
}

type TriggerSettings struct {
	SyncOnStart      bool
	SyncOnScan       bool
	ExportOnUpdate   bool
	IgnoresAddUpdate bool
}

type AvoidanceSettings struct {
	IsEnabled bool
	WaitTime  int // minutes to wait after playback stops
}

type PeriodicSettings struct {
	IsEnabled bool
	Period    int // minutes
}

// ScheduledSettings describe the clock-based sync trigger. Time is local
// wall time "HH:MM"; Days are weekdays with Monday = 0.
type ScheduledSettings struct {
	IsEnabled      bool
	Time           string
	Days           []int
	RunMissedSyncs bool
}

type UISettings struct {
	ShouldShowSync          bool
	ShouldShowNotifications bool
	IsLoggingVerbose        bool
}

// PeriodMinutes returns the periodic trigger interval, or 0 when disabled.
func (p PeriodicSettings) PeriodMinutes() int {
	if !p.IsEnabled {
		return 0
	}
	return p.Period
}

// ClockTime parses the configured "HH:MM" schedule time.
func (s ScheduledSettings) ClockTime() (hour, minute int, err error) {
	parts := strings.SplitN(s.Time, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("scheduled time %q: want HH:MM", s.Time)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("scheduled time %q: bad hour", s.Time)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("scheduled time %q: bad minute", s.Time)
	}
	return hour, minute, nil
}

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks a resolved configuration for internal consistency.
// Either the full config is valid, or it must not be applied.
func Validate(cfg Settings) error {
	if cfg.Host.BaseURL == "" {
		return fmt.Errorf("host.baseUrl must be set")
	}
	if _, err := url.Parse(cfg.Host.BaseURL); err != nil {
		return fmt.Errorf("host.baseUrl: %w", err)
	}
	if cfg.Host.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Host.Timeout); err != nil {
			return fmt.Errorf("host.timeout: %w", err)
		}
	}
	if cfg.ProfileDir == "" {
		return fmt.Errorf("profileDir must be set")
	}

	switch cfg.Export.MovieNFONaming {
	case NamingMovie, NamingFilename:
	default:
		return fmt.Errorf("export.movieNfoNaming %q: want %q or %q",
			cfg.Export.MovieNFONaming, NamingMovie, NamingFilename)
	}

	switch cfg.Export.ActorHandling {
	case ActorsLeave, ActorsUpdate, ActorsOverwrite, ActorsMerge:
	default:
		return fmt.Errorf("export.actorHandling %q: want leave, update, overwrite or merge",
			cfg.Export.ActorHandling)
	}

	if cfg.Avoidance.WaitTime < 0 {
		return fmt.Errorf("avoidance.waitTime must be >= 0")
	}
	if cfg.Periodic.Period < 0 {
		return fmt.Errorf("periodic.period must be >= 0")
	}

	if cfg.Scheduled.IsEnabled {
		if _, _, err := cfg.Scheduled.ClockTime(); err != nil {
			return err
		}
		if len(cfg.Scheduled.Days) == 0 {
			return fmt.Errorf("scheduled.days must name at least one weekday")
		}
		for _, day := range cfg.Scheduled.Days {
			if day < 0 || day > 6 {
				return fmt.Errorf("scheduled.days: weekday %d out of range 0..6", day)
			}
		}
	}

	return nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load loads configuration in strict order: defaults, file, env, validate.
func (l *Loader) Load() (Settings, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	return Settings{
		Host: HostSettings{
			BaseURL:    "http://127.0.0.1:8080",
			NotifyAddr: "127.0.0.1:9090",
			Timeout:    "30s",
			Sender:     "nfosync",
		},
		ProfileDir:   "/var/lib/nfosync",
		StatusListen: "127.0.0.1:8675",
		LogLevel:     "info",
		Sync: SyncSettings{
			ShouldClean:       false,
			ShouldImport:      true,
			ShouldExport:      true,
			ShouldScan:        false,
			ShouldImportFirst: true,
		},
		Export: ExportSettings{
			CanCreateNFO:               true,
			MovieNFONaming:             NamingFilename,
			IsMinimal:                  false,
			CanOverwrite:               true,
			ActorHandling:              ActorsMerge,
			ShouldExportPluginTrailers: false,
		},
		Triggers: TriggerSettings{
			SyncOnStart:      false,
			SyncOnScan:       false,
			ExportOnUpdate:   true,
			IgnoresAddUpdate: true,
		},
		Avoidance: AvoidanceSettings{IsEnabled: true, WaitTime: 0},
		Periodic:  PeriodicSettings{IsEnabled: false, Period: 60},
		Scheduled: ScheduledSettings{
			IsEnabled:      false,
			Time:           "03:00",
			Days:           []int{0, 1, 2, 3, 4, 5, 6},
			RunMissedSyncs: true,
		},
		UI: UISettings{
			ShouldShowSync:          true,
			ShouldShowNotifications: true,
			IsLoggingVerbose:        false,
		},
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

func mergeFileConfig(cfg *Settings, fc *FileConfig) {
	setString(&cfg.ProfileDir, fc.ProfileDir)
	setString(&cfg.StatusListen, fc.StatusListen)
	setString(&cfg.LogLevel, fc.LogLevel)

	setString(&cfg.Host.BaseURL, fc.Host.BaseURL)
	setString(&cfg.Host.NotifyAddr, fc.Host.NotifyAddr)
	setString(&cfg.Host.Username, fc.Host.Username)
	setString(&cfg.Host.Password, fc.Host.Password)
	setString(&cfg.Host.Timeout, fc.Host.Timeout)
	setString(&cfg.Host.Sender, fc.Host.Sender)

	setBool(&cfg.Sync.ShouldClean, fc.Sync.ShouldClean)
	setBool(&cfg.Sync.ShouldImport, fc.Sync.ShouldImport)
	setBool(&cfg.Sync.ShouldExport, fc.Sync.ShouldExport)
	setBool(&cfg.Sync.ShouldScan, fc.Sync.ShouldScan)
	setBool(&cfg.Sync.ShouldImportFirst, fc.Sync.ShouldImportFirst)

	setBool(&cfg.Export.CanCreateNFO, fc.Export.CanCreateNFO)
	if fc.Export.MovieNFONaming != "" {
		cfg.Export.MovieNFONaming = MovieNFONaming(fc.Export.MovieNFONaming)
	}
	setBool(&cfg.Export.IsMinimal, fc.Export.IsMinimal)
	setBool(&cfg.Export.CanOverwrite, fc.Export.CanOverwrite)
	if fc.Export.ActorHandling != "" {
		cfg.Export.ActorHandling = ActorHandling(fc.Export.ActorHandling)
	}
	setBool(&cfg.Export.ShouldExportPluginTrailers, fc.Export.ShouldExportPluginTrailers)

	setBool(&cfg.Triggers.SyncOnStart, fc.Triggers.SyncOnStart)
	setBool(&cfg.Triggers.SyncOnScan, fc.Triggers.SyncOnScan)
	setBool(&cfg.Triggers.ExportOnUpdate, fc.Triggers.ExportOnUpdate)
	setBool(&cfg.Triggers.IgnoresAddUpdate, fc.Triggers.IgnoresAddUpdate)

	setBool(&cfg.Avoidance.IsEnabled, fc.Avoidance.IsEnabled)
	setInt(&cfg.Avoidance.WaitTime, fc.Avoidance.WaitTime)

	setBool(&cfg.Periodic.IsEnabled, fc.Periodic.IsEnabled)
	setInt(&cfg.Periodic.Period, fc.Periodic.Period)

	setBool(&cfg.Scheduled.IsEnabled, fc.Scheduled.IsEnabled)
	setString(&cfg.Scheduled.Time, fc.Scheduled.Time)
	if fc.Scheduled.Days != nil {
		cfg.Scheduled.Days = fc.Scheduled.Days
	}
	setBool(&cfg.Scheduled.RunMissedSyncs, fc.Scheduled.RunMissedSyncs)

	setBool(&cfg.UI.ShouldShowSync, fc.UI.ShouldShowSync)
	setBool(&cfg.UI.ShouldShowNotifications, fc.UI.ShouldShowNotifications)
	setBool(&cfg.UI.IsLoggingVerbose, fc.UI.IsLoggingVerbose)
}

func applyEnv(cfg *Settings) {
	cfg.ProfileDir = ParseString("NFOSYNC_PROFILE_DIR", cfg.ProfileDir)
	cfg.StatusListen = ParseString("NFOSYNC_STATUS_LISTEN", cfg.StatusListen)
	cfg.LogLevel = ParseString("NFOSYNC_LOG_LEVEL", cfg.LogLevel)

	cfg.Host.BaseURL = ParseString("NFOSYNC_HOST_URL", cfg.Host.BaseURL)
	cfg.Host.NotifyAddr = ParseString("NFOSYNC_HOST_NOTIFY_ADDR", cfg.Host.NotifyAddr)
	cfg.Host.Username = ParseString("NFOSYNC_HOST_USERNAME", cfg.Host.Username)
	cfg.Host.Password = ParseString("NFOSYNC_HOST_PASSWORD", cfg.Host.Password)
	cfg.Host.Timeout = ParseString("NFOSYNC_HOST_TIMEOUT", cfg.Host.Timeout)
	cfg.Host.Sender = ParseString("NFOSYNC_SENDER", cfg.Host.Sender)

	cfg.Sync.ShouldClean = ParseBool("NFOSYNC_SYNC_CLEAN", cfg.Sync.ShouldClean)
	cfg.Sync.ShouldImport = ParseBool("NFOSYNC_SYNC_IMPORT", cfg.Sync.ShouldImport)
	cfg.Sync.ShouldExport = ParseBool("NFOSYNC_SYNC_EXPORT", cfg.Sync.ShouldExport)
	cfg.Sync.ShouldScan = ParseBool("NFOSYNC_SYNC_SCAN", cfg.Sync.ShouldScan)
	cfg.Sync.ShouldImportFirst = ParseBool("NFOSYNC_SYNC_IMPORT_FIRST", cfg.Sync.ShouldImportFirst)

	cfg.Export.CanCreateNFO = ParseBool("NFOSYNC_EXPORT_CREATE_NFO", cfg.Export.CanCreateNFO)
	cfg.Export.MovieNFONaming = MovieNFONaming(ParseString("NFOSYNC_EXPORT_MOVIE_NFO_NAMING", string(cfg.Export.MovieNFONaming)))
	cfg.Export.IsMinimal = ParseBool("NFOSYNC_EXPORT_MINIMAL", cfg.Export.IsMinimal)
	cfg.Export.CanOverwrite = ParseBool("NFOSYNC_EXPORT_OVERWRITE", cfg.Export.CanOverwrite)
	cfg.Export.ActorHandling = ActorHandling(ParseString("NFOSYNC_EXPORT_ACTORS", string(cfg.Export.ActorHandling)))
	cfg.Export.ShouldExportPluginTrailers = ParseBool("NFOSYNC_EXPORT_PLUGIN_TRAILERS", cfg.Export.ShouldExportPluginTrailers)

	cfg.Triggers.SyncOnStart = ParseBool("NFOSYNC_TRIGGER_SYNC_ON_START", cfg.Triggers.SyncOnStart)
	cfg.Triggers.SyncOnScan = ParseBool("NFOSYNC_TRIGGER_SYNC_ON_SCAN", cfg.Triggers.SyncOnScan)
	cfg.Triggers.ExportOnUpdate = ParseBool("NFOSYNC_TRIGGER_EXPORT_ON_UPDATE", cfg.Triggers.ExportOnUpdate)
	cfg.Triggers.IgnoresAddUpdate = ParseBool("NFOSYNC_TRIGGER_IGNORE_ADD_UPDATES", cfg.Triggers.IgnoresAddUpdate)

	cfg.Avoidance.IsEnabled = ParseBool("NFOSYNC_AVOIDANCE_ENABLED", cfg.Avoidance.IsEnabled)
	cfg.Avoidance.WaitTime = ParseInt("NFOSYNC_AVOIDANCE_WAIT", cfg.Avoidance.WaitTime)

	cfg.Periodic.IsEnabled = ParseBool("NFOSYNC_PERIODIC_ENABLED", cfg.Periodic.IsEnabled)
	cfg.Periodic.Period = ParseInt("NFOSYNC_PERIODIC_PERIOD", cfg.Periodic.Period)

	cfg.Scheduled.IsEnabled = ParseBool("NFOSYNC_SCHEDULED_ENABLED", cfg.Scheduled.IsEnabled)
	cfg.Scheduled.Time = ParseString("NFOSYNC_SCHEDULED_TIME", cfg.Scheduled.Time)
	cfg.Scheduled.Days = ParseDays("NFOSYNC_SCHEDULED_DAYS", cfg.Scheduled.Days)
	cfg.Scheduled.RunMissedSyncs = ParseBool("NFOSYNC_SCHEDULED_RUN_MISSED", cfg.Scheduled.RunMissedSyncs)

	cfg.UI.ShouldShowSync = ParseBool("NFOSYNC_UI_SHOW_SYNC", cfg.UI.ShouldShowSync)
	cfg.UI.ShouldShowNotifications = ParseBool("NFOSYNC_UI_NOTIFICATIONS", cfg.UI.ShouldShowNotifications)
	cfg.UI.IsLoggingVerbose = ParseBool("NFOSYNC_UI_VERBOSE", cfg.UI.IsLoggingVerbose)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

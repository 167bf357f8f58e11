package config

// FileConfig represents the YAML configuration structure. Optional booleans
// use pointers to distinguish "not set" from "explicitly false".
type FileConfig struct {
	ProfileDir   string `yaml:"profileDir,omitempty"`
	StatusListen string `yaml:"statusListen,omitempty"`
	LogLevel     string `yaml:"logLevel,omitempty"`

	Host      HostFileConfig      `yaml:"host"`
	Sync      SyncFileConfig      `yaml:"sync,omitempty"`
	Export    ExportFileConfig    `yaml:"export,omitempty"`
	Triggers  TriggerFileConfig   `yaml:"triggers,omitempty"`
	Avoidance AvoidanceFileConfig `yaml:"avoidance,omitempty"`
	Periodic  PeriodicFileConfig  `yaml:"periodic,omitempty"`
	Scheduled ScheduledFileConfig `yaml:"scheduled,omitempty"`
	UI        UIFileConfig        `yaml:"ui,omitempty"`
}

type HostFileConfig struct {
	BaseURL    string `yaml:"baseUrl,omitempty"`
	NotifyAddr string `yaml:"notifyAddr,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	Timeout    string `yaml:"timeout,omitempty"` // e.g. "30s"
	Sender     string `yaml:"sender,omitempty"`
}

type SyncFileConfig struct {
	ShouldClean       *bool `yaml:"shouldClean,omitempty"`
	ShouldImport      *bool `yaml:"shouldImport,omitempty"`
	ShouldExport      *bool `yaml:"shouldExport,omitempty"`
	ShouldScan        *bool `yaml:"shouldScan,omitempty"`
	ShouldImportFirst *bool `yaml:"shouldImportFirst,omitempty"`
}

type ExportFileConfig struct {
	CanCreateNFO               *bool  `yaml:"canCreateNfo,omitempty"`
	MovieNFONaming             string `yaml:"movieNfoNaming,omitempty"`
	IsMinimal                  *bool  `yaml:"isMinimal,omitempty"`
	CanOverwrite               *bool  `yaml:"canOverwrite,omitempty"`
	ActorHandling              string `yaml:"actorHandling,omitempty"`
	ShouldExportPluginTrailers *bool  `yaml:"shouldExportPluginTrailers,omitempty"`
}

type TriggerFileConfig struct {
	SyncOnStart      *bool `yaml:"syncOnStart,omitempty"`
	SyncOnScan       *bool `yaml:"syncOnScan,omitempty"`
	ExportOnUpdate   *bool `yaml:"exportOnUpdate,omitempty"`
	IgnoresAddUpdate *bool `yaml:"ignoresAddUpdates,omitempty"`
}

type AvoidanceFileConfig struct {
	IsEnabled *bool `yaml:"isEnabled,omitempty"`
	WaitTime  *int  `yaml:"waitTime,omitempty"`
}

type PeriodicFileConfig struct {
	IsEnabled *bool `yaml:"isEnabled,omitempty"`
	Period    *int  `yaml:"period,omitempty"`
}

type ScheduledFileConfig struct {
	IsEnabled      *bool  `yaml:"isEnabled,omitempty"`
	Time           string `yaml:"time,omitempty"`
	Days           []int  `yaml:"days,omitempty"`
	RunMissedSyncs *bool  `yaml:"runMissedSyncs,omitempty"`
}

type UIFileConfig struct {
	ShouldShowSync          *bool `yaml:"shouldShowSync,omitempty"`
	ShouldShowNotifications *bool `yaml:"shouldShowNotifications,omitempty"`
	IsLoggingVerbose        *bool `yaml:"isLoggingVerbose,omitempty"`
}

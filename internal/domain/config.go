package domain

// Config mirrors ~/.alle/config.yaml.
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version" json:"config_format_version"`
	API                 APISettings     `yaml:"api" json:"api"`
	Storage             StorageSettings `yaml:"storage" json:"storage"`
	Video               VideoSettings   `yaml:"video" json:"video"`
	Logging             LoggingSettings `yaml:"logging" json:"logging"`
}

// APISettings points the workbench at the developer API.
type APISettings struct {
	BaseURL           string  `yaml:"base_url" json:"base_url" validate:"omitempty,http_url"`
	TokenEnvVar       string  `yaml:"token_env_var" json:"token_env_var"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gte=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
}

// StorageSettings selects the key-value backend that holds the persisted blob.
type StorageSettings struct {
	// Backend is one of "file", "sqlite" or "memory".
	Backend string `yaml:"backend" json:"backend" validate:"omitempty,oneof=file sqlite memory"`
	Dir     string `yaml:"dir" json:"dir"`
	Key     string `yaml:"key" json:"key" validate:"excludesall=/\\"`
	UserID  string `yaml:"user_id" json:"user_id"`
}

// VideoSettings controls video generation polling.
type VideoSettings struct {
	// PollInterval is a Go duration string, e.g. "5s".
	PollInterval  string   `yaml:"poll_interval" json:"poll_interval"`
	DefaultModels []string `yaml:"default_models" json:"default_models" validate:"dive,required"`
}

// LoggingSettings configures the structured logger.
type LoggingSettings struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=text json"`
}

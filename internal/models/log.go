package models

// LogEntry represents metadata for a daemon output log.
type LogEntry struct {
	LogID     string `yaml:"log_id"`
	Binary    string `yaml:"binary"`
	Args      string `yaml:"args"`
	StartedAt string `yaml:"started_at"`
	Path      string `yaml:"-"`
}

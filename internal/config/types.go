package config

// DebugOperationsConfig controls verbose tracing and DOT-graph dumps.
type DebugOperationsConfig struct {
	Enabled bool `json:"enabled"`
}

// SchedulerConfig is the top-level, process-wide configuration recognised
// by the scheduler: the pool size cap, the per-task retry cap, and the
// debug-tracing toggle.
type SchedulerConfig struct {
	MaxActivityPoolSize int                   `json:"maxActivityPoolSize"`
	MaxActivityRetry    int                   `json:"maxActivityRetry"`
	DebugOperations     DebugOperationsConfig `json:"debugOperations"`
}

package config

// DefaultConfig returns the documented defaults: a pool size of 20, a
// retry cap of 5, and debug tracing off.
func DefaultConfig() *SchedulerConfig {
	return &SchedulerConfig{
		MaxActivityPoolSize: 20,
		MaxActivityRetry:    5,
		DebugOperations:     DebugOperationsConfig{Enabled: false},
	}
}

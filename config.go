package rewind

import "time"

type (
	Config struct {
		Save             SaveConfig
		MaxDepth         int
		AlwaysPersist    bool
		EnableSaveWorker bool
	}

	SaveConfig struct {
		WorkerCount  int
		MaxQueueSize int
		SaveTimeout  time.Duration
	}
)

const (
	DefaultMaxDepth      = 100
	DefaultSaveWorkers   = 4
	DefaultSaveQueueSize = 1024
	DefaultSaveTimeout   = 30 * time.Second
)

func DefaultConfig() Config {
	return Config{
		Save:             DefaultSaveConfig(),
		MaxDepth:         DefaultMaxDepth,
		AlwaysPersist:    false,
		EnableSaveWorker: true,
	}
}

func DefaultSaveConfig() SaveConfig {
	return SaveConfig{
		WorkerCount:  DefaultSaveWorkers,
		MaxQueueSize: DefaultSaveQueueSize,
		SaveTimeout:  DefaultSaveTimeout,
	}
}

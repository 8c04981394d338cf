package config

// Config holds the tunables of the accounting engine.
type Config struct {
	// MaxStepsPerPath caps the number of evolver steps a single path may take
	// before the engine gives up with a step-overflow error.
	// Zero means "number of steps in the evolution description".
	MaxStepsPerPath int
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	MaxStepsPerPath: 0,
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
//
// Engines read the configuration once, at construction.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}

package opusbridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge/codec"
	"github.com/plasmoverse/opusbridge/errors"
)

// Config holds bridge configuration.
type Config struct {
	// Engine creates the native codec instances. Required.
	Engine codec.Engine

	// Logger receives surfaced errors at warn level and session lifecycle
	// at debug level. Nil discards output.
	Logger *zap.Logger

	// Registerer receives the bridge metrics. Nil uses a private registry.
	Registerer prometheus.Registerer

	// Metrics enables metric collection.
	Metrics bool
}

// DefaultConfig returns a configuration with metrics enabled on a private
// registry and logging disabled.
func DefaultConfig(engine codec.Engine) Config {
	return Config{
		Engine:  engine,
		Metrics: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Engine == nil {
		return errors.Argument(errors.PhaseConfig, "codec engine is required", nil)
	}
	return nil
}

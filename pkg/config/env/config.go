package env

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/code-payments/code-launchpad/pkg/config"
	"github.com/code-payments/code-launchpad/pkg/config/wrapper"
)

type conf struct {
	key string

	mu       sync.RWMutex
	shutdown bool
}

// NewConfig returns a config backed by the environment variable key, upper
// cased. The variable is read on every Get, so values loaded after
// construction, such as from a .env file, are observed. Surrounding
// whitespace is trimmed and a blank value is treated as unset.
func NewConfig(key string) config.Config {
	return &conf{key: strings.ToUpper(key)}
}

// Get implements Config.Get
func (c *conf) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.shutdown {
		return nil, config.ErrShutdown
	}

	val, ok := os.LookupEnv(c.key)
	val = strings.TrimSpace(val)
	if !ok || len(val) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(val), nil
}

// Shutdown implements Config.Shutdown
func (c *conf) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
}

// NewInt64Config creates a env-based int64 config
func NewInt64Config(key string, defaultValue int64) config.Int64 {
	return wrapper.NewInt64Config(NewConfig(key), defaultValue)
}

// NewUint64Config creates a env-based uint64 config
func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

// NewFloat64Config creates a env-based float64 config
func NewFloat64Config(key string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(key), defaultValue)
}

// NewStringConfig creates a env-based string config
func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

// NewBoolConfig creates a env-based bool config
func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

// NewDurationConfig creates a env-based duration config
func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}

package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/code-payments/code-launchpad/pkg/config"
)

// ErrInduced is returned by Get after InduceErrors.
var ErrInduced = errors.New("in memory config: induced error")

// Config is an in memory config.Config for tests. A nil value means no value
// is set.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	err      error
	shutdown bool
}

var _ config.Config = (*Config)(nil)

func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

// Get implements config.Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.err != nil:
		return nil, c.err
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

// Shutdown implements config.Config.Shutdown
func (c *Config) Shutdown() {
	c.update(func() { c.shutdown = true })
}

func (c *Config) SetValue(value interface{}) {
	c.update(func() { c.value = value })
}

// ClearValue makes subsequent Get calls return config.ErrNoValue.
func (c *Config) ClearValue() {
	c.SetValue(nil)
}

// SetError makes subsequent Get calls fail with err until it is cleared with
// a nil error.
func (c *Config) SetError(err error) {
	c.update(func() { c.err = err })
}

func (c *Config) InduceErrors() {
	c.SetError(ErrInduced)
}

func (c *Config) StopInducingErrors() {
	c.SetError(nil)
}

func (c *Config) update(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}

package confirm

import (
	"context"
	"time"

	"github.com/code-payments/code-launchpad/pkg/config/env"
	"github.com/code-payments/code-launchpad/pkg/solana"
)

const (
	// IssuanceMaxAttempts bounds confirmation of issuance and distribution.
	IssuanceMaxAttempts = 30

	// SetupMaxAttempts bounds confirmation of higher value setup operations.
	SetupMaxAttempts = 45
)

const (
	envConfigPrefix = "CONFIRMATION_ENGINE_"

	WaitTimeoutConfigEnvName = envConfigPrefix + "WAIT_TIMEOUT"
	defaultWaitTimeout       = 30 * time.Second

	InitialBackoffConfigEnvName = envConfigPrefix + "INITIAL_BACKOFF"
	defaultInitialBackoff       = 1500 * time.Millisecond

	WidenBackoffAfterConfigEnvName = envConfigPrefix + "WIDEN_BACKOFF_AFTER"
	defaultWidenBackoffAfter       = 20

	WidenedBackoffConfigEnvName = envConfigPrefix + "WIDENED_BACKOFF"
	defaultWidenedBackoff       = 3 * time.Second

	HistoryAttemptsConfigEnvName = envConfigPrefix + "HISTORY_ATTEMPTS"
	defaultHistoryAttempts       = 10

	RequestTimeoutConfigEnvName = envConfigPrefix + "REQUEST_TIMEOUT"
	defaultRequestTimeout       = 10 * time.Second
)

// Config tunes the confirmation engine.
type Config struct {
	// WaitTimeout bounds the built-in wait. Zero disables it.
	WaitTimeout time.Duration

	// Backoff between poll rounds is InitialBackoff, widening to
	// WidenedBackoff after WidenBackoffAfter rounds.
	InitialBackoff    time.Duration
	WidenBackoffAfter uint
	WidenedBackoff    time.Duration

	// HistoryAttempts is the number of rounds that search transaction
	// history when looking up signature statuses.
	HistoryAttempts uint

	// RequestTimeout bounds every individual RPC call.
	RequestTimeout time.Duration

	Commitment solana.Commitment
	Cluster    solana.Cluster
}

func DefaultConfig() Config {
	return Config{
		WaitTimeout:       defaultWaitTimeout,
		InitialBackoff:    defaultInitialBackoff,
		WidenBackoffAfter: defaultWidenBackoffAfter,
		WidenedBackoff:    defaultWidenedBackoff,
		HistoryAttempts:   defaultHistoryAttempts,
		RequestTimeout:    defaultRequestTimeout,
		Commitment:        solana.CommitmentConfirmed,
		Cluster:           solana.ClusterMainnet,
	}
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() Config

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs(cluster solana.Cluster) ConfigProvider {
	return func() Config {
		conf := DefaultConfig()
		conf.Cluster = cluster

		ctx := context.Background()
		conf.WaitTimeout = env.NewDurationConfig(WaitTimeoutConfigEnvName, defaultWaitTimeout).Get(ctx)
		conf.InitialBackoff = env.NewDurationConfig(InitialBackoffConfigEnvName, defaultInitialBackoff).Get(ctx)
		conf.WidenBackoffAfter = uint(env.NewUint64Config(WidenBackoffAfterConfigEnvName, defaultWidenBackoffAfter).Get(ctx))
		conf.WidenedBackoff = env.NewDurationConfig(WidenedBackoffConfigEnvName, defaultWidenedBackoff).Get(ctx)
		conf.HistoryAttempts = uint(env.NewUint64Config(HistoryAttemptsConfigEnvName, defaultHistoryAttempts).Get(ctx))
		conf.RequestTimeout = env.NewDurationConfig(RequestTimeoutConfigEnvName, defaultRequestTimeout).Get(ctx)
		return conf
	}
}

package async_distribution

import (
	"time"

	"github.com/code-payments/code-launchpad/pkg/config"
	"github.com/code-payments/code-launchpad/pkg/config/env"
	"github.com/code-payments/code-launchpad/pkg/config/memory"
	"github.com/code-payments/code-launchpad/pkg/config/wrapper"
)

const (
	envConfigPrefix = "FEE_DISTRIBUTION_SERVICE_"

	DisableDistributionConfigEnvName = envConfigPrefix + "DISABLE"
	defaultDisableDistribution       = false

	ScheduleConfigEnvName = envConfigPrefix + "SCHEDULE"
	defaultSchedule       = "@every 1h"

	LockNameConfigEnvName = envConfigPrefix + "LOCK_NAME"
	defaultLockName       = "fee-distribution"

	RunTimeoutConfigEnvName = envConfigPrefix + "RUN_TIMEOUT"
	defaultRunTimeout       = 50 * time.Minute
)

type conf struct {
	disableDistribution config.Bool
	schedule            config.String
	lockName            config.String
	runTimeout          config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			disableDistribution: env.NewBoolConfig(DisableDistributionConfigEnvName, defaultDisableDistribution),
			schedule:            env.NewStringConfig(ScheduleConfigEnvName, defaultSchedule),
			lockName:            env.NewStringConfig(LockNameConfigEnvName, defaultLockName),
			runTimeout:          env.NewDurationConfig(RunTimeoutConfigEnvName, defaultRunTimeout),
		}
	}
}

type testOverrides struct {
	disableDistribution bool
	schedule            string
	runTimeout          time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	schedule := overrides.schedule
	if len(schedule) == 0 {
		schedule = defaultSchedule
	}
	runTimeout := overrides.runTimeout
	if runTimeout == 0 {
		runTimeout = defaultRunTimeout
	}

	return func() *conf {
		return &conf{
			disableDistribution: wrapper.NewBoolConfig(memory.NewConfig(overrides.disableDistribution), defaultDisableDistribution),
			schedule:            wrapper.NewStringConfig(memory.NewConfig(schedule), defaultSchedule),
			lockName:            wrapper.NewStringConfig(memory.NewConfig(defaultLockName), defaultLockName),
			runTimeout:          wrapper.NewDurationConfig(memory.NewConfig(runTimeout), defaultRunTimeout),
		}
	}
}

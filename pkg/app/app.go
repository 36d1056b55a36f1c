package app

import (
	"context"
	"expvar"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	metrics_util "github.com/code-payments/code-launchpad/pkg/metrics"
)

// App is a long lived application, such as a background worker, whose
// lifecycle is tied to the process.
type App interface {
	// Init initializes the application in a blocking fashion. When Init
	// returns, the application is running.
	Init(config Config, metricsProvider *newrelic.Application) error

	// RegisterWithHTTP installs the application's HTTP handlers. It is only
	// called when a listen address is configured.
	RegisterWithHTTP(mux *http.ServeMux)

	// ShutdownChan returns a channel that is closed when the application is
	// shutdown.
	ShutdownChan() <-chan struct{}

	// Stop stops the application, allowing it to clean up any resources.
	//
	// Stop should be idempotent.
	Stop()
}

// Load reads the base configuration from an optional .env file, an optional
// config file, and the environment, in increasing order of precedence.
func Load(configPath, envPath string) (BaseConfig, error) {
	if len(envPath) > 0 {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return BaseConfig{}, errors.Wrapf(err, "failed to load env file %s", envPath)
		}
	}

	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if len(configPath) > 0 {
		if _, err := os.Stat(configPath); err == nil {
			viper.SetConfigFile(configPath)
		} else if !os.IsNotExist(err) {
			return BaseConfig{}, errors.Wrap(err, "failed to check if config exists")
		}
	}

	err := viper.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return BaseConfig{}, errors.Wrap(err, "failed to load config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return BaseConfig{}, errors.New("must specify an application name")
	}
	if config.AppConfig == nil {
		config.AppConfig = make(Config)
	}

	return config, nil
}

// Setup connects the metrics provider, if configured, and configures the
// standard logger. The returned application may be nil.
func Setup(config BaseConfig) (*newrelic.Application, error) {
	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		nr, err := newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to new relic")
		}

		metricsProvider = nr
	}

	configureLogger(config, metricsProvider)

	return metricsProvider, nil
}

// Run initializes app and blocks until the process is signalled, ctx is
// done, or the application shuts down.
func Run(ctx context.Context, app App, config BaseConfig, metricsProvider *newrelic.Application) error {
	logger := logrus.StandardLogger().WithField("type", "app")

	osSigCh := make(chan os.Signal, 1)
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer signal.Stop(osSigCh)

	if config.EnableExpvar || config.EnablePprof {
		debugHTTPMux := http.NewServeMux()
		if config.EnableExpvar {
			debugHTTPMux.Handle("/debug/vars", expvar.Handler())
		}
		if config.EnablePprof {
			debugHTTPMux.HandleFunc("/debug/pprof/", pprof.Index)
			debugHTTPMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
			debugHTTPMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
			debugHTTPMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
			debugHTTPMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		}

		go func() {
			for {
				if err := http.ListenAndServe(config.DebugListenAddress, debugHTTPMux); err != nil {
					logger.WithError(err).Warn("Debug HTTP server failed. Retrying in 5s...")
				}
				time.Sleep(5 * time.Second)
			}
		}()
	}

	var lis net.Listener
	if len(config.ListenAddress) > 0 {
		var err error
		lis, err = net.Listen("tcp", config.ListenAddress)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", config.ListenAddress)
		}
	}

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		if lis != nil {
			lis.Close()
		}
		return errors.Wrap(err, "failed to initialize application")
	}

	var server *http.Server
	serverShutdownCh := make(chan struct{})
	if lis != nil {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		app.RegisterWithHTTP(mux)

		server = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			if err := server.Serve(lis); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("http serve stopped")
			} else {
				logger.Info("http server stopped")
			}

			close(serverShutdownCh)
		}()
	}

	// Wait for the following shutdown conditions:
	//    1. OS Signal telling us to shutdown
	//    2. The caller's context is done
	//    3. The HTTP server has shutdown (for whatever reason)
	//    4. The application has shutdown (for whatever reason)
	select {
	case <-osSigCh:
		logger.Info("interrupt received, shutting down")
	case <-ctx.Done():
		logger.Info("context done, shutting down")
	case <-serverShutdownCh:
		logger.Info("http server shutdown")
	case <-app.ShutdownChan():
		logger.Info("app shutdown")
	}

	shutdownCh := make(chan struct{})
	go func() {
		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownGracePeriod)
			_ = server.Shutdown(shutdownCtx)
			cancel()
		}
		app.Stop()

		close(shutdownCh)
	}()

	select {
	case <-shutdownCh:
		return nil
	case <-time.After(config.ShutdownGracePeriod):
		return errors.Errorf("failed to stop the application within %v", config.ShutdownGracePeriod)
	}
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics_util.NewLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}

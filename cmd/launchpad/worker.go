package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/code-payments/code-launchpad/pkg/app"
	async_distribution "github.com/code-payments/code-launchpad/pkg/launchpad/async/distribution"
	"github.com/code-payments/code-launchpad/pkg/metrics"
)

const metadataGatewayPath = "/metadata/"

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the scheduled fee distribution worker",
	Long: `
Runs the fee distribution worker until interrupted. When the etcd object
store is configured, its metadata gateway is served on the listen address.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(cmd.Context(), &workerApp{conf: conf}, baseConfig, metricsProvider)
	},
}

type workerApp struct {
	log  *logrus.Entry
	conf *launchpadConfig

	deps   *dependencies
	worker async_distribution.Worker

	cancel     context.CancelFunc
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

func (a *workerApp) Init(_ app.Config, metricsProvider *newrelic.Application) error {
	a.log = logrus.StandardLogger().WithField("type", "cmd/launchpad/worker")
	a.shutdownCh = make(chan struct{})

	ctx, cancel := context.WithCancel(metrics.NewContext(context.Background(), metricsProvider))
	a.cancel = cancel

	deps, err := newDependencies(ctx, a.conf)
	if err != nil {
		cancel()
		return err
	}
	a.deps = deps

	distributor, err := deps.newDistributor()
	if err != nil {
		cancel()
		deps.Close()
		return err
	}
	a.worker = async_distribution.New(distributor, deps.store, deps.locks, async_distribution.WithEnvConfigs())

	go func() {
		defer close(a.shutdownCh)

		err := a.worker.Start(ctx)
		if err != nil && err != context.Canceled {
			a.log.WithError(err).Warn("fee distribution worker terminated unexpectedly")
		}
	}()

	return nil
}

func (a *workerApp) RegisterWithHTTP(mux *http.ServeMux) {
	if a.deps.objectStore == nil {
		return
	}
	mux.Handle(metadataGatewayPath, http.StripPrefix(metadataGatewayPath, a.deps.objectStore))
}

func (a *workerApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

func (a *workerApp) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		<-a.shutdownCh
		a.deps.Close()
	})
}

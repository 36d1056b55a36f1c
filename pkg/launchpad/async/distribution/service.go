package async_distribution

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-launchpad/pkg/launchpad/async"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
	"github.com/code-payments/code-launchpad/pkg/launchpad/distribution"
	"github.com/code-payments/code-launchpad/pkg/lock"
	"github.com/code-payments/code-launchpad/pkg/metrics"
)

const transactionName = "async__fee_distribution_service"

// ErrLostLock is returned when the distribution lock expires mid run.
var ErrLostLock = errors.New("distribution lock lost")

// Distributor pays out the community vault of a single mint.
type Distributor interface {
	Run(ctx context.Context, mint string, exclude string) (*distribution.Summary, error)
}

// Worker is the fee distribution service. RunOnce triggers a run outside
// the schedule.
type Worker interface {
	async.Service
	RunOnce(ctx context.Context) ([]*distribution.Summary, error)
}

type service struct {
	log         *logrus.Entry
	conf        *conf
	distributor Distributor
	assets      registry.Store
	locks       lock.Manager

	runMu sync.Mutex
}

// New returns a worker that periodically distributes fees for every
// registered mint, excluding each mint's own creator. A distributed lock
// ensures a single replica pays at a time.
func New(distributor Distributor, assets registry.Store, locks lock.Manager, configProvider ConfigProvider) Worker {
	return &service{
		log:         logrus.StandardLogger().WithField("service", "fee_distribution"),
		conf:        configProvider(),
		distributor: distributor,
		assets:      assets,
		locks:       locks,
	}
}

func (s *service) Start(serviceCtx context.Context) error {
	if s.conf.disableDistribution.Get(serviceCtx) {
		s.log.Info("fee distribution is disabled")
		<-serviceCtx.Done()
		return serviceCtx.Err()
	}

	schedule := s.conf.schedule.Get(serviceCtx)

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(&cronLogger{log: s.log})))
	_, err := scheduler.AddFunc(schedule, func() {
		if _, err := s.RunOnce(serviceCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithError(err).Warn("fee distribution run failed")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid distribution schedule %q", schedule)
	}

	s.log.WithField("schedule", schedule).Info("starting fee distribution")
	scheduler.Start()

	<-serviceCtx.Done()

	// Wait for an in-flight run, which must not be interrupted mid batch.
	<-scheduler.Stop().Done()

	return serviceCtx.Err()
}

// RunOnce distributes fees for every registered mint if this replica can
// take the distribution lock. It returns the summaries of mints that were
// processed, and nil when another replica holds the lock.
func (s *service) RunOnce(ctx context.Context) ([]*distribution.Summary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	log := s.log.WithField("method", "RunOnce")

	ctx, txn, end := metrics.StartTransaction(ctx, transactionName)
	defer end()

	summaries, err := s.runOnce(ctx, log)
	if err != nil && txn != nil {
		txn.NoticeError(err)
	}
	return summaries, err
}

func (s *service) runOnce(ctx context.Context, log *logrus.Entry) ([]*distribution.Summary, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.conf.runTimeout.Get(ctx))
	defer cancel()

	distributedLock, err := s.locks.Create(runCtx, s.conf.lockName.Get(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "error creating distribution lock")
	}

	lostCh, err := distributedLock.TryAcquire(runCtx)
	if err == lock.ErrLockHeld {
		log.Debug("distribution lock held by another replica, skipping run")
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "error acquiring distribution lock")
	}
	defer func() {
		if err := distributedLock.Unlock(context.Background()); err != nil {
			log.WithError(err).Warn("failure releasing distribution lock")
		}
	}()

	assets, err := s.assets.ListAssets(runCtx)
	if err != nil {
		return nil, errors.Wrap(err, "error listing assets")
	}

	var summaries []*distribution.Summary
	for _, asset := range assets {
		select {
		case <-lostCh:
			return summaries, ErrLostLock
		case <-runCtx.Done():
			return summaries, runCtx.Err()
		default:
		}

		assetLog := log.WithField("mint", asset.Mint)

		summary, err := s.distributor.Run(runCtx, asset.Mint, asset.Creator)
		if err != nil {
			assetLog.WithError(err).Warn("failure distributing fees for mint")
			continue
		}
		summaries = append(summaries, summary)
	}

	log.WithField("mints", len(summaries)).Debug("fee distribution run complete")
	return summaries, nil
}

// cronLogger adapts logrus to the cron.Logger interface.
type cronLogger struct {
	log *logrus.Entry
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(toFields(keysAndValues)).Warn(msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

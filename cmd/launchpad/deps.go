package main

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	v3 "go.etcd.io/etcd/client/v3"

	pg "github.com/code-payments/code-launchpad/pkg/database/postgres"
	"github.com/code-payments/code-launchpad/pkg/launchpad/confirm"
	"github.com/code-payments/code-launchpad/pkg/launchpad/data/registry"
	registry_firestore "github.com/code-payments/code-launchpad/pkg/launchpad/data/registry/firestore"
	registry_memory "github.com/code-payments/code-launchpad/pkg/launchpad/data/registry/memory"
	registry_postgres "github.com/code-payments/code-launchpad/pkg/launchpad/data/registry/postgres"
	"github.com/code-payments/code-launchpad/pkg/launchpad/distribution"
	"github.com/code-payments/code-launchpad/pkg/launchpad/event"
	event_kafka "github.com/code-payments/code-launchpad/pkg/launchpad/event/kafka"
	"github.com/code-payments/code-launchpad/pkg/launchpad/issuance"
	"github.com/code-payments/code-launchpad/pkg/launchpad/metadata"
	metadata_etcd "github.com/code-payments/code-launchpad/pkg/launchpad/metadata/storage/etcd"
	metadata_gcs "github.com/code-payments/code-launchpad/pkg/launchpad/metadata/storage/gcs"
	"github.com/code-payments/code-launchpad/pkg/launchpad/vault"
	"github.com/code-payments/code-launchpad/pkg/lock"
	lock_etcd "github.com/code-payments/code-launchpad/pkg/lock/etcd"
	lock_memory "github.com/code-payments/code-launchpad/pkg/lock/memory"
	"github.com/code-payments/code-launchpad/pkg/solana"
)

// dependencies are the long lived clients shared by every command.
type dependencies struct {
	log  *logrus.Entry
	conf *launchpadConfig

	sc      solana.Client
	waiter  solana.SignatureWaiter
	cluster solana.Cluster
	deriver *vault.Deriver

	etcd        *v3.Client
	objectStore *metadata_etcd.Store
	publisher   *metadata.Publisher

	store  registry.Store
	events event.Publisher
	locks  lock.Manager

	closers []func()
}

func newDependencies(ctx context.Context, conf *launchpadConfig) (_ *dependencies, err error) {
	deps := &dependencies{
		log:  logrus.StandardLogger().WithField("type", "cmd/launchpad"),
		conf: conf,
	}
	defer func() {
		if err != nil {
			deps.Close()
		}
	}()

	clientConfig := solana.DefaultClientConfig()
	if conf.RequestsPerSecond > 0 {
		clientConfig.RequestsPerSecond = conf.RequestsPerSecond
	}
	deps.sc = solana.New(conf.RPCEndpoint, clientConfig)

	wsEndpoint := conf.WSEndpoint
	if len(wsEndpoint) == 0 {
		wsEndpoint = solana.WebsocketEndpoint(conf.RPCEndpoint)
	}
	deps.waiter = solana.NewSignatureWaiter(wsEndpoint)

	deps.cluster = solana.Cluster(conf.Cluster)
	if len(deps.cluster) == 0 {
		deps.cluster = solana.ClusterFromEndpoint(conf.RPCEndpoint)
	}

	deps.deriver, err = vault.NewDeriver(conf.VaultSeed)
	if err != nil {
		return nil, err
	}

	if len(conf.EtcdEndpoints) > 0 {
		deps.etcd, err = v3.New(v3.Config{
			Endpoints:   conf.EtcdEndpoints,
			DialTimeout: conf.EtcdDialTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to etcd")
		}
		deps.closers = append(deps.closers, func() { deps.etcd.Close() })
	}

	if err := deps.setupMetadata(ctx); err != nil {
		return nil, err
	}
	if err := deps.setupRegistry(ctx); err != nil {
		return nil, err
	}
	if err := deps.setupLocks(); err != nil {
		return nil, err
	}

	if len(conf.KafkaBrokers) > 0 {
		deps.events = event_kafka.New(conf.KafkaBrokers, conf.KafkaTopic)
		deps.closers = append(deps.closers, func() { deps.events.Close() })
	} else {
		deps.events = event.NewNoopPublisher()
	}

	return deps, nil
}

func (d *dependencies) setupMetadata(ctx context.Context) error {
	var primary, alternate metadata.ObjectStore

	if len(d.conf.MetadataBucket) > 0 {
		gcsStore, err := metadata_gcs.New(ctx, d.conf.MetadataBucket)
		if err != nil {
			return errors.Wrap(err, "error initializing metadata bucket")
		}
		primary = gcsStore
	}

	if d.etcd != nil && len(d.conf.GatewayURL) > 0 {
		d.objectStore = metadata_etcd.New(d.etcd, d.conf.ObjectPrefix, d.conf.GatewayURL)
		alternate = d.objectStore
	}

	publisher, err := metadata.NewPublisher(
		d.conf.PlaceholderBaseURL,
		metadata.DefaultStrategies(primary, alternate, d.conf.PlaceholderBaseURL)...,
	)
	if err != nil {
		return errors.Wrap(err, "invalid placeholder_base_url")
	}
	d.publisher = publisher
	return nil
}

func (d *dependencies) setupRegistry(ctx context.Context) error {
	switch d.conf.RegistryBackend {
	case registryBackendMemory, "":
		d.log.Warn("using the in-memory registry, assets will not persist")
		d.store = registry_memory.New()
	case registryBackendPostgres:
		db, err := pg.Open(ctx, &pg.Config{
			AuthMode:           pg.AuthMode(d.conf.PostgresAuthMode),
			User:               d.conf.PostgresUser,
			Password:           d.conf.PostgresPassword,
			Host:               d.conf.PostgresHost,
			Port:               d.conf.PostgresPort,
			DbName:             d.conf.PostgresDbName,
			MaxOpenConnections: d.conf.PostgresMaxConns,
			MaxIdleConnections: d.conf.PostgresMaxConns,
			ConnMaxLifetime:    d.conf.PostgresConnMaxAge,
		})
		if err != nil {
			return errors.Wrap(err, "error opening registry database")
		}
		d.closers = append(d.closers, func() { db.Close() })
		d.store = registry_postgres.New(db)
	case registryBackendFirestore:
		client, err := firestore.NewClient(ctx, d.conf.FirestoreProject)
		if err != nil {
			return errors.Wrap(err, "error creating firestore client")
		}
		d.closers = append(d.closers, func() { client.Close() })
		d.store = registry_firestore.New(client)
	default:
		return errors.Errorf("unsupported registry backend: %s", d.conf.RegistryBackend)
	}
	return nil
}

func (d *dependencies) setupLocks() error {
	switch d.conf.LockBackend {
	case lockBackendMemory, "":
		d.locks = lock_memory.NewLockManager()
	case lockBackendEtcd:
		if d.etcd == nil {
			return errors.New("etcd locks require etcd_endpoints")
		}
		lm, err := lock_etcd.NewLockManager(d.etcd, d.conf.LockRoot, d.conf.LockTTL)
		if err != nil {
			return err
		}
		// Registered after the etcd client, so it closes first.
		d.closers = append(d.closers, lm.Close)
		d.locks = lm
	default:
		return errors.Errorf("unsupported lock backend: %s", d.conf.LockBackend)
	}
	return nil
}

func (d *dependencies) newEngine() *confirm.Engine {
	return confirm.NewEngine(d.sc, d.waiter, confirm.WithEnvConfigs(d.cluster))
}

func (d *dependencies) newIssuanceService() *issuance.Service {
	return issuance.NewService(d.sc, d.deriver, d.publisher, d.newEngine(), registry.NewWriter(d.store), d.events)
}

func (d *dependencies) newDistributor() (*distribution.Distributor, error) {
	if len(d.conf.FeePayerKeypair) == 0 {
		return nil, errors.New("fee_payer_keypair is required to distribute")
	}

	feePayer, err := loadKeypair(d.conf.FeePayerKeypair)
	if err != nil {
		return nil, errors.Wrap(err, "error loading fee payer")
	}

	return distribution.NewDistributor(d.sc, feePayer, d.deriver, d.newEngine(), d.store, d.events), nil
}

// Close releases clients in reverse order of creation.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

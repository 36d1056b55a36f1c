package main

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/app"
	pg "github.com/code-payments/code-launchpad/pkg/database/postgres"
	"github.com/code-payments/code-launchpad/pkg/launchpad/metadata"
)

const (
	registryBackendMemory    = "memory"
	registryBackendPostgres  = "postgres"
	registryBackendFirestore = "firestore"

	lockBackendMemory = "memory"
	lockBackendEtcd   = "etcd"
)

// launchpadConfig is decoded from the "app" section of the configuration.
type launchpadConfig struct {
	RPCEndpoint       string  `mapstructure:"rpc_endpoint"`
	WSEndpoint        string  `mapstructure:"ws_endpoint"`
	Cluster           string  `mapstructure:"cluster"`
	RequestsPerSecond float64 `mapstructure:"rpc_requests_per_second"`

	VaultSeed string `mapstructure:"vault_seed"`

	// FeePayerKeypair locates the keypair paying distribution fees and
	// recipient token account rent.
	FeePayerKeypair string `mapstructure:"fee_payer_keypair"`

	PlaceholderBaseURL string `mapstructure:"placeholder_base_url"`
	MetadataBucket     string `mapstructure:"metadata_bucket"`

	EtcdEndpoints   []string      `mapstructure:"etcd_endpoints"`
	EtcdDialTimeout time.Duration `mapstructure:"etcd_dial_timeout"`
	ObjectPrefix    string        `mapstructure:"object_prefix"`
	GatewayURL      string        `mapstructure:"gateway_url"`

	RegistryBackend    string        `mapstructure:"registry_backend"`
	PostgresAuthMode   string        `mapstructure:"postgres_auth_mode"`
	PostgresHost       string        `mapstructure:"postgres_host"`
	PostgresPort       int           `mapstructure:"postgres_port"`
	PostgresUser       string        `mapstructure:"postgres_user"`
	PostgresPassword   string        `mapstructure:"postgres_password"`
	PostgresDbName     string        `mapstructure:"postgres_db_name"`
	PostgresMaxConns   int           `mapstructure:"postgres_max_connections"`
	PostgresConnMaxAge time.Duration `mapstructure:"postgres_conn_max_lifetime"`
	FirestoreProject   string        `mapstructure:"firestore_project"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	LockBackend string        `mapstructure:"lock_backend"`
	LockRoot    string        `mapstructure:"lock_root"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

var defaultLaunchpadConfig = launchpadConfig{
	RPCEndpoint:       "https://api.devnet.solana.com",
	RequestsPerSecond: 10,

	PlaceholderBaseURL: "https://launchpad.example.com/tokens",

	EtcdDialTimeout: 5 * time.Second,

	RegistryBackend:    registryBackendMemory,
	PostgresAuthMode:   string(pg.AuthModePassword),
	PostgresPort:       5432,
	PostgresMaxConns:   10,
	PostgresConnMaxAge: 5 * time.Minute,

	KafkaTopic: "launchpad-events",

	LockBackend: lockBackendMemory,
	LockRoot:    "/launchpad/locks",
	LockTTL:     15 * time.Second,
}

func init() {
	for key, envName := range map[string]string{
		"rpc_endpoint":               "SOLANA_RPC_ENDPOINT",
		"ws_endpoint":                "SOLANA_WS_ENDPOINT",
		"cluster":                    "SOLANA_CLUSTER",
		"rpc_requests_per_second":    "SOLANA_RPC_REQUESTS_PER_SECOND",
		"vault_seed":                 "VAULT_SEED",
		"fee_payer_keypair":          "FEE_PAYER_KEYPAIR",
		"placeholder_base_url":       "METADATA_PLACEHOLDER_BASE_URL",
		"metadata_bucket":            "METADATA_BUCKET",
		"etcd_endpoints":             "ETCD_ENDPOINTS",
		"etcd_dial_timeout":          "ETCD_DIAL_TIMEOUT",
		"object_prefix":              "METADATA_OBJECT_PREFIX",
		"gateway_url":                "METADATA_GATEWAY_URL",
		"registry_backend":           "REGISTRY_BACKEND",
		"postgres_auth_mode":         "POSTGRES_AUTH_MODE",
		"postgres_host":              "POSTGRES_HOST",
		"postgres_port":              "POSTGRES_PORT",
		"postgres_user":              "POSTGRES_USER",
		"postgres_password":          "POSTGRES_PASSWORD",
		"postgres_db_name":           "POSTGRES_DB_NAME",
		"postgres_max_connections":   "POSTGRES_MAX_CONNECTIONS",
		"postgres_conn_max_lifetime": "POSTGRES_CONN_MAX_LIFETIME",
		"firestore_project":          "FIRESTORE_PROJECT",
		"kafka_brokers":              "KAFKA_BROKERS",
		"kafka_topic":                "KAFKA_TOPIC",
		"lock_backend":               "LOCK_BACKEND",
		"lock_root":                  "LOCK_ROOT",
		"lock_ttl":                   "LOCK_TTL",
	} {
		app.BindAppEnv(key, envName)
	}
}

func decodeLaunchpadConfig(raw app.Config) (*launchpadConfig, error) {
	conf := defaultLaunchpadConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &conf,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error creating config decoder")
	}
	if err := decoder.Decode(map[string]interface{}(raw)); err != nil {
		return nil, errors.Wrap(err, "error decoding app config")
	}

	if len(conf.RPCEndpoint) == 0 {
		return nil, errors.New("rpc_endpoint is required")
	}
	if len(conf.VaultSeed) == 0 {
		return nil, errors.New("vault_seed is required")
	}
	if err := metadata.ValidatePlaceholderBase(conf.PlaceholderBaseURL); err != nil {
		return nil, errors.Wrap(err, "invalid placeholder_base_url")
	}

	conf.EtcdEndpoints = trimAll(conf.EtcdEndpoints)
	conf.KafkaBrokers = trimAll(conf.KafkaBrokers)

	return &conf, nil
}

func trimAll(values []string) []string {
	var trimmed []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if len(value) > 0 {
			trimmed = append(trimmed, value)
		}
	}
	return trimmed
}

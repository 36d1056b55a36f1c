package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

// DriverName is the traced pgx driver registered by nrpgx.
const DriverName = "nrpgx"

// AuthMode selects how credentials for the connection are obtained.
type AuthMode string

const (
	AuthModePassword AuthMode = "password"
	AuthModeAwsIam   AuthMode = "aws_iam"
)

type Config struct {
	AuthMode AuthMode

	User     string
	Password string
	Host     string
	Port     int
	DbName   string

	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Open returns a pinged connection pool for the provided config.
func Open(ctx context.Context, conf *Config) (*sql.DB, error) {
	var db *sql.DB
	var err error
	switch conf.AuthMode {
	case AuthModeAwsIam:
		var awsConfig aws.Config
		awsConfig, err = external.LoadDefaultAWSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "error loading aws config")
		}
		db, err = NewWithAwsIam(ctx, conf, awsConfig)
	case AuthModePassword, "":
		db, err = NewWithUsernameAndPassword(ctx, conf)
	default:
		return nil, errors.Errorf("unsupported auth mode: %s", conf.AuthMode)
	}
	if err != nil {
		return nil, err
	}

	if conf.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(conf.MaxOpenConnections)
	}
	if conf.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(conf.MaxIdleConnections)
	}
	if conf.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(conf.ConnMaxLifetime)
	}

	return db, nil
}

// NewWithAwsIam gets a DB connection pool using AWS IAM credentials.
// Only provisioned Aurora clusters support this.
//
// https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/UsingWithRDS.IAMDBAuth.Connecting.Go.html
func NewWithAwsIam(ctx context.Context, conf *Config, awsConfig aws.Config) (*sql.DB, error) {
	rdsClient := rds.New(awsConfig)

	endpoint := fmt.Sprintf("%s:%d", conf.Host, conf.Port)
	authToken, err := rdsutils.BuildAuthToken(endpoint, rdsClient.Region, conf.User, rdsClient.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "error building rds auth token")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		conf.Host, conf.Port, conf.User, authToken, conf.DbName,
	)
	return open(ctx, dsn)
}

// NewWithUsernameAndPassword gets a DB connection pool using username/password credentials.
func NewWithUsernameAndPassword(ctx context.Context, conf *Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		conf.User, conf.Password, conf.Host, conf.Port, conf.DbName,
	)
	return open(ctx, dsn)
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error opening db")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error pinging db")
	}

	return db, nil
}

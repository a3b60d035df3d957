package postgres

import (
	"context"
	"fmt"

	ohlcv "github.com/gokulmuthuR/crypto-ml-pipeline"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgtype"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sdcoffey/big"
)

type Config struct {
	Address      string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MigrationDir string
}

type Client struct {
	database *sqlx.DB
}

func NewClient(ctx context.Context, config *Config) (*Client, error) {
	database, err := sqlx.Connect("pgx", databaseAddress(config))
	if err != nil {
		return nil, fmt.Errorf("could not connect database: [%v]", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("could not ping database: [%v]", err)
	}

	return &Client{database: database}, nil
}

func (c *Client) instance() *sqlx.DB {
	return c.database
}

func (c *Client) Close() error {
	return c.database.Close()
}

func RunMigration(logger ohlcv.Logger, config *Config) error {
	if len(config.MigrationDir) == 0 {
		logger.Infof("postgres migration disabled")
		return nil
	}

	logger.Infof("starting postgres migration")

	migrationsDir := "file://" + config.MigrationDir

	migration, err := migrate.New(migrationsDir, databaseAddress(config))
	if err != nil {
		return err
	}

	err = migration.Up()
	if err != nil {
		if err == migrate.ErrNoChange {
			logger.Infof("postgres migration skipped as there are no changes")
			return nil
		}

		return err
	}

	logger.Infof("postgres migration performed successfully")

	return nil
}

func databaseAddress(config *Config) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		config.User,
		config.Password,
		config.Address,
		config.Name,
		config.SSLMode,
	)
}

func decimalToNumeric(value big.Decimal) (pgtype.Numeric, error) {
	var result pgtype.Numeric

	if err := result.Set(value.Float()); err != nil {
		return pgtype.Numeric{}, err
	}

	return result, nil
}

func numericToDecimal(value pgtype.Numeric) (big.Decimal, error) {
	var result float64

	if err := value.AssignTo(&result); err != nil {
		return big.ZERO, err
	}

	return big.NewDecimal(result), nil
}

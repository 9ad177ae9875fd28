package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fatali-fataliyev/finance_tracker/logging"
	"github.com/go-sql-driver/mysql"
)

const (
	pingAttempts = 15
	pingInterval = 3 * time.Second
)

var mysqlDialect = dialect{
	name: "MySQL",
	upsertLimit: "INSERT INTO category_limits (username, category, amount_cents) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE amount_cents = VALUES(amount_cents);",
	isDuplicate: func(err error) bool {
		var mysqlErr *mysql.MySQLError
		return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
	},
}

// OpenMySQL waits for the server, creates the database named in dsn if it is
// missing and applies migrations.
func OpenMySQL(dsn string) (*SQLStorage, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true

	dbname := cfg.DBName
	if dbname == "" {
		return nil, errors.New("mysql dsn does not name a database")
	}

	adminCfg := cfg.Clone()
	adminCfg.DBName = ""

	logging.Logger.Info("Connecting to MySQL server for initialization...")
	adminDb, err := sql.Open("mysql", adminCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open admin mysql handle: %w", err)
	}
	defer adminDb.Close()

	connected := false
	for i := 0; i < pingAttempts; i++ {
		if err := adminDb.Ping(); err == nil {
			connected = true
			break
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/%d)", i+1, pingAttempts)
		time.Sleep(pingInterval)
	}
	if !connected {
		return nil, errors.New("database unreachable after multiple attempts")
	}

	var dbnameExistence string
	checkDbnameExistQuery := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	err = adminDb.QueryRow(checkDbnameExistQuery, dbname).Scan(&dbnameExistence)
	if errors.Is(err, sql.ErrNoRows) {
		logging.Logger.Infof("Database '%s' does not exist, creating...", dbname)
		createDbSql := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;", dbname)
		if _, err := adminDb.Exec(createDbSql); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %w", err)
	}

	finalDsn := cfg.FormatDSN()
	logging.Logger.Info("Running migrations...")
	if err := runMigrations("mysql", finalDsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("mysql", finalDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Logger.Info("Connected to database successfully")
	return &SQLStorage{db: db, dialect: mysqlDialect}, nil
}

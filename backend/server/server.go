package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/fitlogd/fitlog/backend/server/internal/database"
	"github.com/fitlogd/fitlog/backend/server/internal/server"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

const (
	snapshotMaxAge = 90 * 24 * time.Hour
)

var (
	serverLogger  *logrus.Logger
	getLoggerOnce sync.Once
)

func getLogger() *logrus.Logger {
	getLoggerOnce.Do(func() {
		logFile := os.Getenv("FITLOG_LOG_FILE")
		if logFile == "" {
			logFile = "fitlog-server.log"
		}
		lumberjackLogger := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    1, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
		}

		logFormatter := new(logrus.TextFormatter)
		logFormatter.TimestampFormat = time.RFC3339
		logFormatter.FullTimestamp = true

		serverLogger = logrus.New()
		serverLogger.SetFormatter(logFormatter)
		serverLogger.SetLevel(logrus.InfoLevel)
		serverLogger.SetOutput(lumberjackLogger)
	})
	return serverLogger
}

func isTestEnvironment() bool {
	return os.Getenv("FITLOG_TEST") != ""
}

func isProductionEnvironment() bool {
	return os.Getenv("FITLOG_ENV") == "production"
}

func OpenDB() (*database.DB, error) {
	config := gorm.Config{TranslateError: true}
	if isTestEnvironment() {
		db, err := database.OpenSQLite("file::memory:?_journal_mode=WAL&cache=shared", &config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to the DB: %w", err)
		}
		underlyingDb, err := db.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access underlying DB: %w", err)
		}
		underlyingDb.SetMaxOpenConns(1)
		db.Exec("PRAGMA journal_mode = WAL")
		if err := db.AddDatabaseTables(); err != nil {
			return nil, fmt.Errorf("failed to add database tables: %w", err)
		}
		return db, nil
	}

	dsn := os.Getenv("FITLOG_POSTGRES_DB")
	if dsn == "" {
		return nil, fmt.Errorf("cannot open DB: FITLOG_POSTGRES_DB is not set")
	}
	db, err := database.OpenPostgres(dsn, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the DB: %w", err)
	}
	if err := db.AddDatabaseTables(); err != nil {
		return nil, fmt.Errorf("failed to add database tables: %w", err)
	}
	if err := db.CreateIndices(); err != nil {
		return nil, fmt.Errorf("failed to create indices: %w", err)
	}
	return db, nil
}

func cron(ctx context.Context, db *database.DB, stats *statsd.Client) error {
	numPruned, err := db.PruneLogSnapshots(ctx, snapshotMaxAge)
	if err != nil {
		return fmt.Errorf("db.PruneLogSnapshots: %w", err)
	}
	if numPruned > 0 {
		getLogger().Infof("pruned %d log snapshots", numPruned)
	}
	if stats != nil {
		stats.Count("fitlog.snapshots_pruned", numPruned, []string{}, 1.0)
	}
	return nil
}

func runBackgroundJobs(ctx context.Context, db *database.DB, stats *statsd.Client) {
	time.Sleep(5 * time.Second)
	for {
		err := cron(ctx, db, stats)
		if err != nil {
			getLogger().Errorf("cron failure: %v", err)
		}
		time.Sleep(10 * time.Minute)
	}
}

func main() {
	ctx := context.Background()

	db, err := OpenDB()
	if err != nil {
		panic(err)
	}
	if err := db.Ping(); err != nil {
		panic(fmt.Errorf("failed to ping DB: %w", err))
	}

	var stats *statsd.Client
	if isProductionEnvironment() {
		stats, err = statsd.New("unix:///var/run/datadog/dsd.socket")
		if err != nil {
			getLogger().Errorf("failed to start statsd: %v", err)
		}
	}

	go runBackgroundJobs(ctx, db, stats)

	port := os.Getenv("FITLOG_PORT")
	if port == "" {
		port = "3000"
	}

	srv := server.NewServer(
		db,
		server.WithStatsd(stats),
		server.WithCron(cron),
		server.IsProductionEnvironment(isProductionEnvironment()),
		server.IsTestEnvironment(isTestEnvironment()),
	)
	getLogger().Infof("starting fitlog server on port %s", port)
	if err := srv.Run(ctx, ":"+port); err != nil {
		panic(err)
	}
}

package logger

import (
	"context"
	"fmt"
	"time"

	"go-reports/internal/config"
	"go-reports/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to the background worker.
type LogEntry struct {
	Level    zapcore.Level
	Message  string
	Username string // Acting principal, when attached to the entry
	Layer    string // Map-server layer, when the entry concerns one
	Caller   string // Function name
}

type logRecord struct {
	Message      string    `bson:"message"`
	Username     string    `bson:"username,omitempty"`
	Layer        string    `bson:"layer,omitempty"`
	Caller       string    `bson:"caller,omitempty"`
	LogLevelId   int       `bson:"log_level_id"`
	AppId        string    `bson:"app_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc"`
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	db      *mongo.Database
	logChan chan LogEntry
	appId   string
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	writer := &DBLogWriter{
		db:      mongodb.DB,
		logChan: make(chan LogEntry, 1000), // Buffer 1000 logs
		appId:   cfg.AppId,
	}

	// Start the background worker immediately
	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook
func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop the entry rather than block a request
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

func (w *DBLogWriter) processLogs() {
	for entry := range w.logChan {
		record := logRecord{
			Message:      entry.Message,
			Username:     entry.Username,
			Layer:        entry.Layer,
			Caller:       entry.Caller,
			LogLevelId:   mapLevelToInt(entry.Level),
			AppId:        w.appId,
			CreatedOnUtc: time.Now().UTC(),
		}

		// Insert errors are ignored to keep the app running
		w.db.Collection("logs").InsertOne(context.Background(), record)
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}

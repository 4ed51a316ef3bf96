package logger

import (
	"go-reports/internal/config"
	"go-reports/internal/database"

	"go.uber.org/zap"
)

// NewLogger builds the application logger. Entries go to the console and,
// through a wrapped core, to the async Mongo log sink.
func NewLogger(cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	dbWriter := NewDBLogWriter(mongodb, cfg)

	finalCore := NewDBCore(baseLogger.Core(), dbWriter)

	return zap.New(finalCore, zap.AddCaller()), nil
}

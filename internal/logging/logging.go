package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a no-op until Init is called.
var Logger = zap.NewNop().Sugar()

func Init(level string) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := config.Build()
	if err != nil {
		return
	}
	Logger = logger.Sugar()
}

// Sync flushes buffered entries; call it before the program exits.
func Sync() {
	_ = Logger.Sync()
}

package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"meriawaaz-be/config"
)

// New builds the application logger. Development mode logs human readable
// console output, everything else logs JSON.
func New(server config.Server, cfg config.Logger) *zap.SugaredLogger {
	zapCfg := zap.NewProductionConfig()
	if server.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zap.Must(zapCfg.Build()).Sugar()
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

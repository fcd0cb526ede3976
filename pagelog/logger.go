// Package pagelog builds the zap logger every other package in this module
// accepts, in place of the teacher's bare log.Print/log.Printf calls.
//
// Grounded on EdgeComet-engine/internal/common/logger's DynamicLogger-over-
// zap construction: console core plus an optional rotating file core, teed
// together. Simplified from the teacher's version by dropping runtime level
// switching (SwitchToConfiguredLevel/EnsureInfoLevelForShutdown) — this
// module has no long-lived daemon process with a startup/shutdown log-level
// dance to manage, so a single level fixed at construction is enough.
package pagelog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kallowynd/pageruntime/config"
)

// New builds a *zap.Logger from a config.LoggingConfig: always a console
// core, plus a rotating file core when cfg.File is non-empty.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(os.Stdout)),
		level,
	)
	cores := []zapcore.Core{consoleCore}

	if cfg.File != "" {
		fileEncoderCfg := zap.NewProductionEncoderConfig()
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				Compress:   true,
			}),
			level,
		)
		cores = append(cores, fileCore)
	}

	var core zapcore.Core
	if len(cores) == 1 {
		core = cores[0]
	} else {
		core = zapcore.NewTee(cores...)
	}
	return zap.New(core), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "debug":
		return zap.DebugLevel, nil
	case "info", "":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("pagelog: unknown level %q", s)
	}
}

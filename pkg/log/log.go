package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger = zap.NewNop()

type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func InitProd() *zap.Logger {
	return initLogger(zap.NewProductionConfig(), nil)
}

func InitDev() *zap.Logger {
	return initLogger(zap.NewDevelopmentConfig(), nil)
}

// InitWithFile behaves like InitProd (or InitDev) and additionally writes JSON
// records into a rotated log file.
func InitWithFile(dev bool, file FileOptions) *zap.Logger {
	config := zap.NewProductionConfig()
	if dev {
		config = zap.NewDevelopmentConfig()
	}
	if file.Path == "" {
		return initLogger(config, nil)
	}

	rotated := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   true,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(rotated),
		config.Level,
	)
	return initLogger(config, fileCore)
}

func initLogger(config zap.Config, extra zapcore.Core) *zap.Logger {
	options := []zap.Option{zap.AddStacktrace(zap.WarnLevel)}
	if extra != nil {
		options = append(options, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, extra)
		}))
	}

	var err error
	logger, err = config.Build(options...)
	if err != nil {
		fmt.Printf("Failed to init zap logger: %v", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)
	return logger
}

func Sync() {
	_ = logger.Sync()
}

package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// getWriteSyncer builds the output sink for the logger: a size-rotated file
// under Director, optionally teed to stdout.
func getWriteSyncer(config Config) zapcore.WriteSyncer {
	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(config.Director, "imageflow.log"),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	if config.LogInTerminal {
		return zapcore.NewMultiWriteSyncer(
			zapcore.AddSync(fileWriter),
			zapcore.AddSync(os.Stdout),
		)
	}
	return zapcore.AddSync(fileWriter)
}

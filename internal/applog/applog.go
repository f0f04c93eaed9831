// Package applog sets up the application's own structured debug log,
// distinct from the per-session SSH transcript logs in internal/sshlog.
// It writes to $HOME/.csh/logs/debug.log through a rotating file sink,
// at a level gated by the -d CLI flag.
package applog

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB   = 10
	maxBackups  = 3
	maxAgeDays  = 28
	logFileName = "debug.log"
	logSubdir   = ".csh"
)

// Init builds the global application logger. When debug is false, only
// warnings and above are recorded; when true, everything down to debug
// is recorded. The returned sync func should be deferred by the caller.
func Init(debug bool) (*zap.Logger, func(), error) {
	path, err := logPath()
	if err != nil {
		return nil, func() {}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, func() {}, err
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	level := zap.WarnLevel
	if debug {
		level = zap.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	core := zapcore.NewCore(encoder, zapcore.AddSync(rotator), level)
	logger := zap.New(core, zap.AddCaller())

	sync := func() {
		_ = logger.Sync()
		_ = rotator.Close()
	}
	return logger, sync, nil
}

// logPath returns $HOME/.csh/logs/debug.log.
func logPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, logSubdir, "logs", logFileName), nil
}

// Package logger prepares the zap core behind the global ylog logger and the
// per-run tracer data every log line carries.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/satori/uuid"
	"github.com/yusufsyaifudin/ylog"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`

	// Writer is used when File is empty. With neither set, logs are discarded
	// so they never mix with the interactive prompts.
	Writer io.Writer `yaml:"-"`
}

// Tracer is the data injected into the context of one run.
type Tracer struct {
	RemoteAddr string `json:"remote_addr"`
	TraceID    string `json:"trace_id"`
}

// NewZap builds the JSON zap logger. Close flushes it and closes the log file.
func NewZap(cfg Config) (zapLog *zap.Logger, closer func() error, err error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err = level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("unknown log level '%s': %w", cfg.Level, err)
		}
	}

	w := io.Discard
	if cfg.Writer != nil {
		w = cfg.Writer
	}

	var file *os.File
	if cfg.File != "" {
		file, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}

		w = file
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			MessageKey:     "msg",
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			LineEnding:     zapcore.DefaultLineEnding,
			LevelKey:       "level",
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
		}),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(w)), // pipe to multiple writer
		level,
	)

	zapLog = zap.New(core)
	closer = func() error {
		// syncing a terminal fails on some platforms, only files are synced
		if file == nil {
			return nil
		}

		return multierr.Append(zapLog.Sync(), file.Close())
	}

	return zapLog, closer, nil
}

// Setup sets the global ylog logger and returns ctx carrying a fresh trace id.
func Setup(ctx context.Context, cfg Config) (context.Context, func() error, error) {
	if ctx == nil {
		ctx = context.TODO()
	}

	zapLog, closer, err := NewZap(cfg)
	if err != nil {
		return ctx, nil, err
	}

	traceLog, err := ylog.NewTracer(Tracer{
		RemoteAddr: "system",
		TraceID:    uuid.NewV4().String(),
	}, ylog.WithTag("tracer"))
	if err != nil {
		return ctx, nil, multierr.Append(fmt.Errorf("error prepare tracer system data: %w", err), closer())
	}

	// inject context
	ctx = ylog.Inject(ctx, traceLog)

	// ** set global logger
	ylog.SetGlobalLogger(ylog.NewZap(zapLog))

	return ctx, closer, nil
}

// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// The site writes lifecycle, request, and error events to one JSON log per
// day under `<dir>/YYYY-MM-DD.log`.  When running in an interactive TTY we
// tee the same events to stdout through the console encoder.  Rotation,
// compression, and retention are handled by Lumberjack; no external
// log-rotate job is required.
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{Dir: cfg.Logging.Dir, Tee: tty})
//	if err != nil { … }
//	log.Infow("gateway online", "tables", 5)
//
// Request-scoped loggers travel inside context.Context so handlers and the
// table gateway can log with the request id attached:
//
//	ctx = logger.WithContext(ctx, log.With("req_id", id))
//	logger.FromContext(ctx).Errorw("list query failed", "err", err)
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Errors are written to the same sink via `ErrorOutput`.
package logger

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	Dir   string // directory for daily JSON files, created if missing
	Level string // debug, info, warn, error; empty means info
	Tee   bool   // also write to stdout
}

// New returns a *zap.SugaredLogger that writes JSON to <Dir>/YYYY-MM-DD.log.
// When opts.Tee is true, a console core is also attached.  The logger is
// installed as the process-wide default via zap.ReplaceGlobals.
func New(opts Options) (*zap.SugaredLogger, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	level := zap.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, err
		}
	}

	fileName := time.Now().Format("2006-01-02") + ".log"
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, fileName),
		MaxSize:    50, // MB
		MaxBackups: 7,  // keep last seven files
		MaxAge:     14, // days
		Compress:   true,
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), level),
	}
	if opts.Tee {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	).Sugar()

	// Make this the global logger so zap.L() and zap.S() work everywhere.
	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "dir", opts.Dir, "level", level.String(), "tee", opts.Tee)
	return z, nil
}

//
// Context helpers
//

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or the global sugared
// logger when none was attached.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && l != nil {
			return l
		}
	}
	return zap.S()
}

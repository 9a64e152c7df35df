package logging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"ducksearch/ducksearch/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

// RequestIDKey carries the request or search id used to correlate log lines.
const RequestIDKey contextKey = "request_id"

// Nop loggers until InitLogger runs, so packages and tests can log freely.
var (
	AppLogger     = zap.NewNop()
	RequestLogger = zap.NewNop()
	TimerLogger   = zap.NewNop()
	ErrorLogger   = zap.NewNop()
)

// ensureLogsDir makes sure the log folder exists
func ensureLogsDir(dir string) error {
	return os.MkdirAll(dir, os.ModePerm)
}

func InitLogger(cfg config.LogConfig) error {
	dir := cfg.Dir
	if dir == "" {
		dir = config.DefaultLogDir
	}
	if err := ensureLogsDir(dir); err != nil {
		return err
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	rotating := func(name string, maxSize, maxAge int) zapcore.WriteSyncer {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(dir, name), MaxSize: maxSize, MaxAge: maxAge, Compress: true,
		})
	}

	// app.log (general logs)
	appCore := zapcore.NewCore(encoder, rotating("app.log", 100, 28), zap.InfoLevel)
	// error.log
	errorCore := zapcore.NewCore(encoder, rotating("error.log", 100, 30), zap.ErrorLevel)

	if cfg.Console {
		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		stderr := zapcore.Lock(os.Stderr)
		appCore = zapcore.NewTee(appCore, zapcore.NewCore(consoleEncoder, stderr, zap.WarnLevel))
		errorCore = zapcore.NewTee(errorCore, zapcore.NewCore(consoleEncoder, stderr, zap.ErrorLevel))
	}

	AppLogger = zap.New(appCore)
	ErrorLogger = zap.New(errorCore)
	// request.log
	RequestLogger = zap.New(zapcore.NewCore(encoder, rotating("request.log", 50, 7), zap.InfoLevel))
	// timer.log
	TimerLogger = zap.New(zapcore.NewCore(encoder, rotating("timer.log", 50, 7), zap.InfoLevel))
	return nil
}

// Sync flushes every logger; errors from syncing stderr are expected and ignored.
func Sync() {
	for _, l := range []*zap.Logger{AppLogger, RequestLogger, TimerLogger, ErrorLogger} {
		_ = l.Sync()
	}
}

// WithRequestID stores id on ctx for LogDuration and the search core.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// LogDuration lets you do: defer logging.LogDuration(ctx, "FuncName")()
func LogDuration(ctx context.Context, name string) func() {
	start := time.Now()
	requestID := RequestID(ctx)

	return func() {
		fields := []zap.Field{
			zap.String("func", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}

		// write ONLY to timer.log
		TimerLogger.Info("Function timed", fields...)
	}
}

// Package logger provides the process-wide structured logger used by every
// component of the scheduling engine.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger
)

// LogLevel represents available log levels.
type LogLevel string

const (
	DEBUG LogLevel = "debug"
	INFO  LogLevel = "info"
	WARN  LogLevel = "warn"
	ERROR LogLevel = "error"
	PANIC LogLevel = "panic"
	FATAL LogLevel = "fatal"
)

// LogFormat represents output formats.
type LogFormat string

const (
	JSON    LogFormat = "json"
	CONSOLE LogFormat = "console"
)

// Config holds logger configuration.
type Config struct {
	Level      LogLevel  `json:"level"`
	Format     LogFormat `json:"format"`
	OutputPath string    `json:"output_path"`
	Caller     bool      `json:"caller"`
	Stacktrace bool      `json:"stacktrace"`
}

// DefaultConfig returns default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Format:     CONSOLE,
		OutputPath: "stdout",
		Caller:     true,
		Stacktrace: true,
	}
}

func init() {
	// Always leave a usable logger installed so package-level helpers never
	// nil-panic before InitLogger runs (tests in particular).
	_ = InitLogger(DefaultConfig())
}

// InitLogger initializes the global logger with configuration.
func InitLogger(config Config) error {
	var level zapcore.Level
	switch config.Level {
	case DEBUG:
		level = zapcore.DebugLevel
	case INFO:
		level = zapcore.InfoLevel
	case WARN:
		level = zapcore.WarnLevel
	case ERROR:
		level = zapcore.ErrorLevel
	case PANIC:
		level = zapcore.PanicLevel
	case FATAL:
		level = zapcore.FatalLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	var encoder zapcore.Encoder

	if config.Format == JSON {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writeSyncer zapcore.WriteSyncer
	if config.OutputPath == "stdout" || config.OutputPath == "" {
		writeSyncer = zapcore.AddSync(os.Stdout)
	} else {
		file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		writeSyncer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	var options []zap.Option
	if config.Caller {
		options = append(options, zap.AddCaller())
		options = append(options, zap.AddCallerSkip(1))
	}
	if config.Stacktrace {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	Logger = zap.New(core, options...)
	Sugar = Logger.Sugar()

	return nil
}

// Sync flushes any buffered log entries.
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// WithComponent adds component context to the logger.
func WithComponent(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

// WithTask adds task context to the logger.
func WithTask(taskID int) *zap.Logger {
	return Logger.With(zap.Int("task_id", taskID))
}

// WithTeam adds team context to the logger.
func WithTeam(team string) *zap.Logger {
	return Logger.With(zap.String("team", team))
}

// WithScenario adds scenario context to the logger.
func WithScenario(scenario string, runID string) *zap.Logger {
	return Logger.With(
		zap.String("scenario", scenario),
		zap.String("run_id", runID),
	)
}

// WithError adds error context to the logger.
func WithError(err error) *zap.Logger {
	return Logger.With(zap.Error(err))
}

// LogPerformance logs a duration metric for a named operation.
func LogPerformance(operation string, durationMS int64, success bool) {
	Logger.Info("performance metric",
		zap.String("operation", operation),
		zap.Int64("duration_ms", durationMS),
		zap.Bool("success", success),
	)
}

// LogScheduleMetrics logs the headline result of a scenario run.
func LogScheduleMetrics(scenario string, placed, total int, makespanDays int, maxLatenessDays float64) {
	Logger.Info("scenario completed",
		zap.String("scenario", scenario),
		zap.Int("placed", placed),
		zap.Int("total", total),
		zap.Int("makespan_days", makespanDays),
		zap.Float64("max_lateness_days", maxLatenessDays),
	)
}

// LogError logs structured error information with arbitrary context fields.
func LogError(operation string, err error, context map[string]interface{}) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Error(err),
	}
	for key, value := range context {
		fields = append(fields, zap.Any(key, value))
	}
	Logger.Error("operation failed", fields...)
}

// LogCriticalError logs a fatal structural error (cycle, dangling reference).
func LogCriticalError(operation string, err error, context map[string]interface{}) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Error(err),
		zap.String("severity", "critical"),
	}
	for key, value := range context {
		fields = append(fields, zap.Any(key, value))
	}
	Logger.Error("critical scheduling error", fields...)
}

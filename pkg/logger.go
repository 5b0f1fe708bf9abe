package pkg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log formats understood by Config.Format
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Fields is a map of fields to add to log entries
type Fields map[string]any

var (
	instance *Logger
	mu       sync.RWMutex

	// sync.Once for setting zerolog global state (to prevent data races)
	timeFormatOnce sync.Once
)

// Logger wraps zerolog with additional functionality
type Logger struct {
	*zerolog.Logger
	config  *Config
	fields  Fields
	closers []io.Closer
	mu      sync.RWMutex
}

// Config holds logger configuration
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic)
	Level string `json:"level" yaml:"level"`

	// Format is the output format (json, console)
	Format string `json:"format" yaml:"format"`

	// TimestampFormat for logs
	TimestampFormat string `json:"timestamp_format" yaml:"timestamp_format"`

	// Console output settings
	Console ConsoleConfig `json:"console" yaml:"console"`

	// File output settings
	File FileConfig `json:"file" yaml:"file"`

	// Fields are default fields added to all logs
	Fields Fields `json:"fields" yaml:"fields"`

	// AsyncWrite uses a diode writer so logging never blocks the ring
	AsyncWrite bool `json:"async_write" yaml:"async_write"`

	// BufferSize for async writer (in messages)
	BufferSize int `json:"buffer_size" yaml:"buffer_size"`
}

// ConsoleConfig for console output
type ConsoleConfig struct {
	// Enable console output
	Enable bool `json:"enable" yaml:"enable"`

	// NoColor disables color output
	NoColor bool `json:"no_color" yaml:"no_color"`

	// TimeFormat for console output
	TimeFormat string `json:"time_format" yaml:"time_format"`

	// Output target (stdout, stderr)
	Output string `json:"output" yaml:"output"`
}

// FileConfig for file output
type FileConfig struct {
	// Enable file output
	Enable bool `json:"enable" yaml:"enable"`

	// Path to log file
	Path string `json:"path" yaml:"path"`

	// MaxSize in megabytes
	MaxSize int `json:"max_size" yaml:"max_size"`

	// MaxAge in days
	MaxAge int `json:"max_age" yaml:"max_age"`

	// MaxBackups to keep
	MaxBackups int `json:"max_backups" yaml:"max_backups"`

	// Compress rotated files
	Compress bool `json:"compress" yaml:"compress"`
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:           "info",
		Format:          FormatConsole,
		TimestampFormat: time.RFC3339Nano,
		Console: ConsoleConfig{
			Enable:     true,
			NoColor:    false,
			TimeFormat: "15:04:05.000",
			Output:     "stderr",
		},
		File: FileConfig{
			Enable:     false,
			Path:       "chordsim.log",
			MaxSize:    100, // 100MB
			MaxAge:     30,  // 30 days
			MaxBackups: 10,
			Compress:   true,
		},
		Fields:     make(Fields),
		AsyncWrite: false,
		BufferSize: 1000,
	}
}

// New creates a new logger instance
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	writers := []io.Writer{}
	var closers []io.Closer

	if config.Console.Enable {
		var output io.Writer
		switch config.Console.Output {
		case "stderr":
			output = os.Stderr
		default:
			output = os.Stdout
		}

		if config.Format == FormatConsole {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: config.Console.TimeFormat,
				NoColor:    config.Console.NoColor,
			})
		} else {
			writers = append(writers, output)
		}
	}

	if config.File.Enable {
		if config.File.Path == "" {
			return nil, fmt.Errorf("file output enabled without a path")
		}
		if err := os.MkdirAll(filepath.Dir(config.File.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter := &lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSize,
			MaxAge:     config.File.MaxAge,
			MaxBackups: config.File.MaxBackups,
			LocalTime:  true,
			Compress:   config.File.Compress,
		}
		writers = append(writers, fileWriter)
		closers = append(closers, fileWriter)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	if config.AsyncWrite && len(writers) > 0 {
		dw := diode.NewWriter(writer, config.BufferSize, 10*time.Millisecond, func(missed int) {
			fmt.Fprintf(os.Stderr, "Logger dropped %d messages\n", missed)
		})
		writer = dw
		// Flush the diode before the files underneath it are closed
		closers = append([]io.Closer{dw}, closers...)
	}

	if config.TimestampFormat != "" {
		timeFormatOnce.Do(func() {
			zerolog.TimeFieldFormat = config.TimestampFormat
		})
	}

	contextBuilder := zerolog.New(writer).
		Level(level).
		With().
		Timestamp()

	fields := make(Fields, len(config.Fields))
	for k, v := range config.Fields {
		contextBuilder = contextBuilder.Interface(k, v)
		fields[k] = v
	}

	zl := contextBuilder.Logger()
	return &Logger{
		Logger:  &zl,
		config:  config,
		fields:  fields,
		closers: closers,
	}, nil
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() *Logger {
	zl := zerolog.Nop()
	cfg := DefaultConfig()
	cfg.Console.Enable = false
	return &Logger{
		Logger: &zl,
		config: cfg,
		fields: make(Fields),
	}
}

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	instance = l
}

// Get returns the global logger instance, creating a default one on first use
func Get() *Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		l, err := New(DefaultConfig())
		if err != nil {
			l = NewNop()
		}
		instance = l
	}
	return instance
}

// UpdateLevel updates the log level dynamically
func (l *Logger) UpdateLevel(level string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	newLogger := l.Logger.Level(lvl)
	l.Logger = &newLogger
	l.config.Level = level
	return nil
}

// Fields returns a copy of the persistent fields carried by the logger.
func (l *Logger) Fields() Fields {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(Fields, len(l.fields))
	for k, v := range l.fields {
		out[k] = v
	}
	return out
}

// WithFields creates a new logger with additional fields
func (l *Logger) WithFields(fields Fields) *Logger {
	l.mu.RLock()
	newFields := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	baseLogger := l.Logger
	l.mu.RUnlock()

	ctx := baseLogger.With()
	for k, v := range fields {
		newFields[k] = v
		ctx = ctx.Interface(k, v)
	}

	zl := ctx.Logger()
	return &Logger{
		Logger: &zl,
		config: l.config,
		fields: newFields,
	}
}

// WithError creates a new logger with error details added
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithFields(Fields{
		"error":      err.Error(),
		"error_type": fmt.Sprintf("%T", err),
	})
}

// Close flushes async output and closes rotated log files.
// Child loggers created by WithFields share the parent's writers and need no Close.
func (l *Logger) Close() error {
	l.mu.Lock()
	closers := l.closers
	l.closers = nil
	l.mu.Unlock()

	var firstErr error
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	RunID          string
	LogLevelStr    string
	PrintStackDump bool
	FilePath       string // set when the logger also writes a run log file
	file           *os.File
}

// NewLogger will create a new logger implementation that writes to stderr.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	l, err := newLogger(serviceName, level, stackDumpOnPanic)
	if err != nil {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	l.SetOutput(os.Stderr)
	return l
}

// NewRunLogger creates a logger that writes to stderr and to a timestamped run log file in logFolder.
// The file receives JSON lines so it can be attached to the outcome notification and parsed later.
// Call Close when the run is over.
func NewRunLogger(serviceName string, level string, stackDumpOnPanic bool, logFolder string, now time.Time) (*LoggerImpl, error) {
	l, err := newLogger(serviceName, level, stackDumpOnPanic)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logFolder, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating log folder %q", logFolder)
	}
	l.FilePath = filepath.Join(logFolder, fmt.Sprintf("%v_%v.log", serviceName, now.Format(constants.TimeFormatYearSeconds)))
	l.file, err = os.OpenFile(l.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening log file %q", l.FilePath)
	}
	log.SetOutput(os.Stderr)
	log.AddHook(&fileHook{w: l.file, formatter: &log.JSONFormatter{}})
	return l, nil
}

func newLogger(serviceName string, level string, stackDumpOnPanic bool) (*LoggerImpl, error) {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(logLevel)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else { // don't colour output that is redirected by the scheduler.
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	runID := xid.New().String()
	logger := log.WithFields(log.Fields{
		"service": serviceName,
		"run":     runID,
	})
	return &LoggerImpl{Logger: logger, Service: serviceName, RunID: runID, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}, nil
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace in debug mode).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.LogLevelStr == "trace" || l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic (with stack trace in debug mode, or if user explicitly sets PrintStackDump).
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.PrintStackDump || l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
	} else {
		l.Logger.Panic(message...)
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1) without a stack dump by default.
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// SetOutput will set the log output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	log.SetOutput(writer)
}

// SetJSON switches the console formatter to JSON.
func (l *LoggerImpl) SetJSON() {
	log.SetFormatter(&log.JSONFormatter{})
}

// Close flushes and closes the run log file, if there is one.
func (l *LoggerImpl) Close() error {
	if l.file == nil {
		return nil
	}
	log.StandardLogger().ReplaceHooks(make(log.LevelHooks))
	err := l.file.Sync()
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

// fileHook copies every entry to the run log file using its own formatter.
type fileHook struct {
	w         io.Writer
	formatter log.Formatter
}

func (h *fileHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *fileHook) Fire(e *log.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}

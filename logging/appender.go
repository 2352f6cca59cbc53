package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface, so a
// zap observer core can be added to a logger directly.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender writes tab separated log lines to an io.Writer.
type ConsoleAppender struct {
	mu      sync.Mutex
	writer  io.Writer
	encoder zapcore.Encoder
}

// NewWriterAppender creates a new appender that writes console formatted lines to the writer.
func NewWriterAppender(writer io.Writer) *ConsoleAppender {
	return &ConsoleAppender{writer: writer, encoder: zapcore.NewConsoleEncoder(newEncoderConfig())}
}

// NewFileAppender creates an appender writing to a size-rotated log file at path. The returned
// closer releases the file.
func NewFileAppender(path string) (*ConsoleAppender, io.Closer) {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 2,
		Compress:   true,
	}
	return NewWriterAppender(file), file
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// Write outputs the log entry to the underlying writer.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := appender.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	appender.mu.Lock()
	defer appender.mu.Unlock()
	_, err = appender.writer.Write(buf.Bytes())
	return err
}

// Sync flushes the writer when it supports it.
func (appender *ConsoleAppender) Sync() error {
	if syncer, ok := appender.writer.(interface{ Sync() error }); ok {
		// stdout on some platforms refuses fsync; that is not worth surfacing.
		if err := syncer.Sync(); err != nil && appender.writer != os.Stdout {
			return err
		}
	}
	return nil
}

func callerToString(caller *zapcore.EntryCaller) string {
	return fmt.Sprintf("%s:%d", caller.TrimmedPath(), caller.Line)
}

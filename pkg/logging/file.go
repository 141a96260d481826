package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// DefaultPath is where the run log is appended when no path is configured
var DefaultPath = filepath.Join("logs", "rsync_transfer.log")

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// sink is the shared output of a logger and every logger derived from it
type sink struct {
	mu     sync.Mutex
	cfg    FileLoggerConfig
	file   *os.File // nil when writing to a plain io.Writer
	writer io.Writer
	size   int64
	now    func() time.Time
}

// FileLogger writes append-only timestamped entries
type FileLogger struct {
	sink   *sink
	fields Fields
}

// NewFileLogger opens (or creates) the log file in append mode
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := openAppend(config.Path)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &FileLogger{sink: &sink{
		cfg:    config,
		file:   file,
		writer: file,
		size:   info.Size(),
		now:    time.Now,
	}}, nil
}

// NewWriterLogger logs to w without rotation (console output, tests)
func NewWriterLogger(w io.Writer, format Format, level Level) *FileLogger {
	return &FileLogger{sink: &sink{
		cfg:    FileLoggerConfig{Format: format, Level: level},
		writer: w,
		now:    time.Now,
	}}
}

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(DebugLevel, msg, nil, fields)
}

func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(InfoLevel, msg, nil, fields)
}

func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(WarnLevel, msg, nil, fields)
}

func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ErrorLevel, msg, err, fields)
}

// WithFields returns a logger sharing the same output with extra fields
func (l *FileLogger) WithFields(fields Fields) Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &FileLogger{sink: l.sink, fields: merged}
}

// Close closes the underlying file, if any
func (l *FileLogger) Close() error {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.writer = io.Discard
	return err
}

func (l *FileLogger) log(level Level, msg string, err error, fields Fields) {
	s := l.sink
	if level < s.cfg.Level {
		return
	}

	all := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var line []byte
	if s.cfg.Format == FormatJSON {
		line = formatJSON(s.now(), level, msg, err, all)
	} else {
		line = formatText(s.now(), level, msg, err, all)
	}
	if line == nil {
		return
	}

	if s.file != nil && s.cfg.MaxSize > 0 && s.size+int64(len(line)) > s.cfg.MaxSize && s.size > 0 {
		s.rotate()
	}

	n, _ := s.writer.Write(line)
	s.size += int64(n)
}

// formatText renders "2006-01-02 15:04:05,000 - LEVEL - message key=value"
func formatText(ts time.Time, level Level, msg string, err error, fields Fields) []byte {
	var b strings.Builder
	b.WriteString(ts.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, ",%03d - %s - %s", ts.Nanosecond()/int(time.Millisecond), level, msg)

	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}
	for _, k := range sortedKeys(fields) {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func formatJSON(ts time.Time, level Level, msg string, err error, fields Fields) []byte {
	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = ts.UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["message"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		return nil
	}
	return append(data, '\n')
}

func sortedKeys(fields Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// rotate shifts path -> path.1 -> path.2 ... and reopens path. Caller holds mu.
func (s *sink) rotate() {
	s.file.Close()

	path := s.cfg.Path
	if s.cfg.MaxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", path, s.cfg.MaxBackups))
		for i := s.cfg.MaxBackups - 1; i >= 1; i-- {
			os.Rename(fmt.Sprintf("%s.%d", path, i), fmt.Sprintf("%s.%d", path, i+1))
		}
		os.Rename(path, path+".1")
	} else {
		os.Remove(path)
	}

	file, err := openAppend(path)
	if err != nil {
		s.file = nil
		s.writer = io.Discard
		return
	}
	s.file = file
	s.writer = file
	s.size = 0
}

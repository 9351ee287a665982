// Package logging holds the process-wide structured logger. Records go to a
// JSON file only while debug logging is on; otherwise they are dropped.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxFiles is how many log files the log directory keeps by default
const DefaultMaxFiles = 1000

// Logger is the public logger instance accessible from all packages.
// It discards everything until Initialize enables debug logging.
var Logger = Discard()

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Options is the resolved logging configuration. Flags, environment and
// settings.json are merged by the caller.
type Options struct {
	Attrs    []any  // Added to every record, e.g. "command", "watch"
	Debug    bool   // Log to a new file in Dir
	Dir      string // Empty means DefaultDir()
	File     string // Fixed log file; enables logging and disables rotation
	MaxFiles int    // Files kept in Dir; zero or less keeps all
}

// Session is the log file opened by Initialize
type Session struct {
	Path string // Empty when logging is disabled
	file *os.File
}

// Close closes the log file. Records logged afterwards are lost.
func (s *Session) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Initialize points Logger at the destination described by opts
func Initialize(opts Options) (*Session, error) {
	if !opts.Debug && opts.File == "" {
		Logger = Discard()
		return &Session{}, nil
	}

	path, err := opts.logPath()
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	Logger = slog.New(handler).With(opts.Attrs...)
	Logger.Info("Debug logging initialized", "log_file", path, "pid", os.Getpid())

	return &Session{Path: path, file: file}, nil
}

// logPath prepares the log file location, rotating Dir when no fixed file is set
func (o Options) logPath() (string, error) {
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0755); err != nil {
			return "", fmt.Errorf("failed to create log directory: %w", err)
		}
		return o.File, nil
	}

	dir := o.Dir
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return "", fmt.Errorf("failed to get log directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	if o.MaxFiles > 0 {
		if err := rotateLogs(dir, o.MaxFiles); err != nil {
			// Rotation failure shouldn't prevent logging
			fmt.Fprintf(os.Stderr, "Warning: log rotation failed: %v\n", err)
		}
	}

	return filepath.Join(dir, uuid.NewString()+".log"), nil
}

// rotateLogs deletes the oldest .log files so a new one fits under maxFiles
func rotateLogs(dir string, maxFiles int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	type logFile struct {
		modTime time.Time
		path    string
	}
	var files []logFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{modTime: info.ModTime(), path: filepath.Join(dir, entry.Name())})
	}

	excess := len(files) - maxFiles + 1
	if excess <= 0 {
		return nil
	}

	slices.SortFunc(files, func(a, b logFile) int {
		return a.modTime.Compare(b.modTime)
	})
	for _, f := range files[:excess] {
		if err := os.Remove(f.path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to delete old log file %s: %v\n", f.path, err)
		}
	}
	return nil
}

// DefaultDir returns the OS-specific log directory
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Logs", "wtpulse"), nil
	case "linux":
		stateHome := os.Getenv("XDG_STATE_HOME")
		if stateHome == "" {
			stateHome = filepath.Join(homeDir, ".local", "state")
		}
		return filepath.Join(stateHome, "wtpulse"), nil
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "wtpulse", "logs"), nil
	default:
		return filepath.Join(homeDir, ".wtpulse", "logs"), nil
	}
}

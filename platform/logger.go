package platform

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogProfile selects a floor log level the way the source's three
// configuration profiles do: STD only surfaces errors, ADVANCED adds
// informational tracing, VERBOSE keeps everything.
type LogProfile string

const (
	LogProfileStd      LogProfile = "std"
	LogProfileAdvanced LogProfile = "advanced"
	LogProfileVerbose  LogProfile = "verbose"
)

// Level resolves the profile to its zerolog floor. An unrecognized profile
// falls back to LogProfileStd rather than erroring, matching the bridge's
// broader policy of never letting a logging misconfiguration take down a
// session.
func (p LogProfile) Level() zerolog.Level {
	switch p {
	case LogProfileAdvanced:
		return zerolog.InfoLevel
	case LogProfileVerbose:
		return zerolog.TraceLevel
	default:
		return zerolog.ErrorLevel
	}
}

// NewLogger builds a timestamped logger writing to w at profile's level
// floor. The cmd bootstrap does not call it: cmd/root.go builds the
// process logger from the --log-level and --log-format flags.
func NewLogger(profile LogProfile, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(profile.Level()).With().Timestamp().Logger()
}

// logTimeFormat is a timestamp layout for "[{timestamp}] [{level:>5}]
// {message}" lines. Nothing in this package applies it; RotatingWriter
// writes each line exactly as the logger produced it.
const logTimeFormat = "2006-01-02 15:04:05.000000"

// RotatingWriter implements io.Writer over a size-capped log file. When the
// file would exceed maxBytes it is closed, renamed with a UTC timestamp
// suffix, and a fresh file is opened in its place. Backups beyond
// maxBackups are deleted, oldest first.
type RotatingWriter struct {
	dir          string
	prefix       string // e.g. "dtc_server"
	maxBytes     int64
	maxBackups   int
	rotateOnOpen bool

	file    *os.File
	written int64
}

// NewRotatingWriter opens (or creates) the active log file under dir. If
// rotateOnOpen is set and a file from a previous run already exists, it is
// rotated immediately rather than appended to.
func NewRotatingWriter(dir, prefix string, maxBytes int64, maxBackups int, rotateOnOpen bool) (*RotatingWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rw := &RotatingWriter{
		dir:          dir,
		prefix:       prefix,
		maxBytes:     maxBytes,
		maxBackups:   maxBackups,
		rotateOnOpen: rotateOnOpen,
	}

	activePath := rw.activePath()
	if rotateOnOpen {
		if info, err := os.Stat(activePath); err == nil && info.Size() > 0 {
			if err := rw.rotate(); err != nil {
				return nil, err
			}
		}
	}

	if err := rw.openActive(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RotatingWriter) activePath() string {
	return filepath.Join(rw.dir, rw.prefix+".log")
}

func (rw *RotatingWriter) openActive() error {
	f, err := os.OpenFile(rw.activePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rw.file = f
	rw.written = info.Size()
	return nil
}

// Write implements io.Writer, rotating before the write would exceed
// maxBytes.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	if rw.maxBytes > 0 && rw.written+int64(len(p)) > rw.maxBytes {
		if err := rw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rw.file.Write(p)
	rw.written += int64(n)
	return n, err
}

func (rw *RotatingWriter) rotate() error {
	if rw.file != nil {
		if err := rw.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file before rotation: %w", err)
		}
		rw.file = nil
	}

	activePath := rw.activePath()
	if _, err := os.Stat(activePath); err == nil {
		backupName := fmt.Sprintf("%s_%s.log", rw.prefix, time.Now().UTC().Format("20060102_150405"))
		if err := os.Rename(activePath, filepath.Join(rw.dir, backupName)); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	if err := rw.pruneBackups(); err != nil {
		return err
	}
	return rw.openActive()
}

// pruneBackups deletes the oldest rotated files beyond maxBackups.
func (rw *RotatingWriter) pruneBackups() error {
	if rw.maxBackups <= 0 {
		return nil
	}

	entries, err := os.ReadDir(rw.dir)
	if err != nil {
		return fmt.Errorf("failed to list log directory: %w", err)
	}

	var backups []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, rw.prefix+"_") && strings.HasSuffix(name, ".log") {
			backups = append(backups, name)
		}
	}
	sort.Strings(backups) // timestamp suffix sorts lexically == chronologically

	for len(backups) > rw.maxBackups {
		oldest := backups[0]
		backups = backups[1:]
		if err := os.Remove(filepath.Join(rw.dir, oldest)); err != nil {
			return fmt.Errorf("failed to delete old log file %s: %w", oldest, err)
		}
	}
	return nil
}

// Close closes the active log file.
func (rw *RotatingWriter) Close() error {
	if rw.file == nil {
		return nil
	}
	return rw.file.Close()
}

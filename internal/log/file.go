package log

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// filePrefix names the daily debug logs: sctrace-YYYY-MM-DD.jsonl.
const filePrefix = "sctrace-"

// LatestLink is the symlink in the debug directory that points at the file
// currently being written.
const LatestLink = "latest"

// FileWriter manages daily log file rotation and symlink updates.
type FileWriter struct {
	dir      string
	mu       sync.Mutex
	file     *os.File
	currDate string
	now      func() time.Time
}

// NewFileWriter creates a FileWriter that writes to dir/sctrace-YYYY-MM-DD.jsonl.
func NewFileWriter(dir string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating debug log dir: %w", err)
	}

	fw := &FileWriter{dir: dir, now: time.Now}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err := fw.rotateLocked(); err != nil {
		return nil, err
	}
	return fw, nil
}

// FileName returns the log file name for day.
func FileName(day time.Time) string {
	return filePrefix + day.Format("2006-01-02") + ".jsonl"
}

// Write implements io.Writer, rotating to a new file when the day changes.
func (fw *FileWriter) Write(p []byte) (n int, err error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.now().Format("2006-01-02") != fw.currDate {
		if err := fw.rotateLocked(); err != nil {
			return 0, err
		}
	}
	return fw.file.Write(p)
}

// Close closes the underlying file.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file == nil {
		return nil
	}
	err := fw.file.Close()
	fw.file = nil
	return err
}

func (fw *FileWriter) rotateLocked() error {
	if fw.file != nil {
		fw.file.Close()
	}

	now := fw.now()
	filename := FileName(now)
	f, err := os.OpenFile(filepath.Join(fw.dir, filename), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	fw.file = f
	fw.currDate = now.Format("2006-01-02")
	fw.updateSymlink(filename)
	return nil
}

func (fw *FileWriter) updateSymlink(target string) {
	link := filepath.Join(fw.dir, LatestLink)
	tmp := link + ".tmp"

	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return // best effort
	}
	_ = os.Rename(tmp, link)
}

var datePattern = regexp.MustCompile(`^` + filePrefix + `(\d{4}-\d{2}-\d{2})\.jsonl$`)

// Cleanup removes log files older than retentionDays and returns how many
// were removed. Files not written by FileWriter are left alone.
func Cleanup(dir string, retentionDays int) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := datePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		day, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if os.Remove(filepath.Join(dir, entry.Name())) == nil {
				removed++
			}
		}
	}
	return removed
}

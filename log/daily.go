package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var _ io.Writer = &DailyFile{}

// DailyFile appends to one file per UTC day: ${Dir}/YYYY-MM-DD${Ext}.
// A nil *DailyFile discards writes, so loggers work before Init()
type DailyFile struct {
	Dir string
	Ext string

	mu   sync.Mutex
	day  string
	path string
	file *os.File
}

func NewDailyFile(dir, ext string) *DailyFile {
	return &DailyFile{
		Dir: dir,
		Ext: ext,
	}
}

// open (re)opens the file for day if it's not the current one
func (f *DailyFile) open(day string) error {
	if f.file != nil && f.day == day {
		return nil
	}
	if err := f.close(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(f.Dir, day+f.Ext)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	f.file = file
	f.day = day
	f.path = path
	return nil
}

func (f *DailyFile) Write(d []byte) (int, error) {
	if f == nil {
		return len(d), nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.open(time.Now().UTC().Format("2006-01-02")); err != nil {
		return 0, err
	}
	return f.file.Write(d)
}

func (f *DailyFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// Path returns path of the file written to last, "" if nothing was written
func (f *DailyFile) Path() string {
	if f == nil {
		return ""
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func (f *DailyFile) close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	f.day = ""
	return err
}

// Close syncs and closes the current file.
// Writing after Close re-opens it
func (f *DailyFile) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file != nil {
		_ = f.file.Sync()
	}
	return f.close()
}

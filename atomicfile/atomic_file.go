package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

// TmpSuffix is appended to destination path to get the path
// of the temporary file
const TmpSuffix = ".tmp"

var (
	// ErrCancelled is returned by calls subsequent to RemoveIfNotClosed()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
	_ io.WriterAt    = &File{}
	_ io.Seeker      = &File{}
)

// File is written to <path>.tmp and renamed to <path> on Close().
// Observers of <path> see either the previous file or the complete
// new one. If anything fails, the temporary file is deleted
type File struct {
	dstPath string
	dir     string
	tmpPath string
	tmpFile *os.File
	err     error
}

// TmpPath returns path of the temporary file used when writing to path
func TmpPath(path string) string {
	return path + TmpSuffix
}

// New creates <path>.tmp. It fails if <path>.tmp already exists, which
// means another writer is active or a previous one crashed. In the latter
// case the caller must remove the stale file
func New(path string) (*File, error) {
	dir, fName := filepath.Split(path)
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	tmpPath := TmpPath(path)
	tmpFile, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}

	return &File{
		dstPath: path,
		dir:     dir,
		tmpPath: tmpPath,
		tmpFile: tmpFile,
	}, nil
}

// Path returns the destination path
func (f *File) Path() string {
	return f.dstPath
}

// TmpPath returns the path of the temporary file
func (f *File) TmpPath() string {
	return f.tmpPath
}

// Err returns the first error encountered
func (f *File) Err() error {
	return f.err
}

func (f *File) handleError(err error) error {
	if err == nil {
		return nil
	}
	// remember the first error
	if f.err == nil {
		f.err = err
	}
	// delete temporary file
	_ = f.Close()
	return err
}

// Write writes data at the current position
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.handleError(err)
}

// WriteAt writes data at a given offset without changing current position
func (f *File) WriteAt(d []byte, off int64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.WriteAt(d, off)
	return n, f.handleError(err)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	ret, err := f.tmpFile.Seek(offset, whence)
	return ret, f.handleError(err)
}

func (f *File) Sync() error {
	if f.err != nil {
		return f.err
	}
	err := f.tmpFile.Sync()
	return f.handleError(err)
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if we didn't Close
// the file yet. Destination file will not be created.
// Use it with defer to ensure cleanup in case of a panic or an early return.
// RemoveIfNotClosed after Close is a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.alreadyClosed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs and closes the temporary file and renames it to
// destination path. Can be called multiple times to make it
// easier to use via defer
func (f *File) Close() error {
	if f.alreadyClosed() {
		// return the first error we encountered
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}

	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		// over-writes dstPath if it exists
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = (err == nil)
	}
	if didRename {
		syncDir(f.dir)
	}

	if f.err == nil {
		f.err = err
	}
	return f.err
}

// make the rename durable. Errors are ignored, not all
// file systems support syncing directories
func syncDir(dir string) {
	fdir, _ := os.Open(dir)
	if fdir != nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
}

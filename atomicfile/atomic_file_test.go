package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func assertFileExists(t *testing.T, path string) {
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file '%s' doesn't exist, os.Stat() failed with '%s'", path, err)
	}
	if !st.Mode().IsRegular() {
		t.Fatalf("Path '%s' exists but is not a file (mode: %d)", path, int(st.Mode()))
	}
}

func assertFileNotExists(t *testing.T, path string) {
	_, err := os.Stat(path)
	if err == nil {
		t.Fatalf("file '%s' exist, expected to not exist", path)
	}
}

func assertNoError(t *testing.T, err error) {
	if err != nil {
		t.Fatalf("error: %s", err)
	}
}

func assertError(t *testing.T, err error) {
	if err == nil {
		t.Fatal("expected to get an error")
	}
}

func assertFileContent(t *testing.T, path string, exp string) {
	d, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile('%s') failed with '%s'", path, err)
	}
	if string(d) != exp {
		t.Fatalf("path: '%s', expected content: '%s', got: '%s'", path, exp, string(d))
	}
}

func TestTmpPath(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "archive.kpdb")
	f, err := New(dst)
	assertNoError(t, err)
	defer f.RemoveIfNotClosed()
	if f.TmpPath() != dst+".tmp" {
		t.Fatalf("expected tmp path '%s.tmp', got '%s'", dst, f.TmpPath())
	}
	if TmpPath(dst) != f.TmpPath() {
		t.Fatalf("TmpPath() mismatch")
	}
	assertFileExists(t, f.TmpPath())
	assertFileNotExists(t, dst)
}

func TestSimulateError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "foo.txt")
	f, err := New(dst)
	assertNoError(t, err)
	_, err = f.Write([]byte("foo"))
	assertNoError(t, err)
	// simulate an error
	errSimulated := errors.New("simulated")
	f.err = errSimulated
	err = f.Close()
	if err != errSimulated {
		t.Fatalf("got unexpected error")
	}
	assertFileNotExists(t, f.tmpPath)
	assertFileNotExists(t, dst)
	// on second Close() should get the same error
	err = f.Close()
	if err != errSimulated {
		t.Fatalf("got unexpected error")
	}
}

func TestExclusive(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "foo.txt")
	f, err := New(dst)
	assertNoError(t, err)

	// second writer for the same path must fail while first is active
	f2, err := New(dst)
	assertError(t, err)
	if f2 != nil {
		t.Fatalf("expected f2 to be nil, got %v", f2)
	}
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected os.ErrExist, got %v", err)
	}

	assertNoError(t, f.Close())
	// after publishing we can write again
	f2, err = New(dst)
	assertNoError(t, err)
	f2.RemoveIfNotClosed()
}

func writeWithPanicCancel(t *testing.T, f *File) {
	defer f.RemoveIfNotClosed()

	_, err := f.Write([]byte("foo"))
	assertNoError(t, err)
	panic("simulating a crash")
}

func recoverCancelPanic(t *testing.T, f *File) {
	defer func() {
		err := recover()
		if err == nil {
			t.Fatalf("expected to panic")
		}
	}()

	writeWithPanicCancel(t, f)
}

func TestCancel(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "foo.txt")
	assertNoError(t, os.WriteFile(dst, []byte("previous"), 0644))
	f, err := New(dst)
	assertNoError(t, err)
	assertFileExists(t, f.tmpPath)
	recoverCancelPanic(t, f)
	assertFileNotExists(t, f.tmpPath)
	// destination is untouched
	assertFileContent(t, dst, "previous")
}

func TestWriteAtRewritesBeginning(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "foo.txt")
	f, err := New(dst)
	assertNoError(t, err)
	_, err = f.Write([]byte("0000 body"))
	assertNoError(t, err)
	_, err = f.WriteAt([]byte("HEAD"), 0)
	assertNoError(t, err)
	// WriteAt doesn't move the position
	pos, err := f.Seek(0, io.SeekCurrent)
	assertNoError(t, err)
	if pos != 9 {
		t.Fatalf("expected position 9, got %d", pos)
	}
	assertNoError(t, f.Close())
	assertFileContent(t, dst, "HEAD body")
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "foo.txt")
	{
		f, err := New(dst)
		assertNoError(t, err)
		assertFileExists(t, f.tmpPath)
		_ = f.Close()
		assertFileContent(t, dst, "")
		assertFileNotExists(t, f.tmpPath)
	}

	{
		// over-writes existing file
		f, err := New(dst)
		assertNoError(t, err)
		n, err := f.Write([]byte("hello"))
		assertNoError(t, err)
		if n != 5 {
			t.Fatalf("expected: 5, got: %d", n)
		}
		assertFileContent(t, dst, "")
		err = f.Close()
		assertNoError(t, err)
		assertFileNotExists(t, f.tmpPath)
		assertFileContent(t, dst, "hello")
		// calling Close twice is a no-op
		err = f.Close()
		assertNoError(t, err)
	}

	{
		// RemoveIfNotClosed sets an error state
		f, err := New(dst)
		assertNoError(t, err)
		f.RemoveIfNotClosed()
		_, err = f.Write([]byte("foo"))
		if err != ErrCancelled {
			t.Fatalf("expected err to be %v, got %v", ErrCancelled, err)
		}
		err = f.Close()
		if err != ErrCancelled {
			t.Fatalf("expected err to be %v, got %v", ErrCancelled, err)
		}
		assertFileContent(t, dst, "hello")
	}

	// we can't create files in directories that don't exist
	// so verify we do an early check
	dst = filepath.Join(dir, "foo", "bar.txt")
	{
		f, err := New(dst)
		assertError(t, err)
		if f != nil {
			t.Fatalf("expected f to be nil, got %v", f)
		}
	}
}

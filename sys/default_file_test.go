package sys

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mockFile implements the File interface for testing. It delegates to the real
// OS file operations but records which methods were called.
type mockFile struct {
	OpenFileCalled   bool
	WriteFileCalled  bool
	SafeRemoveCalled bool
	MkdirAllCalled   bool
	RenameCalled     bool
}

func (m *mockFile) Create(name string) (*os.File, error) {
	return os.Create(name)
}

func (m *mockFile) Open(name string) (*os.File, error) {
	return os.Open(name)
}

func (m *mockFile) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	m.OpenFileCalled = true
	return os.OpenFile(name, flag, perm)
}

func (m *mockFile) SafeRemove(name string) error {
	m.SafeRemoveCalled = true
	return os.Remove(name)
}

func (m *mockFile) SafeRemoveWithOption(name string, opts SafeRemoveOptions) error {
	m.SafeRemoveCalled = true
	return os.Remove(name)
}

func (m *mockFile) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.WriteFileCalled = true
	return os.WriteFile(name, data, perm)
}

func (m *mockFile) MkdirAll(path string, perm os.FileMode) error {
	m.MkdirAllCalled = true
	return os.MkdirAll(path, perm)
}

func (m *mockFile) Rename(oldpath, newpath string) error {
	m.RenameCalled = true
	return os.Rename(oldpath, newpath)
}

func TestSetDefaultFile(t *testing.T) {
	m := &mockFile{}
	SetDefaultFile(m)
	defer SetDefaultFile(NewFile())

	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	if err := MkdirAll(sub, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	name := filepath.Join(sub, "page")
	if err := WriteFile(name, []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Close()
	if err := Rename(name, name+".2"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if err := Remove(name + ".2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if !m.MkdirAllCalled || !m.WriteFileCalled || !m.OpenFileCalled || !m.RenameCalled || !m.SafeRemoveCalled {
		t.Fatalf("expected all handlers to reach the default file, got %+v", m)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	name := filepath.Join(t.TempDir(), "blob")
	if err := WriteFileAtomic(name, []byte("one"), 0644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(name, []byte("two"), 0644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte("two")) {
		t.Fatalf("expected %q, got %q", "two", got)
	}
	if _, err := os.Stat(name + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be gone, stat err=%v", err)
	}
}

func TestRemove_MissingFile(t *testing.T) {
	err := Remove(filepath.Join(t.TempDir(), "nope"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDebugMode_LogsAndTracksHandles(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetDebugMode(true, logger)
	defer SetDebugMode(false)

	name := filepath.Join(t.TempDir(), "debug.db")
	f, err := Create(name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	df, ok := f.(*DebugFile)
	if !ok {
		t.Fatalf("expected *DebugFile in debug mode, got %T", f)
	}
	if _, ok := OpenFiles()[df.id]; !ok {
		t.Fatalf("open handle not tracked")
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := OpenFiles()[df.id]; ok {
		t.Fatalf("closed handle still tracked")
	}
	out := buf.String()
	for _, want := range []string{"Opening file", "Syncing file", "Closing file"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q: %s", want, out)
		}
	}
}

func TestOpenFile_ReturnsRealFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "real.db")
	f, err := OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if _, ok := f.(*RealFile); !ok {
		t.Fatalf("expected *RealFile outside debug mode, got %T", f)
	}
	if _, err := f.WriteAt([]byte("page"), 8); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got := make([]byte, 4)
	if _, err := f.ReadAt(got, 8); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(got) != "page" {
		t.Fatalf("ReadAt = %q, want %q", got, "page")
	}
	if info, err := f.Stat(); err != nil || info.Size() != 12 {
		t.Fatalf("Stat = %v, %v; want size 12", info, err)
	}
}

package smb2client

import (
	"io/fs"
	"testing"
	"time"
)

func TestFileInfo_ImplementsFsFileInfo(t *testing.T) {
	var _ fs.FileInfo = (*FileInfo)(nil)
}

func TestFileInfo_File(t *testing.T) {
	mtime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fi := &FileInfo{name: "report.csv", size: 4096, mode: 0644, modTime: mtime, isDir: false}

	if fi.Name() != "report.csv" {
		t.Errorf("Name() = %q, want %q", fi.Name(), "report.csv")
	}
	if fi.Size() != 4096 {
		t.Errorf("Size() = %d, want 4096", fi.Size())
	}
	if fi.IsDir() {
		t.Error("IsDir() = true, want false")
	}
	if fi.Mode() != 0644 {
		t.Errorf("Mode() = %v, want 0644", fi.Mode())
	}
	if !fi.ModTime().Equal(mtime) {
		t.Errorf("ModTime() = %v, want %v", fi.ModTime(), mtime)
	}
	if fi.Sys() != nil {
		t.Errorf("Sys() = %v, want nil", fi.Sys())
	}
}

func TestFileInfo_Directory(t *testing.T) {
	fi := &FileInfo{name: "archive", mode: fs.ModeDir | 0755, isDir: true}

	if !fi.IsDir() {
		t.Error("IsDir() = false, want true")
	}
	if fi.Mode()&fs.ModeDir == 0 {
		t.Errorf("Mode() = %v, want ModeDir set", fi.Mode())
	}
}

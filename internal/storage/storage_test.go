package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const dirSpare Directory = "SPARE"

func newTestFS(t *testing.T) (*Filesystem, string) {
	t.Helper()
	root := t.TempDir()
	fsys, err := New(map[Directory]string{
		DirData:  filepath.Join(root, "data"),
		dirSpare: filepath.Join(root, "spare"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fsys, root
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestNew_CreatesRoots(t *testing.T) {
	_, root := newTestFS(t)
	for _, d := range []string{"data", "spare"} {
		if info, err := os.Stat(filepath.Join(root, d)); err != nil || !info.IsDir() {
			t.Errorf("root %s not created: %v", d, err)
		}
	}
}

func TestNew_EmptyRoot(t *testing.T) {
	if _, err := New(map[Directory]string{DirData: "  "}); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestWriteFile_Base64(t *testing.T) {
	fsys, root := newTestFS(t)

	res, err := fsys.WriteFile(context.Background(), WriteFileOptions{
		Path:      "1700000000000.jpeg",
		Data:      b64("0123456789"),
		Directory: DirData,
	})
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "data", "1700000000000.jpeg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "0123456789" {
		t.Errorf("content = %q", got)
	}
	if !strings.HasPrefix(res.URI, "file://") || !strings.HasSuffix(res.URI, "/data/1700000000000.jpeg") {
		t.Errorf("URI = %q", res.URI)
	}
}

func TestWriteFile_DataURL(t *testing.T) {
	fsys, root := newTestFS(t)
	_, err := fsys.WriteFile(context.Background(), WriteFileOptions{
		Path:      "a.jpeg",
		Data:      "data:image/jpeg;base64," + b64("jpeg!"),
		Directory: DirData,
	})
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, _ := os.ReadFile(filepath.Join(root, "data", "a.jpeg"))
	if string(got) != "jpeg!" {
		t.Errorf("content = %q, want decoded payload", got)
	}
}

func TestWriteFile_OverwritesSameName(t *testing.T) {
	fsys, root := newTestFS(t)
	for _, content := range []string{"first", "second"} {
		if _, err := fsys.WriteFile(context.Background(), WriteFileOptions{Path: "same.jpeg", Data: b64(content), Directory: DirData}); err != nil {
			t.Fatalf("WriteFile(%s): %v", content, err)
		}
	}
	got, _ := os.ReadFile(filepath.Join(root, "data", "same.jpeg"))
	if string(got) != "second" {
		t.Errorf("content = %q, want second write to win", got)
	}
	names, err := fsys.ReadDir(context.Background(), DirData)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Errorf("expected 1 file (no temp leftovers), got %v", names)
	}
}

func TestWriteFile_Recursive(t *testing.T) {
	fsys, _ := newTestFS(t)
	opts := WriteFileOptions{Path: "2024/05/a.jpeg", Data: b64("x"), Directory: DirData}

	if _, err := fsys.WriteFile(context.Background(), opts); err == nil {
		t.Error("expected error for missing parent without Recursive")
	}
	opts.Recursive = true
	if _, err := fsys.WriteFile(context.Background(), opts); err != nil {
		t.Errorf("Recursive write failed: %v", err)
	}
}

func TestWriteFile_InvalidInput(t *testing.T) {
	fsys, _ := newTestFS(t)
	cases := []struct {
		name string
		opts WriteFileOptions
		want error
	}{
		{"bad_base64", WriteFileOptions{Path: "a.jpeg", Data: "!!!not base64", Directory: DirData}, ErrInvalidData},
		{"plain_data_url", WriteFileOptions{Path: "a.jpeg", Data: "data:text/plain,hi", Directory: DirData}, ErrInvalidData},
		{"unknown_dir", WriteFileOptions{Path: "a.jpeg", Data: b64("x"), Directory: "EXTERNAL"}, ErrUnknownDirectory},
		{"unmapped_dir", WriteFileOptions{Path: "a.jpeg", Data: b64("x"), Directory: Directory("DOCUMENTS")}, ErrUnknownDirectory},
		{"absolute", WriteFileOptions{Path: "/etc/passwd", Data: b64("x"), Directory: DirData}, ErrInvalidPath},
		{"traversal", WriteFileOptions{Path: "../cache/a.jpeg", Data: b64("x"), Directory: DirData}, ErrInvalidPath},
		{"nested_traversal", WriteFileOptions{Path: "a/../../b.jpeg", Data: b64("x"), Directory: DirData}, ErrInvalidPath},
		{"empty", WriteFileOptions{Path: " ", Data: b64("x"), Directory: DirData}, ErrInvalidPath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fsys.WriteFile(context.Background(), tc.opts); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestWriteFile_CancelledContext(t *testing.T) {
	fsys, _ := newTestFS(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fsys.WriteFile(ctx, WriteFileOptions{Path: "a.jpeg", Data: b64("x"), Directory: DirData}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOpenAndStat(t *testing.T) {
	fsys, _ := newTestFS(t)
	if _, err := fsys.WriteFile(context.Background(), WriteFileOptions{Path: "a.jpeg", Data: b64("hello"), Directory: DirData}); err != nil {
		t.Fatal(err)
	}

	rc, err := fsys.Open(context.Background(), DirData, "a.jpeg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "hello" {
		t.Errorf("content = %q", got)
	}

	info, err := fsys.Stat(context.Background(), DirData, "a.jpeg")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("size = %d, want 5", info.Size())
	}

	if _, err := fsys.Open(context.Background(), DirData, "missing.jpeg"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open missing: err = %v, want ErrNotExist", err)
	}
	if _, err := fsys.Open(context.Background(), DirData, "../x"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Open traversal: err = %v, want ErrInvalidPath", err)
	}
}

func TestReadDir_Sorted(t *testing.T) {
	fsys, _ := newTestFS(t)
	for _, name := range []string{"3.jpeg", "1.jpeg", "2.jpeg"} {
		if _, err := fsys.WriteFile(context.Background(), WriteFileOptions{Path: name, Data: b64(name), Directory: DirData}); err != nil {
			t.Fatal(err)
		}
	}
	names, err := fsys.ReadDir(context.Background(), DirData)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"1.jpeg", "2.jpeg", "3.jpeg"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("ReadDir = %v, want %v", names, want)
	}
}

func TestReadDir_PerRoot(t *testing.T) {
	fsys, _ := newTestFS(t)
	if _, err := fsys.WriteFile(context.Background(), WriteFileOptions{Path: "a.jpeg", Data: b64("a"), Directory: dirSpare}); err != nil {
		t.Fatal(err)
	}
	names, err := fsys.ReadDir(context.Background(), DirData)
	if err != nil || len(names) != 0 {
		t.Errorf("DATA = %v, %v; want empty", names, err)
	}
	if _, err := fsys.ReadDir(context.Background(), Directory("DOCUMENTS")); !errors.Is(err, ErrUnknownDirectory) {
		t.Errorf("err = %v, want ErrUnknownDirectory", err)
	}
}

func TestSplitDataURL(t *testing.T) {
	cases := []struct {
		in         string
		mime, data string
		ok         bool
	}{
		{"data:image/jpeg;base64,AAEC", "image/jpeg", "AAEC", true},
		{"data:;base64,", "", "", true},
		{"data:text/plain,hello", "", "", false},
		{"AAEC", "", "", false},
		{"data:image/jpeg;base64", "", "", false},
	}
	for _, tc := range cases {
		mime, data, ok := SplitDataURL(tc.in)
		if ok != tc.ok || mime != tc.mime || data != tc.data {
			t.Errorf("SplitDataURL(%q) = (%q, %q, %v), want (%q, %q, %v)", tc.in, mime, data, ok, tc.mime, tc.data, tc.ok)
		}
	}
}

package pathutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "a", "b", "c")

	res, err := EnsureDir(dir, 0755)
	if err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if res != Created {
		t.Errorf("first EnsureDir() = %v, want %v", res, Created)
	}

	res, err = EnsureDir(dir, 0755)
	if err != nil {
		t.Fatalf("second EnsureDir() error = %v", err)
	}
	if res != AlreadyExists {
		t.Errorf("second EnsureDir() = %v, want %v", res, AlreadyExists)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory missing after EnsureDir: %v", err)
	}
}

func TestEnsureDir_Concurrent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shared", "run")

	const n = 8
	results := make([]DirResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = EnsureDir(dir, 0755)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Errorf("goroutine %d: EnsureDir() error = %v", i, errs[i])
		}
		if results[i] == Created {
			created++
		}
	}
	if created != 1 {
		t.Errorf("Created reported %d times, want 1", created)
	}
}

func TestEnsureDir_FileInTheWay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := EnsureDir(path, 0755); err == nil {
		t.Error("EnsureDir() expected error when a file occupies the path")
	}
	if _, err := EnsureDir(filepath.Join(path, "child"), 0755); err == nil {
		t.Error("EnsureDir() expected error when the parent is a file")
	}
}

func TestDirResult_String(t *testing.T) {
	if Created.String() != "created" || AlreadyExists.String() != "already-exists" {
		t.Errorf("String() = %q, %q", Created, AlreadyExists)
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/home/user/results/first_order/config.json", ".../first_order/config.json"},
		{"config.json", "config.json"},
		{"/config.json", "config.json"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := RedactPath(tt.input); got != tt.want {
				t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "global", "ncolumns")
	if err := os.MkdirAll(inside, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"root itself", root, false},
		{"existing child", inside, false},
		{"missing child", filepath.Join(root, "not", "yet"), false},
		{"traversal", filepath.Join(root, "..", "elsewhere"), true},
		{"sibling prefix", root + "x", true},
		{"empty", "", true},
		{"null byte", root + "/a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Within(tt.path, root)
			if (err != nil) != tt.wantErr {
				t.Errorf("Within(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestWithin_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := Within(filepath.Join(link, "run"), root); err == nil {
		t.Error("Within() expected error for symlink escaping root")
	}
}

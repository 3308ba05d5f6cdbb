package terminal

import (
	"errors"
	"testing"
	"time"
)

func TestEditorArgs(t *testing.T) {
	m := New(Options{Editor: "/usr/bin/nvim"})
	args := m.editorArgs("/tmp/post.md", 12)
	if args[0] != "+12" || args[len(args)-1] != "/tmp/post.md" {
		t.Fatalf("unexpected nvim args %v", args)
	}

	m = New(Options{Editor: "/usr/bin/nano"})
	args = m.editorArgs("/tmp/post.md", 12)
	if len(args) != 1 || args[0] != "/tmp/post.md" {
		t.Fatalf("non-vim editors get only the path, got %v", args)
	}
}

func TestWriteWithoutSession(t *testing.T) {
	m := New(Options{Editor: "/bin/true"})
	if err := m.Write("x"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := m.Resize(100, 40); err != nil {
		t.Fatalf("resize without session: %v", err)
	}
}

func TestOpenReportsExit(t *testing.T) {
	exited := make(chan string, 1)
	m := New(Options{
		Editor: "/bin/true",
		OnExit: func(path string, _ int) { exited <- path },
	})
	if err := m.Open("/tmp/postdesk-test.md", 0); err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer m.Close()

	select {
	case path := <-exited:
		if path != "/tmp/postdesk-test.md" {
			t.Errorf("unexpected path %q", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("editor exit not reported")
	}
}

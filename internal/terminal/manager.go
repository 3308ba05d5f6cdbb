// Package terminal runs the external editor in a pty whose output is
// streamed to the webview terminal.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/creack/pty"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no active editor session")

// Options configures a Manager.
type Options struct {
	// Editor is the command to run; empty means $EDITOR, then nvim.
	Editor string
	OnData func(data []byte)
	// OnExit receives the cursor line at exit when the editor reports it
	// (vim and nvim), otherwise 0.
	OnExit func(path string, exitLine int)
	Logger *zap.Logger
}

// Manager owns at most one editor process at a time.
type Manager struct {
	opts      Options
	editor    string
	shellPath string
	log       *zap.Logger

	mu         sync.Mutex
	ptmx       *os.File
	cmd        *exec.Cmd
	running    bool
	cols, rows uint16
	cursorFile string
}

func New(opts Options) *Manager {
	name := opts.Editor
	if name == "" {
		name = os.Getenv("EDITOR")
	}
	if name == "" {
		name = "nvim"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		opts:       opts,
		editor:     resolveEditor(name),
		shellPath:  resolveShellPath(),
		log:        log.Named("terminal"),
		cols:       80,
		rows:       24,
		cursorFile: filepath.Join(os.TempDir(), fmt.Sprintf("postdesk_cursor_%d", os.Getpid())),
	}
}

// resolveEditor finds the editor binary. GUI apps on macOS start with a
// minimal PATH, so common install locations are probed too.
func resolveEditor(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	candidates := []string{
		filepath.Join("/opt/homebrew/bin", name),
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/run/current-system/sw/bin", name),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".local/bin", name),
			filepath.Join(home, ".nix-profile/bin", name),
		)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return name
}

// resolveShellPath asks the login shell for the user's full PATH.
func resolveShellPath() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return ""
	}
	out, err := exec.Command(shell, "-lc", "echo $PATH").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func isVim(editor string) bool {
	base := filepath.Base(editor)
	return base == "vim" || base == "nvim"
}

// editorArgs builds the argument list for path opened at line.
func (m *Manager) editorArgs(path string, line int) []string {
	if !isVim(m.editor) {
		return []string{path}
	}
	var args []string
	if line > 0 {
		args = append(args, fmt.Sprintf("+%d", line))
	}
	return append(args,
		"-c", fmt.Sprintf("autocmd VimLeave * call writefile([line('.')], '%s')", m.cursorFile),
		path,
	)
}

func (m *Manager) env() []string {
	env := os.Environ()
	if m.shellPath != "" {
		replaced := false
		for i, e := range env {
			if strings.HasPrefix(e, "PATH=") {
				env[i] = "PATH=" + m.shellPath
				replaced = true
				break
			}
		}
		if !replaced {
			env = append(env, "PATH="+m.shellPath)
		}
	}
	return append(env, "TERM=xterm-256color", "COLORTERM=truecolor")
}

// Open starts the editor on path, replacing any running session.
func (m *Manager) Open(path string, line int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.closeLocked()
	}
	os.Remove(m.cursorFile)

	cmd := exec.Command(m.editor, m.editorArgs(path, line)...)
	cmd.Env = m.env()

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: m.cols, Rows: m.rows})
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}
	m.ptmx = ptmx
	m.cmd = cmd
	m.running = true
	m.log.Info("editor started", zap.String("editor", m.editor), zap.String("path", path))

	go m.pump(ptmx, path)
	return nil
}

func (m *Manager) pump(ptmx *os.File, path string) {
	buf := make([]byte, 32*1024)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 && m.opts.OnData != nil {
			data := make([]byte, n)
			copy(data, buf[:n])
			m.opts.OnData(data)
		}
		if err != nil {
			break
		}
	}

	exitLine := 0
	if data, err := os.ReadFile(m.cursorFile); err == nil {
		exitLine, _ = strconv.Atoi(strings.TrimSpace(string(data)))
		os.Remove(m.cursorFile)
	}

	m.mu.Lock()
	// a newer session may already own the manager
	if m.ptmx == ptmx {
		m.running = false
	}
	m.mu.Unlock()

	m.log.Info("editor exited", zap.String("path", path), zap.Int("line", exitLine))
	if m.opts.OnExit != nil {
		m.opts.OnExit(path, exitLine)
	}
}

// Write forwards keystrokes from the webview terminal.
func (m *Manager) Write(data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.ptmx == nil {
		return ErrNoSession
	}
	_, err := io.WriteString(m.ptmx, data)
	return err
}

// Resize updates the pty size; it is remembered for the next Open.
func (m *Manager) Resize(cols, rows uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cols, m.rows = cols, rows
	if !m.running || m.ptmx == nil {
		return nil
	}
	return pty.Setsize(m.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.ptmx != nil {
		m.ptmx.Close()
		m.ptmx = nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		m.cmd.Process.Kill()
		m.cmd.Wait()
		m.cmd = nil
	}
	m.running = false
}

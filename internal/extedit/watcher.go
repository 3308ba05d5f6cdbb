// Package extedit feeds edits made in an external editor back into the
// open draft by watching the draft file on disk.
package extedit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeHandler receives the new file content of a watched draft.
type ChangeHandler func(postKey, content string)

// Watcher tracks draft files and reports their content after each write.
// Editors that save by renaming a temp file show up as Create events, so
// both are handled.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange ChangeHandler
	log      *zap.Logger

	mu       sync.RWMutex
	watching map[string]string // abs path -> post key
	last     map[string]string // abs path -> last reported content
	done     chan struct{}
}

func New(onChange ChangeHandler, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		fs:       fw,
		onChange: onChange,
		log:      log.Named("extedit"),
		watching: make(map[string]string),
		last:     make(map[string]string),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// DraftPath is the file the external editor edits for postKey.
func DraftPath(dir, postKey string) string {
	return filepath.Join(dir, "post-"+sanitize(postKey)+".md")
}

// WriteDraft writes body to the draft file of postKey and returns its path.
func WriteDraft(dir, postKey, body string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create drafts dir: %w", err)
	}
	path := DraftPath(dir, postKey)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write draft: %w", err)
	}
	return path, nil
}

// Watch starts reporting changes of path under postKey. initial is the
// content already known to the caller; an identical write is not reported.
func (w *Watcher) Watch(postKey, path, initial string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.watching[abs] = postKey
	w.last[abs] = initial
	w.mu.Unlock()

	// fsnotify watches directories for file events
	return w.fs.Add(filepath.Dir(abs))
}

// Unwatch stops reporting changes for postKey.
func (w *Watcher) Unwatch(postKey string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, key := range w.watching {
		if key == postKey {
			delete(w.watching, path)
			delete(w.last, path)
		}
	}
}

// Flush reads the file of postKey once more and reports it if it changed.
// Used when the editor exits, in case the last event was missed.
func (w *Watcher) Flush(postKey string) {
	w.mu.RLock()
	var path string
	for p, key := range w.watching {
		if key == postKey {
			path = p
			break
		}
	}
	w.mu.RUnlock()
	if path != "" {
		w.report(path)
	}
}

func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				abs, _ := filepath.Abs(event.Name)
				w.report(abs)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) report(abs string) {
	w.mu.RLock()
	key, watched := w.watching[abs]
	w.mu.RUnlock()
	if !watched {
		return
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		w.log.Warn("read draft", zap.String("path", abs), zap.Error(err))
		return
	}
	// editors append a final newline the body never had
	content := strings.TrimSuffix(string(data), "\n")

	w.mu.Lock()
	if _, still := w.watching[abs]; !still || w.last[abs] == content {
		w.mu.Unlock()
		return
	}
	w.last[abs] = content
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(key, content)
	}
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}

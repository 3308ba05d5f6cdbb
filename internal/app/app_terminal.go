package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"go.uber.org/zap"

	"postdesk/internal/domain"
	"postdesk/internal/extedit"
	"postdesk/internal/service"
)

const (
	EventTerminalData = "terminal:data"
	EventTerminalExit = "terminal:exit"
)

// ============================================================
// External editor (embedded terminal)
// ============================================================

// OpenInExternalEditor writes the draft to a file and opens it in the
// configured editor. Every write to the file becomes a body change.
func (a *App) OpenInExternalEditor(line int) error {
	st := a.editor.State()
	if st.Draft.Mode == domain.ModeUninitialized {
		return fmt.Errorf("no post is open")
	}
	key := st.Draft.ID.String()
	path, err := extedit.WriteDraft(a.cfg.DraftsDir(), key, st.Draft.Body)
	if err != nil {
		return err
	}
	if a.ext != nil {
		if err := a.ext.Watch(key, path, st.Draft.Body); err != nil {
			return fmt.Errorf("watch draft: %w", err)
		}
	}

	a.extMu.Lock()
	a.extEditing = key
	a.extMu.Unlock()
	return a.term.Open(path, line)
}

// TerminalWrite sends input from xterm.js to the PTY.
func (a *App) TerminalWrite(data string) error {
	return a.term.Write(data)
}

// TerminalResize resizes the PTY.
func (a *App) TerminalResize(cols, rows int) error {
	if cols <= 0 || rows <= 0 || cols > math.MaxUint16 || rows > math.MaxUint16 {
		return fmt.Errorf("terminal size %dx%d out of range", cols, rows)
	}
	return a.term.Resize(uint16(cols), uint16(rows))
}

// CloseExternalEditor stops the editor session without waiting for it to exit.
func (a *App) CloseExternalEditor() {
	a.extMu.Lock()
	key := a.extEditing
	a.extMu.Unlock()
	a.finishExternalEditing(key)
	if a.term != nil {
		a.term.Close()
	}
}

// finishExternalEditing applies the last file content of key, then stops
// watching it.
func (a *App) finishExternalEditing(key string) {
	if key == "" {
		return
	}
	if a.ext != nil {
		a.ext.Flush(key)
		a.ext.Unwatch(key)
	}
	a.extMu.Lock()
	if a.extEditing == key {
		a.extEditing = ""
	}
	a.extMu.Unlock()
}

// onExternalChange applies the file content when it still belongs to the
// open draft.
func (a *App) onExternalChange(postKey, content string) {
	a.extMu.Lock()
	editing := a.extEditing
	a.extMu.Unlock()
	if postKey != editing || a.editor.State().Draft.ID.String() != postKey {
		return
	}
	if _, err := a.editor.Change(content); err != nil {
		a.log.Warn("apply external edit", zap.String("post", postKey), zap.Error(err))
	}
}

// onExternalEditorExit finishes the session of path. An older session
// killed by a newer Open must not end the newer one.
func (a *App) onExternalEditorExit(emitter service.EventEmitter, path string, line int) {
	a.extMu.Lock()
	key := a.extEditing
	a.extMu.Unlock()
	if key != "" && extedit.DraftPath(a.cfg.DraftsDir(), key) == path {
		a.finishExternalEditing(key)
	}
	emitter.Emit(a.ctx, EventTerminalExit, map[string]int{"cursorLine": line})
}

func emitTerminalData(ctx context.Context, emitter service.EventEmitter, data []byte) {
	emitter.Emit(ctx, EventTerminalData, base64.StdEncoding.EncodeToString(data))
}

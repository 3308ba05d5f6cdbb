package app

import (
	"postdesk/internal/domain"
	"postdesk/internal/editor"
)

// ============================================================
// Post editor
// ============================================================

// OpenEditor mounts the editor on a post id, or "new" for a fresh draft.
func (a *App) OpenEditor(id string) (domain.EditorState, error) {
	st, err := a.editor.Open(a.ctx, domain.ID(id))
	if err == nil {
		a.watcher.SetPost(st.Draft.ID)
	}
	return st, err
}

// CloseEditor unmounts the editor; requests still in flight are discarded.
func (a *App) CloseEditor() {
	a.CloseExternalEditor()
	a.watcher.SetPost("")
	a.editor.Close()
}

func (a *App) GetEditorState() domain.EditorState {
	return a.editor.State()
}

// ChangeBody is called on every keystroke with the full body.
func (a *App) ChangeBody(body string) (domain.EditorState, error) {
	return a.editor.Change(body)
}

func (a *App) SavePost() (editor.SaveResult, error) {
	res, err := a.editor.Save(a.ctx)
	if err == nil && !res.Created {
		a.watcher.Sync()
	}
	return res, err
}

func (a *App) PublishPost() (editor.TransitionResult, error) {
	res, err := a.editor.Publish(a.ctx)
	a.watcher.Sync()
	return res, err
}

func (a *App) DraftPost() (editor.TransitionResult, error) {
	res, err := a.editor.Draft(a.ctx)
	a.watcher.Sync()
	return res, err
}

// ListPosts lists the current author's posts for the sidebar.
func (a *App) ListPosts() ([]domain.Post, error) {
	return a.editor.ListPosts(a.ctx)
}

// DeriveTitle lets the frontend preview a title without touching the draft.
func (a *App) DeriveTitle(body string) string {
	return domain.DeriveTitle(body)
}

func (a *App) RestoreRecovery() (domain.EditorState, error) {
	return a.editor.RestoreRecovery()
}

func (a *App) DiscardRecovery() error {
	return a.editor.DiscardRecovery()
}

// ApproveMCPAction allows a pending agent publish. id is looked up in the
// in-app MCP server first, then among the standalone server's requests.
func (a *App) ApproveMCPAction(id string) (bool, error) {
	if a.mcp != nil && a.mcp.Approve(id) {
		return true, nil
	}
	return a.approvals.Resolve(id, true)
}

// RejectMCPAction refuses a pending agent publish.
func (a *App) RejectMCPAction(id string) (bool, error) {
	if a.mcp != nil && a.mcp.Reject(id) {
		return true, nil
	}
	return a.approvals.Resolve(id, false)
}

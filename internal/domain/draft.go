package domain

import "time"

type EditorMode string

const (
	ModeUninitialized EditorMode = ""
	ModeCreate        EditorMode = "create"
	ModeEdit          EditorMode = "edit"
)

// Draft is the post being edited. Title is never assigned directly; every
// body write goes through WithBody.
type Draft struct {
	ID        ID         `json:"id"`
	Body      string     `json:"body"`
	Title     string     `json:"title"`
	Published bool       `json:"published"`
	Mode      EditorMode `json:"mode"`
	// UpdatedAt is the backend's last write time of the loaded post, zero
	// when unknown.
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// WithBody returns a copy of d holding body and the title derived from it.
func (d Draft) WithBody(body string) Draft {
	d.Body = body
	d.Title = DeriveTitle(body)
	return d
}

// DraftFromPost builds an edit-mode draft from a loaded post. The title is
// re-derived from the body rather than trusted from the backend.
func DraftFromPost(p *Post) Draft {
	d := Draft{ID: p.ID, Published: p.Published, Mode: ModeEdit, UpdatedAt: p.UpdatedAt}
	return d.WithBody(p.Body)
}

// TransitionKind names a publish-state change.
type TransitionKind string

const (
	TransitionNone    TransitionKind = ""
	TransitionPublish TransitionKind = "publish"
	TransitionDraft   TransitionKind = "draft"
)

// EditorState is the snapshot of the editor handed to the frontend.
type EditorState struct {
	Draft   Draft          `json:"draft"`
	Dirty   bool           `json:"dirty"`
	CanSave bool           `json:"canSave"`
	Pending TransitionKind `json:"pending"`
	// CanPublish and CanDraft mirror which of the two buttons the header shows.
	CanPublish bool `json:"canPublish"`
	CanDraft   bool `json:"canDraft"`
}

package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"postdesk/internal/domain"
)

var (
	ErrNotMounted        = errors.New("editor not mounted")
	ErrStale             = errors.New("editor was remounted or closed")
	ErrNoChanges         = errors.New("no unsaved changes")
	ErrActionUnavailable = errors.New("action not available in current state")
	ErrTransitionPending = errors.New("publish state change already in flight")
	ErrNotAuthor         = fmt.Errorf("post belongs to another author: %w", domain.ErrUnauthorized)
)

// Deps are the collaborators of an Editor. Nav and Notify may be nil.
type Deps struct {
	API     PostAPI
	Nav     Navigator
	Notify  Notifier
	Session Session
	Logger  *zap.Logger
	// OnState is called after every state change, outside the editor lock.
	OnState func(domain.EditorState)
}

// Editor holds the draft of one post view. A mount opens a lifetime; every
// request started during it is cancelled when the editor is unmounted or
// mounted again, and results that arrive afterwards are dropped.
type Editor struct {
	api     PostAPI
	nav     Navigator
	notify  Notifier
	session Session
	log     *zap.Logger
	onState func(domain.EditorState)

	mu        sync.Mutex
	draft     domain.Draft
	persisted string // body as of the last load or save
	pending   domain.TransitionKind
	life      context.Context
	cancel    context.CancelFunc
	gen       uint64
}

func New(deps Deps) *Editor {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{
		api:     deps.API,
		nav:     deps.Nav,
		notify:  deps.Notify,
		session: deps.Session,
		log:     log.Named("editor"),
		onState: deps.OnState,
	}
}

// SaveResult describes a completed save. Created is set when a new post was
// created; the caller has already been navigated to its edit route.
type SaveResult struct {
	ID      domain.ID          `json:"id"`
	Created bool               `json:"created"`
	State   domain.EditorState `json:"state"`
}

// TransitionResult reports the outcome of Publish or Draft.
type TransitionResult struct {
	Kind       domain.TransitionKind `json:"kind"`
	Confirmed  bool                  `json:"confirmed"`
	RolledBack bool                  `json:"rolledBack"`
	State      domain.EditorState    `json:"state"`
}

// Mount opens the editor on id. domain.NewPostID starts an empty draft in
// create mode; any other id is loaded from the API.
func (e *Editor) Mount(ctx context.Context, id domain.ID) error {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.life, e.cancel = context.WithCancel(context.Background())
	e.gen++
	gen := e.gen
	e.draft = domain.Draft{}
	e.persisted = ""
	e.pending = domain.TransitionNone

	if id == "" || id == domain.NewPostID {
		e.draft = domain.Draft{ID: domain.NewPostID, Mode: domain.ModeCreate}.WithBody("")
		st := e.stateLocked()
		e.mu.Unlock()
		e.log.Debug("mounted new draft")
		e.emit(st)
		return nil
	}
	st := e.stateLocked()
	e.mu.Unlock()
	e.emit(st)

	return e.load(ctx, gen, id)
}

// Unmount ends the current lifetime. In-flight requests are cancelled.
func (e *Editor) Unmount() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.life, e.cancel = nil, nil
	e.gen++
	e.draft = domain.Draft{}
	e.persisted = ""
	e.pending = domain.TransitionNone
	st := e.stateLocked()
	e.mu.Unlock()
	e.emit(st)
}

// State returns the current editor state.
func (e *Editor) State() domain.EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Change replaces the draft body and re-derives the title.
func (e *Editor) Change(body string) (domain.EditorState, error) {
	e.mu.Lock()
	if e.draft.Mode == domain.ModeUninitialized {
		e.mu.Unlock()
		return domain.EditorState{}, ErrNotMounted
	}
	e.draft = e.draft.WithBody(body)
	st := e.stateLocked()
	e.mu.Unlock()
	e.emit(st)
	return st, nil
}

// Save persists the draft. In create mode the post is created and the
// navigator is sent to its edit route; in edit mode the post is updated and
// reloaded.
func (e *Editor) Save(ctx context.Context) (SaveResult, error) {
	e.mu.Lock()
	d := e.draft
	gen := e.gen
	dirty := d.Body != e.persisted
	e.mu.Unlock()

	switch {
	case d.Mode == domain.ModeUninitialized:
		return SaveResult{}, ErrNotMounted
	case !dirty:
		return SaveResult{}, ErrNoChanges
	}

	rctx, done, err := e.requestContext(ctx, gen)
	if err != nil {
		return SaveResult{}, err
	}
	defer done()

	in := domain.PostInput{Body: d.Body, Title: d.Title}
	if d.Mode == domain.ModeCreate {
		return e.create(ctx, rctx, gen, in)
	}
	return e.update(rctx, gen, d, in)
}

func (e *Editor) create(ctx, rctx context.Context, gen uint64, in domain.PostInput) (SaveResult, error) {
	post, err := e.api.CreatePost(rctx, in)
	if err != nil {
		return SaveResult{}, e.requestErr(gen, fmt.Errorf("create post: %w", err))
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		e.log.Info("post created after editor closed", zap.String("id", post.ID.String()))
		return SaveResult{ID: post.ID, Created: true}, ErrStale
	}
	// The draft now edits the created post, so a second save updates it.
	e.draft.ID = post.ID
	e.draft.Mode = domain.ModeEdit
	e.draft.Published = post.Published
	e.draft.UpdatedAt = post.UpdatedAt
	e.persisted = in.Body
	st := e.stateLocked()
	e.mu.Unlock()

	e.log.Info("post created", zap.String("id", post.ID.String()))
	e.emit(st)
	if e.nav != nil {
		e.nav.Navigate(ctx, EditorRoute(post.ID))
	}
	return SaveResult{ID: post.ID, Created: true, State: st}, nil
}

func (e *Editor) update(rctx context.Context, gen uint64, saved domain.Draft, in domain.PostInput) (SaveResult, error) {
	if _, err := e.api.UpdatePost(rctx, saved.ID, in); err != nil {
		return SaveResult{}, e.requestErr(gen, fmt.Errorf("update post %s: %w", saved.ID, err))
	}
	post, err := e.api.GetPost(rctx, saved.ID)
	if err != nil {
		return SaveResult{}, e.requestErr(gen, fmt.Errorf("reload post %s: %w", saved.ID, err))
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return SaveResult{}, ErrStale
	}
	e.persisted = post.Body
	if e.draft.Body == saved.Body {
		e.draft = domain.DraftFromPost(post)
		if e.draft.ID == "" {
			e.draft.ID = saved.ID
		}
	} else {
		// Edits made while the save was in flight stay in the editor.
		e.draft.Published = post.Published
		e.draft.UpdatedAt = post.UpdatedAt
	}
	st := e.stateLocked()
	e.mu.Unlock()

	e.log.Info("post saved", zap.String("id", saved.ID.String()), zap.Bool("dirty", st.Dirty))
	e.emit(st)
	return SaveResult{ID: saved.ID, State: st}, nil
}

// Publish marks the post published. The local flag flips before the call and
// is rolled back if the call fails.
func (e *Editor) Publish(ctx context.Context) (TransitionResult, error) {
	return e.transition(ctx, domain.TransitionPublish)
}

// Draft moves a published post back to draft, symmetric to Publish.
func (e *Editor) Draft(ctx context.Context) (TransitionResult, error) {
	return e.transition(ctx, domain.TransitionDraft)
}

func (e *Editor) transition(ctx context.Context, kind domain.TransitionKind) (TransitionResult, error) {
	want := kind == domain.TransitionPublish

	e.mu.Lock()
	switch {
	case e.draft.Mode != domain.ModeEdit:
		e.mu.Unlock()
		return TransitionResult{Kind: kind}, ErrActionUnavailable
	case e.pending != domain.TransitionNone:
		e.mu.Unlock()
		return TransitionResult{Kind: kind}, ErrTransitionPending
	case e.draft.Published == want:
		e.mu.Unlock()
		return TransitionResult{Kind: kind}, ErrActionUnavailable
	}
	e.pending = kind
	e.draft.Published = want
	id, title, gen := e.draft.ID, e.draft.Title, e.gen
	st := e.stateLocked()
	e.mu.Unlock()
	e.emit(st)

	rctx, done, err := e.requestContext(ctx, gen)
	if err != nil {
		return TransitionResult{Kind: kind}, err
	}
	defer done()

	if want {
		err = e.api.PublishPost(rctx, id)
	} else {
		err = e.api.DraftPost(rctx, id)
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return TransitionResult{Kind: kind}, ErrStale
	}
	e.pending = domain.TransitionNone
	if err != nil {
		e.draft.Published = !want
		st = e.stateLocked()
		e.mu.Unlock()
		e.log.Warn("publish state change failed", zap.String("kind", string(kind)), zap.String("id", id.String()), zap.Error(err))
		e.emit(st)
		return TransitionResult{Kind: kind, RolledBack: true, State: st}, fmt.Errorf("%s post %s: %w", kind, id, err)
	}
	st = e.stateLocked()
	e.mu.Unlock()
	e.emit(st)

	verb := "drafted"
	if want {
		verb = "published"
	}
	if e.notify != nil {
		e.notify.Notify(ctx, Toast{
			Message:     fmt.Sprintf("%s is %s.", title, verb),
			Appearance:  "info",
			AutoDismiss: true,
		})
	}
	return TransitionResult{Kind: kind, Confirmed: true, State: st}, nil
}

func (e *Editor) load(ctx context.Context, gen uint64, id domain.ID) error {
	rctx, done, err := e.requestContext(ctx, gen)
	if err != nil {
		return err
	}
	defer done()

	post, err := e.api.GetPost(rctx, id)
	if err != nil {
		return e.requestErr(gen, fmt.Errorf("load post %s: %w", id, err))
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return ErrStale
	}
	if post.ID != "" && e.session != nil && post.Author.ID != e.session.UserID() {
		e.mu.Unlock()
		e.log.Warn("author mismatch", zap.String("id", id.String()), zap.String("author", post.Author.ID.String()))
		if e.nav != nil {
			e.nav.Navigate(ctx, Route{Path: ExploreRoute, ErrorCode: 401})
		}
		return ErrNotAuthor
	}
	e.draft = domain.DraftFromPost(post)
	if e.draft.ID == "" {
		e.draft.ID = id
	}
	e.persisted = post.Body
	st := e.stateLocked()
	e.mu.Unlock()

	e.log.Debug("mounted post", zap.String("id", id.String()))
	e.emit(st)
	return nil
}

// requestContext derives a request context from ctx that is also cancelled
// when the lifetime identified by gen ends.
func (e *Editor) requestContext(ctx context.Context, gen uint64) (context.Context, func(), error) {
	e.mu.Lock()
	life := e.life
	ok := e.gen == gen && life != nil
	e.mu.Unlock()
	if !ok {
		return nil, nil, ErrStale
	}
	rctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return rctx, func() {
		stop()
		cancel()
	}, nil
}

// requestErr replaces err with ErrStale when the lifetime that issued the
// request has ended, since the failure is then most likely the cancellation.
func (e *Editor) requestErr(gen uint64, err error) error {
	if !e.current(gen) {
		return ErrStale
	}
	return err
}

func (e *Editor) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

func (e *Editor) stateLocked() domain.EditorState {
	d := e.draft
	mounted := d.Mode != domain.ModeUninitialized
	dirty := mounted && d.Body != e.persisted
	idle := e.pending == domain.TransitionNone
	return domain.EditorState{
		Draft:      d,
		Dirty:      dirty,
		CanSave:    dirty,
		Pending:    e.pending,
		CanPublish: d.Mode == domain.ModeEdit && !d.Published && idle,
		CanDraft:   d.Mode == domain.ModeEdit && d.Published && idle,
	}
}

func (e *Editor) emit(st domain.EditorState) {
	if e.onState != nil {
		e.onState(st)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"postdesk/internal/domain"
	"postdesk/internal/editor"
	"postdesk/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Editor Service: one editor view bound to the frontend
// ─────────────────────────────────────────────────────────────

// ErrSaveInFlight is returned when a save of the same post is still running.
var ErrSaveInFlight = errors.New("a save of this post is already running")

// Backend is a post API that can also list the session user's posts.
type Backend interface {
	editor.PostAPI
	ListPosts(ctx context.Context) ([]domain.Post, error)
}

// RecoveryNotice tells the frontend an autosaved body is newer than and
// differs from the loaded one.
type RecoveryNotice struct {
	PostKey   string    `json:"postKey"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// EditorService owns the editor view model and forwards its state, toasts
// and navigation to the frontend through the EventEmitter.
type EditorService struct {
	ed       *editor.Editor
	backend  Backend
	recovery *storage.RecoveryStore
	emitter  EventEmitter
	log      *zap.Logger
	saves    saveGuard
}

// NewEditorService creates an EditorService. recovery may be nil, which
// disables autosave snapshots.
func NewEditorService(
	backend Backend,
	session editor.Session,
	recovery *storage.RecoveryStore,
	emitter EventEmitter,
	log *zap.Logger,
) *EditorService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &EditorService{
		backend:  backend,
		recovery: recovery,
		emitter:  emitter,
		log:      log,
	}
	s.ed = editor.New(editor.Deps{
		API:     backend,
		Nav:     EmitterNavigator{Emitter: emitter},
		Notify:  EmitterNotifier{Emitter: emitter},
		Session: session,
		Logger:  log,
		OnState: func(st domain.EditorState) {
			emitter.Emit(context.Background(), EventEditorState, st)
		},
	})
	return s
}

// Open mounts the editor on id ("new" for a fresh draft).
func (s *EditorService) Open(ctx context.Context, id domain.ID) (domain.EditorState, error) {
	if err := s.ed.Mount(ctx, id); err != nil {
		if !errors.Is(err, editor.ErrNotAuthor) && !errors.Is(err, editor.ErrStale) {
			s.toastError(ctx, "Could not open post", err)
		}
		return s.ed.State(), err
	}
	st := s.ed.State()
	s.announceRecovery(ctx, st)
	return st, nil
}

// Close unmounts the editor, cancelling its requests.
func (s *EditorService) Close() {
	s.ed.Unmount()
}

func (s *EditorService) State() domain.EditorState {
	return s.ed.State()
}

func (s *EditorService) Change(body string) (domain.EditorState, error) {
	return s.ed.Change(body)
}

// Save persists the draft. Only one save per post runs at a time.
func (s *EditorService) Save(ctx context.Context) (editor.SaveResult, error) {
	key := recoveryKey(s.ed.State().Draft.ID)
	if !s.saves.TryLock(key) {
		return editor.SaveResult{}, ErrSaveInFlight
	}
	defer s.saves.Unlock(key)

	res, err := s.ed.Save(ctx)
	if err != nil {
		if !errors.Is(err, editor.ErrNoChanges) && !errors.Is(err, editor.ErrStale) {
			s.toastError(ctx, "Save failed", err)
		}
		return res, err
	}
	if s.recovery != nil {
		if err := s.recovery.Clear(key); err != nil {
			s.log.Warn("clear recovery snapshots", zap.String("postKey", key), zap.Error(err))
		}
	}
	return res, nil
}

func (s *EditorService) Publish(ctx context.Context) (editor.TransitionResult, error) {
	res, err := s.ed.Publish(ctx)
	if err != nil && res.RolledBack {
		s.toastError(ctx, "Publish failed", err)
	}
	return res, err
}

func (s *EditorService) Draft(ctx context.Context) (editor.TransitionResult, error) {
	res, err := s.ed.Draft(ctx)
	if err != nil && res.RolledBack {
		s.toastError(ctx, "Unpublish failed", err)
	}
	return res, err
}

func (s *EditorService) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return s.backend.ListPosts(ctx)
}

// Autosnapshot records the body of a dirty draft for crash recovery. It
// reports whether a snapshot was written.
func (s *EditorService) Autosnapshot() (bool, error) {
	if s.recovery == nil {
		return false, nil
	}
	st := s.ed.State()
	if !st.Dirty {
		return false, nil
	}
	key := recoveryKey(st.Draft.ID)
	latest, err := s.recovery.Latest(key)
	if err != nil {
		return false, err
	}
	if latest != nil && latest.Body == st.Draft.Body {
		return false, nil
	}
	if _, err := s.recovery.Push(key, st.Draft.Body); err != nil {
		return false, err
	}
	return true, nil
}

// RestoreRecovery applies the newest autosaved body of the open draft.
func (s *EditorService) RestoreRecovery() (domain.EditorState, error) {
	if s.recovery == nil {
		return s.ed.State(), nil
	}
	key := recoveryKey(s.ed.State().Draft.ID)
	latest, err := s.recovery.Latest(key)
	if err != nil {
		return domain.EditorState{}, err
	}
	if latest == nil {
		return s.ed.State(), fmt.Errorf("no recovery snapshot for %s", key)
	}
	return s.ed.Change(latest.Body)
}

// DiscardRecovery drops the autosaved bodies of the open draft.
func (s *EditorService) DiscardRecovery() error {
	if s.recovery == nil {
		return nil
	}
	return s.recovery.Clear(recoveryKey(s.ed.State().Draft.ID))
}

// Shutdown waits for running saves, then unmounts the editor.
func (s *EditorService) Shutdown(ctx context.Context) {
	s.saves.WaitAll(ctx)
	s.ed.Unmount()
}

func (s *EditorService) announceRecovery(ctx context.Context, st domain.EditorState) {
	if s.recovery == nil {
		return
	}
	key := recoveryKey(st.Draft.ID)
	latest, err := s.recovery.Latest(key)
	if err != nil {
		s.log.Warn("read recovery snapshot", zap.String("postKey", key), zap.Error(err))
		return
	}
	if latest == nil || latest.Body == st.Draft.Body {
		return
	}
	if !st.Draft.UpdatedAt.IsZero() && !latest.CreatedAt.After(st.Draft.UpdatedAt) {
		s.log.Debug("recovery snapshot older than post", zap.String("postKey", key))
		return
	}
	s.emitter.Emit(ctx, EventRecoveryAvailable, RecoveryNotice{
		PostKey:   key,
		Title:     domain.DeriveTitle(latest.Body),
		CreatedAt: latest.CreatedAt,
	})
}

func (s *EditorService) toastError(ctx context.Context, what string, err error) {
	s.log.Error(what, zap.Error(err))
	s.emitter.Emit(ctx, EventToast, editor.Toast{
		Message:    fmt.Sprintf("%s: %v", what, err),
		Appearance: "error",
	})
}

func recoveryKey(id domain.ID) string {
	if id == "" {
		return domain.NewPostID.String()
	}
	return id.String()
}

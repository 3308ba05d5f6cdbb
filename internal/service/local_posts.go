package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"postdesk/internal/domain"
	"postdesk/internal/editor"
	"postdesk/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// LocalPostAPI: the post backend when no remote blog is configured
// ─────────────────────────────────────────────────────────────

// LocalPostAPI implements editor.PostAPI on the SQLite post store. Posts are
// owned by the session user; writes by anyone else fail with
// domain.ErrUnauthorized.
type LocalPostAPI struct {
	store      *storage.PostStore
	session    editor.Session
	authorName string
}

// NewLocalPostAPI creates a LocalPostAPI.
func NewLocalPostAPI(store *storage.PostStore, session editor.Session, authorName string) *LocalPostAPI {
	return &LocalPostAPI{store: store, session: session, authorName: authorName}
}

func (l *LocalPostAPI) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.GetPost(id)
}

func (l *LocalPostAPI) CreatePost(ctx context.Context, in domain.PostInput) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := &domain.Post{
		ID:     domain.ID(uuid.New().String()),
		Body:   in.Body,
		Title:  in.Title,
		Author: domain.Author{ID: l.session.UserID(), Name: l.authorName},
	}
	if err := l.store.CreatePost(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *LocalPostAPI) UpdatePost(ctx context.Context, id domain.ID, in domain.PostInput) (*domain.Post, error) {
	p, err := l.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Body = in.Body
	p.Title = in.Title
	if err := l.store.UpdatePost(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *LocalPostAPI) PublishPost(ctx context.Context, id domain.ID) error {
	if _, err := l.owned(ctx, id); err != nil {
		return err
	}
	return l.store.SetPublished(id, true)
}

func (l *LocalPostAPI) DraftPost(ctx context.Context, id domain.ID) error {
	if _, err := l.owned(ctx, id); err != nil {
		return err
	}
	return l.store.SetPublished(id, false)
}

// ListPosts returns the session user's posts, most recently updated first.
func (l *LocalPostAPI) ListPosts(ctx context.Context) ([]domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	posts, err := l.store.ListPosts(l.session.UserID())
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

func (l *LocalPostAPI) owned(ctx context.Context, id domain.ID) (*domain.Post, error) {
	p, err := l.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Author.ID != l.session.UserID() {
		return nil, fmt.Errorf("post %s: %w", id, domain.ErrUnauthorized)
	}
	return p, nil
}

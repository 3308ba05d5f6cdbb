package editor

import (
	"context"

	"postdesk/internal/domain"
)

// PostAPI is the backend the editor loads from and saves to. Implementations
// must honor ctx cancellation.
type PostAPI interface {
	GetPost(ctx context.Context, id domain.ID) (*domain.Post, error)
	CreatePost(ctx context.Context, in domain.PostInput) (*domain.Post, error)
	UpdatePost(ctx context.Context, id domain.ID, in domain.PostInput) (*domain.Post, error)
	PublishPost(ctx context.Context, id domain.ID) error
	DraftPost(ctx context.Context, id domain.ID) error
}

// Route is a frontend location. ErrorCode is carried as route state and is
// zero for ordinary navigation.
type Route struct {
	Path      string `json:"path"`
	ErrorCode int    `json:"errorCode,omitempty"`
}

const ExploreRoute = "/explore"

// EditorRoute is the edit route of a saved post.
func EditorRoute(id domain.ID) Route {
	return Route{Path: ExploreRoute + "/editor/" + id.String()}
}

type Navigator interface {
	Navigate(ctx context.Context, r Route)
}

type Toast struct {
	Message     string `json:"message"`
	Appearance  string `json:"appearance"`
	AutoDismiss bool   `json:"autoDismiss"`
}

type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// Session reports the authenticated user.
type Session interface {
	UserID() domain.ID
}

// StaticSession is a Session fixed to one user id.
type StaticSession domain.ID

func (s StaticSession) UserID() domain.ID { return domain.ID(s) }

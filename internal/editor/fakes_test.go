package editor_test

import (
	"context"
	"fmt"
	"sync"

	"postdesk/internal/domain"
	"postdesk/internal/editor"
)

const testUser domain.ID = "user-1"

// fakeAPI is an in-memory PostAPI. When hold is non-nil every call waits for
// it to be closed or for the request context to end.
type fakeAPI struct {
	mu         sync.Mutex
	posts      map[domain.ID]*domain.Post
	nextID     int
	calls      []string
	publishErr error
	ctxErrs    []error

	hold    chan struct{}
	started chan string
}

func newFakeAPI(posts ...*domain.Post) *fakeAPI {
	f := &fakeAPI{posts: map[domain.ID]*domain.Post{}, nextID: 100, started: make(chan string, 16)}
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakeAPI) wait(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hold := f.hold
	f.mu.Unlock()

	select {
	case f.started <- call:
	default:
	}
	if hold == nil {
		return nil
	}
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		f.mu.Lock()
		f.ctxErrs = append(f.ctxErrs, ctx.Err())
		f.mu.Unlock()
		return ctx.Err()
	}
}

func (f *fakeAPI) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	if err := f.wait(ctx, "get "+id.String()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeAPI) CreatePost(ctx context.Context, in domain.PostInput) (*domain.Post, error) {
	if err := f.wait(ctx, "create "+in.Title); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &domain.Post{ID: domain.ID(fmt.Sprint(f.nextID)), Body: in.Body, Title: in.Title, Author: domain.Author{ID: testUser}}
	f.posts[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeAPI) UpdatePost(ctx context.Context, id domain.ID, in domain.PostInput) (*domain.Post, error) {
	if err := f.wait(ctx, "update "+id.String()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	p.Body, p.Title = in.Body, in.Title
	cp := *p
	return &cp, nil
}

func (f *fakeAPI) PublishPost(ctx context.Context, id domain.ID) error {
	return f.setPublished(ctx, "publish", id, true)
}

func (f *fakeAPI) DraftPost(ctx context.Context, id domain.ID) error {
	return f.setPublished(ctx, "draft", id, false)
}

func (f *fakeAPI) setPublished(ctx context.Context, call string, id domain.ID, v bool) error {
	if err := f.wait(ctx, call+" "+id.String()); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.posts[id].Published = v
	return nil
}

func (f *fakeAPI) setHold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	return f.hold
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type recordingNav struct {
	mu     sync.Mutex
	routes []editor.Route
}

func (n *recordingNav) Navigate(_ context.Context, r editor.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, r)
}

func (n *recordingNav) Routes() []editor.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]editor.Route(nil), n.routes...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []editor.Toast
}

func (n *recordingNotifier) Notify(_ context.Context, t editor.Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, t)
}

func (n *recordingNotifier) Toasts() []editor.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]editor.Toast(nil), n.toasts...)
}

type fixture struct {
	api    *fakeAPI
	nav    *recordingNav
	notify *recordingNotifier
	ed     *editor.Editor
}

func newFixture(posts ...*domain.Post) *fixture {
	f := &fixture{api: newFakeAPI(posts...), nav: &recordingNav{}, notify: &recordingNotifier{}}
	f.ed = editor.New(editor.Deps{
		API:     f.api,
		Nav:     f.nav,
		Notify:  f.notify,
		Session: editor.StaticSession(testUser),
	})
	return f
}

func ownPost(id domain.ID, body string, published bool) *domain.Post {
	return &domain.Post{ID: id, Body: body, Title: domain.DeriveTitle(body), Author: domain.Author{ID: testUser}, Published: published}
}

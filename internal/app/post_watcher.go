package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"postdesk/internal/domain"
	mcpserver "postdesk/internal/mcp"
	"postdesk/internal/service"
	"postdesk/internal/storage"
)

// PostChange is the payload of post:changed-externally.
type PostChange struct {
	PostID domain.ID `json:"postId"`
	Title  string    `json:"title"`
}

// postWatcher polls the database for writes to the open post made by
// another process (the standalone MCP server), and for publish requests
// that process is waiting on.
type postWatcher struct {
	ctx       context.Context
	emitter   service.EventEmitter
	editor    *service.EditorService
	posts     *storage.PostStore // nil with the remote backend
	approvals *storage.ApprovalStore
	log       *zap.Logger
	interval  time.Duration

	mu      sync.Mutex
	postID  domain.ID
	last    string // fingerprint of postID
	emitted map[string]bool
	stopCh  chan struct{}
	done    chan struct{}
}

func newPostWatcher(
	ctx context.Context,
	emitter service.EventEmitter,
	editor *service.EditorService,
	posts *storage.PostStore,
	approvals *storage.ApprovalStore,
	log *zap.Logger,
) *postWatcher {
	return &postWatcher{
		ctx:       ctx,
		emitter:   emitter,
		editor:    editor,
		posts:     posts,
		approvals: approvals,
		log:       log.Named("watcher"),
		interval:  2 * time.Second,
		emitted:   map[string]bool{},
	}
}

// SetPost switches the watched post. "" and "new" stop watching posts.
func (w *postWatcher) SetPost(id domain.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id == domain.NewPostID {
		id = ""
	}
	w.postID = id
	w.last = ""
}

// Sync adopts the current fingerprint so our own writes are not reported.
func (w *postWatcher) Sync() {
	w.mu.Lock()
	id := w.postID
	w.mu.Unlock()
	if id == "" || w.posts == nil {
		return
	}
	fp, err := w.posts.Fingerprint(id)
	if err != nil {
		return
	}
	w.mu.Lock()
	if w.postID == id {
		w.last = fp
	}
	w.mu.Unlock()
}

// Start begins the polling loop.
func (w *postWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop()
}

// Stop terminates the polling loop and waits for it.
func (w *postWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

func (w *postWatcher) pollLoop() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *postWatcher) check() {
	w.checkPost()
	w.checkApprovals()
}

func (w *postWatcher) checkPost() {
	if w.posts == nil {
		return
	}
	w.mu.Lock()
	id := w.postID
	w.mu.Unlock()
	if id == "" {
		return
	}

	fp, err := w.posts.Fingerprint(id)
	if err != nil {
		if !errors.Is(err, domain.ErrPostNotFound) {
			w.log.Debug("fingerprint", zap.String("post", id.String()), zap.Error(err))
		}
		return
	}

	w.mu.Lock()
	if w.postID != id {
		w.mu.Unlock()
		return
	}
	changed := w.last != "" && w.last != fp
	w.last = fp
	w.mu.Unlock()
	if !changed {
		return
	}

	post, err := w.posts.GetPost(id)
	if err != nil {
		return
	}
	// a write that matches what the editor holds is our own save
	if st := w.editor.State(); st.Draft.ID == id && st.Draft.Body == post.Body && st.Draft.Published == post.Published {
		return
	}
	w.emitter.Emit(w.ctx, service.EventPostChanged, PostChange{PostID: id, Title: domain.DeriveTitle(post.Body)})
}

func (w *postWatcher) checkApprovals() {
	if w.approvals == nil {
		return
	}
	pending, err := w.approvals.ListPending()
	if err != nil {
		return
	}

	live := make(map[string]bool, len(pending))
	for _, p := range pending {
		live[p.ID] = true
		w.mu.Lock()
		sent := w.emitted[p.ID]
		w.emitted[p.ID] = true
		w.mu.Unlock()
		if sent {
			continue
		}
		w.emitter.Emit(w.ctx, mcpserver.EventApprovalRequired, mcpserver.PendingAction{
			ID:          p.ID,
			Tool:        p.Tool,
			Description: p.Description,
			CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
			Metadata:    p.Metadata,
		})
	}

	// forget approvals the MCP process has resolved or dropped, and take
	// their prompts down
	var gone []string
	w.mu.Lock()
	for id := range w.emitted {
		if !live[id] {
			delete(w.emitted, id)
			gone = append(gone, id)
		}
	}
	w.mu.Unlock()
	for _, id := range gone {
		w.emitter.Emit(w.ctx, mcpserver.EventApprovalDismissed, map[string]string{"id": id})
	}
}

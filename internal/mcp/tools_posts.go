package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"postdesk/internal/domain"
)

func (s *Server) registerPostTools() {
	// ── list_posts ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List the current author's posts"),
	), s.handleListPosts)

	// ── open_post ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_post",
		mcp.WithDescription(`Open a post in the editor. Use id "new" to start a new draft.`),
		mcp.WithString("id",
			mcp.Description(`Post ID, or "new"`),
			mcp.Required(),
		),
	), s.handleOpenPost)

	// ── publish_post ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("publish_post",
		mcp.WithDescription("Publish the open post. It must be saved and currently a draft. May wait for the user to approve."),
	), s.handlePublishPost)

	// ── draft_post ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("draft_post",
		mcp.WithDescription("Move the open, published post back to drafts. May wait for the user to approve."),
	), s.handleDraftPost)
}

func (s *Server) handleListPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts, err := s.editor.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	type postSummary struct {
		ID        domain.ID `json:"id"`
		Title     string    `json:"title"`
		Published bool      `json:"published"`
	}
	summaries := make([]postSummary, len(posts))
	for i, p := range posts {
		summaries[i] = postSummary{ID: p.ID, Title: p.Title, Published: p.Published}
	}
	return jsonResult(summaries)
}

func (s *Server) handleOpenPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.editor.Open(ctx, domain.ID(id))
	if err != nil {
		return nil, fmt.Errorf("open post %s: %w", id, err)
	}
	return jsonResult(st)
}

func (s *Server) handlePublishPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transition(ctx, domain.TransitionPublish)
}

func (s *Server) handleDraftPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.transition(ctx, domain.TransitionDraft)
}

func (s *Server) transition(ctx context.Context, kind domain.TransitionKind) (*mcp.CallToolResult, error) {
	st, err := s.requireOpen()
	if err != nil {
		return nil, err
	}
	if kind == domain.TransitionPublish && !st.CanPublish {
		return nil, fmt.Errorf("post cannot be published now (it must be saved and unpublished)")
	}
	if kind == domain.TransitionDraft && !st.CanDraft {
		return nil, fmt.Errorf("post cannot be moved to drafts now (it must be published)")
	}

	tool := "publish_post"
	verb := "Publish"
	if kind == domain.TransitionDraft {
		tool, verb = "draft_post", "Unpublish"
	}
	if err := s.approve(ctx, tool, fmt.Sprintf("%s %q", verb, st.Draft.Title), st.Draft.ID); err != nil {
		return nil, err
	}

	publish := s.editor.Publish
	if kind == domain.TransitionDraft {
		publish = s.editor.Draft
	}
	res, err := publish(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s post: %w", kind, err)
	}
	return jsonResult(res)
}

package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	draftURI = "postdesk://draft"
	postsURI = "postdesk://posts"
)

func (s *Server) registerResources() {
	// ── postdesk://draft ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		draftURI,
		"Open Draft",
		mcp.WithResourceDescription("The post currently open in the editor"),
		mcp.WithMIMEType("text/markdown"),
	), s.handleDraftResource)

	// ── postdesk://posts ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		postsURI,
		"My Posts",
		mcp.WithMIMEType("application/json"),
	), s.handlePostsResource)
}

func (s *Server) handleDraftResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := s.requireOpen()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      draftURI,
			MIMEType: "text/markdown",
			Text:     st.Draft.Body,
		},
	}, nil
}

func (s *Server) handlePostsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	posts, err := s.editor.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(posts, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      postsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("write_post",
		mcp.WithPromptDescription("Draft a new blog post on a topic"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the post is about"),
			mcp.RequiredArgument(),
		),
	), s.handleWritePostPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("revise_post",
		mcp.WithPromptDescription("Revise an existing post"),
		mcp.WithArgument("id",
			mcp.ArgumentDescription("ID of the post to revise"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the revision should achieve"),
		),
	), s.handleRevisePostPrompt)
}

func (s *Server) handleWritePostPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Write a post about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Write a blog post about "%s". Follow these steps:

1. Call open_post with id "new"
2. Call set_body with the full markdown. Start with a level-1 heading ("# ..."); it becomes the title
3. Check the result with get_draft, then call save_draft
4. Do not publish unless asked to`, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleRevisePostPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["id"]
	goal := req.Params.Arguments["goal"]
	if goal == "" {
		goal = "tighten the prose and fix mistakes"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Revise post %s", id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Revise post %s so that it will %s.

1. Call open_post with id "%s" and read the body
2. Call set_body with the revised markdown, keeping the "# " heading unless the title should change
3. Call save_draft`, id, goal, id),
				},
			},
		},
	}, nil
}

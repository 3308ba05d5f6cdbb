package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"postdesk/internal/domain"
	"postdesk/internal/editor"
)

func (s *Server) registerDraftTools() {
	s.mcp.AddTool(mcp.NewTool("get_draft",
		mcp.WithDescription("Get the open draft: body, derived title, publish state and whether it has unsaved changes"),
	), s.handleGetDraft)

	s.mcp.AddTool(mcp.NewTool("set_body",
		mcp.WithDescription("Replace the body of the open draft. The title is taken from the first '# ' heading."),
		mcp.WithString("body", mcp.Description("Full markdown body"), mcp.Required()),
	), s.handleSetBody)

	s.mcp.AddTool(mcp.NewTool("append_body",
		mcp.WithDescription("Append markdown to the end of the open draft"),
		mcp.WithString("content", mcp.Description("Text to append"), mcp.Required()),
	), s.handleAppendBody)

	s.mcp.AddTool(mcp.NewTool("save_draft",
		mcp.WithDescription("Save the open draft. A new draft is created and stays open under its new id."),
	), s.handleSaveDraft)

	s.mcp.AddTool(mcp.NewTool("derive_title",
		mcp.WithDescription("Show which title a markdown body would get"),
		mcp.WithString("body", mcp.Description("Markdown body"), mcp.Required()),
	), s.handleDeriveTitle)
}

func (s *Server) handleGetDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.requireOpen()
	if err != nil {
		return nil, err
	}
	return jsonResult(st)
}

func (s *Server) handleSetBody(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	body, ok := args["body"].(string)
	if !ok {
		return nil, fmt.Errorf("body is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireOpen(); err != nil {
		return nil, err
	}
	st, err := s.editor.Change(body)
	if err != nil {
		return nil, fmt.Errorf("set body: %w", err)
	}
	return jsonResult(st)
}

func (s *Server) handleAppendBody(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.requireOpen()
	if err != nil {
		return nil, err
	}
	if _, err := s.editor.Change(cur.Draft.Body + content); err != nil {
		return nil, fmt.Errorf("append body: %w", err)
	}
	return textResult(fmt.Sprintf("Appended %d chars to %s", utf8.RuneCountInString(content), cur.Draft.ID)), nil
}

func (s *Server) handleSaveDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireOpen(); err != nil {
		return nil, err
	}
	res, err := s.editor.Save(ctx)
	if errors.Is(err, editor.ErrNoChanges) {
		return textResult("Nothing to save"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	if res.Created {
		// keep working on the stored post
		st, err := s.editor.Open(ctx, res.ID)
		if err != nil {
			return nil, fmt.Errorf("reopen post %s: %w", res.ID, err)
		}
		res.State = st
	}
	return jsonResult(res)
}

func (s *Server) handleDeriveTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(domain.DeriveTitle(req.GetString("body", ""))), nil
}

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"postdesk/internal/domain"
	"postdesk/internal/service"
	"postdesk/internal/storage"
)

// Server exposes the post editor to AI agents over MCP.
type Server struct {
	mcp      *server.MCPServer
	editor   *service.EditorService
	approval *ApprovalQueue
	log      *zap.Logger

	// serializes tool calls that read then write the draft
	mu sync.Mutex
}

// Deps holds the dependencies passed from the app layer.
type Deps struct {
	Emitter EventEmitter
	Editor  *service.EditorService
	// Approvals switches the approval queue to the cross-process table
	// (standalone mode). Without it approvals are resolved in process
	// through Approve and Reject.
	Approvals *storage.ApprovalStore
	// RequireApproval gates publish_post and draft_post behind the user.
	RequireApproval bool
	Logger          *zap.Logger
	Version         string
}

func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		editor: deps.Editor,
		log:    log.Named("mcp"),
	}
	if deps.RequireApproval {
		s.approval = NewApprovalQueue(deps.Emitter, deps.Approvals)
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s.mcp = server.NewMCPServer(
		"postdesk-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPostTools()
	s.registerDraftTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the in-process queue.
func (s *Server) Approve(actionID string) bool {
	return s.approval != nil && s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the in-process queue.
func (s *Server) Reject(actionID string) bool {
	return s.approval != nil && s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// requireOpen fails when no draft is mounted.
func (s *Server) requireOpen() (domain.EditorState, error) {
	st := s.editor.State()
	if st.Draft.Mode == domain.ModeUninitialized {
		return st, fmt.Errorf("no post is open (use open_post first)")
	}
	return st, nil
}

func (s *Server) approve(ctx context.Context, tool, description string, id domain.ID) error {
	if s.approval == nil {
		return nil
	}
	meta, _ := json.Marshal(map[string]string{"postId": id.String()})
	return s.approval.Request(ctx, tool, description, string(meta))
}

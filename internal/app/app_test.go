package app

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postdesk/internal/config"
	"postdesk/internal/domain"
	"postdesk/internal/editor"
	mcpserver "postdesk/internal/mcp"
	"postdesk/internal/secret"
	"postdesk/internal/service"
	"postdesk/internal/storage"
)

func newTestApp(t *testing.T) (*App, *service.MockEmitter) {
	t.Helper()
	return newTestAppWith(t, nil)
}

func newTestAppWith(t *testing.T, configure func(*config.Config)) (*App, *service.MockEmitter) {
	t.Helper()
	t.Setenv("SHELL", "")

	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.UserID = "me"
	cfg.AutosaveSpec = ""
	cfg.Editor = "/bin/true"
	if configure != nil {
		configure(&cfg)
	}

	a := New(cfg, nil, "test")
	a.secrets = secret.NewMemoryStore()
	emitter := &service.MockEmitter{}
	require.NoError(t, a.init(context.Background(), emitter))
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	return a, emitter
}

func TestApp_CreateThenEdit(t *testing.T) {
	a, emitter := newTestApp(t)

	_, err := a.OpenEditor("new")
	require.NoError(t, err)
	st, err := a.ChangeBody("# First post\nhello")
	require.NoError(t, err)
	assert.Equal(t, "First post", st.Draft.Title)
	assert.True(t, st.CanSave)

	res, err := a.SavePost()
	require.NoError(t, err)
	require.True(t, res.Created)

	navs := emitter.Named(service.EventNavigate)
	require.Len(t, navs, 1)
	assert.Equal(t, editor.EditorRoute(res.ID), navs[0].Data)

	// the frontend follows the navigation and opens the stored post
	st, err = a.OpenEditor(res.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.ModeEdit, st.Draft.Mode)
	assert.False(t, st.CanSave)
	assert.True(t, st.CanPublish)

	tr, err := a.PublishPost()
	require.NoError(t, err)
	assert.True(t, tr.Confirmed)

	posts, err := a.ListPosts()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].Published)
}

func TestApp_APIToken(t *testing.T) {
	a, _ := newTestApp(t)
	assert.False(t, a.HasAPIToken())
	assert.Error(t, a.SetAPIToken("   "))

	require.NoError(t, a.SetAPIToken("tok"))
	assert.True(t, a.HasAPIToken())
	require.NoError(t, a.ClearAPIToken())
	assert.False(t, a.HasAPIToken())
}

func TestApp_WindowSize(t *testing.T) {
	a, _ := newTestApp(t)
	require.NoError(t, a.SaveWindowSize(1200, 800))
	assert.Equal(t, service.WindowSize{Width: 1200, Height: 800}, a.LoadWindowSize())
}

func TestPostWatcher_ReportsExternalWrites(t *testing.T) {
	a, emitter := newTestApp(t)
	require.NoError(t, a.posts.CreatePost(&domain.Post{ID: "p1", Body: "# One", Author: domain.Author{ID: "me"}}))
	_, err := a.OpenEditor("p1")
	require.NoError(t, err)

	a.watcher.checkPost() // baseline
	assert.Empty(t, emitter.Named(service.EventPostChanged))

	// another process rewrites the post
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, a.posts.UpdatePost(&domain.Post{ID: "p1", Body: "# Two", Title: "Two"}))
	a.watcher.checkPost()

	changes := emitter.Named(service.EventPostChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, PostChange{PostID: "p1", Title: "Two"}, changes[0].Data)
}

func TestPostWatcher_IgnoresOwnSaves(t *testing.T) {
	a, emitter := newTestApp(t)
	require.NoError(t, a.posts.CreatePost(&domain.Post{ID: "p1", Body: "# One", Author: domain.Author{ID: "me"}}))
	_, err := a.OpenEditor("p1")
	require.NoError(t, err)
	a.watcher.checkPost()

	time.Sleep(2 * time.Millisecond)
	_, err = a.ChangeBody("# One, revised")
	require.NoError(t, err)
	_, err = a.SavePost()
	require.NoError(t, err)
	a.watcher.checkPost()

	assert.Empty(t, emitter.Named(service.EventPostChanged))
}

func TestPostWatcher_ForwardsPendingApprovalsOnce(t *testing.T) {
	a, emitter := newTestApp(t)
	require.NoError(t, a.approvals.Create(&storage.Approval{ID: "ap1", Tool: "publish_post", Description: "Publish"}))

	a.watcher.checkApprovals()
	a.watcher.checkApprovals()
	events := emitter.Named(mcpserver.EventApprovalRequired)
	require.Len(t, events, 1)
	assert.Equal(t, "ap1", events[0].Data.(mcpserver.PendingAction).ID)

	ok, err := a.ApproveMCPAction("ap1")
	require.NoError(t, err)
	assert.True(t, ok)
	a.watcher.checkApprovals()
	assert.Empty(t, a.watcher.emitted)
}

func TestPostWatcher_DismissesVanishedApprovals(t *testing.T) {
	a, emitter := newTestApp(t)
	require.NoError(t, a.approvals.Create(&storage.Approval{ID: "ap2", Tool: "publish_post", Description: "Publish"}))
	a.watcher.checkApprovals()
	require.Len(t, emitter.Named(mcpserver.EventApprovalRequired), 1)
	assert.Empty(t, emitter.Named(mcpserver.EventApprovalDismissed))

	// the MCP process timed out and removed its request
	require.NoError(t, a.approvals.Delete("ap2"))
	a.watcher.checkApprovals()
	a.watcher.checkApprovals()

	dismissed := emitter.Named(mcpserver.EventApprovalDismissed)
	require.Len(t, dismissed, 1)
	assert.Equal(t, map[string]string{"id": "ap2"}, dismissed[0].Data)
}

func TestExternalEdits_ApplyOnlyToOpenDraft(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := a.OpenEditor("new")
	require.NoError(t, err)

	a.extEditing = "new"
	a.onExternalChange("new", "# From vim")
	assert.Equal(t, "# From vim", a.GetEditorState().Draft.Body)

	a.onExternalChange("other", "# Ignored")
	assert.Equal(t, "# From vim", a.GetEditorState().Draft.Body)
}

func TestApp_LoadWindowSizeBeforeStartup(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	a := New(cfg, nil, "test")
	assert.Equal(t, service.WindowSize{Width: service.DefaultWindowWidth, Height: service.DefaultWindowHeight}, a.LoadWindowSize())
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err, name)
	require.False(t, res.IsError, name)
	return res
}

func TestApp_MCPOverHTTPPublishesAfterApproval(t *testing.T) {
	a, emitter := newTestAppWith(t, func(cfg *config.Config) { cfg.MCPAddr = "127.0.0.1:0" })
	require.NotNil(t, a.mcpHTTP)

	ctx := context.Background()
	c, err := client.NewStreamableHttpClient(a.mcpHTTP.URL())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Start(ctx))

	var initReq mcp.InitializeRequest
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "postdesk-test", Version: "1"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	// the agent writes into the draft the user sees
	callTool(t, c, "open_post", map[string]any{"id": "new"})
	callTool(t, c, "set_body", map[string]any{"body": "# Agent post\nbody"})
	assert.Equal(t, "Agent post", a.GetEditorState().Draft.Title)
	callTool(t, c, "save_draft", nil)
	require.Equal(t, domain.ModeEdit, a.GetEditorState().Draft.Mode)

	done := make(chan *mcp.CallToolResult, 1)
	go func() {
		var req mcp.CallToolRequest
		req.Params.Name = "publish_post"
		res, err := c.CallTool(ctx, req)
		if err != nil {
			res = nil
		}
		done <- res
	}()

	var action mcpserver.PendingAction
	require.Eventually(t, func() bool {
		evs := emitter.Named(mcpserver.EventApprovalRequired)
		if len(evs) == 0 {
			return false
		}
		action = evs[0].Data.(mcpserver.PendingAction)
		return true
	}, 5*time.Second, 5*time.Millisecond)
	assert.False(t, a.GetEditorState().Draft.Published, "nothing is published before approval")

	ok, err := a.ApproveMCPAction(action.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	select {
	case res := <-done:
		require.NotNil(t, res)
		assert.False(t, res.IsError)
	case <-time.After(5 * time.Second):
		t.Fatal("publish_post did not finish after approval")
	}
	assert.True(t, a.GetEditorState().Draft.Published)
}

func TestApp_MCPDisabledByDefault(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Nil(t, a.mcp)
	assert.Nil(t, a.mcpHTTP)

	ok, err := a.RejectMCPAction("unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApp_TerminalResizeRejectsOutOfRange(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.TerminalResize(70000, 24))
	assert.Error(t, a.TerminalResize(80, -1))
	assert.Error(t, a.TerminalResize(0, 24))
	assert.NoError(t, a.TerminalResize(120, 40))
}

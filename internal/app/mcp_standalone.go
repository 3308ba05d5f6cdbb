package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"postdesk/internal/config"
	"postdesk/internal/editor"
	mcpserver "postdesk/internal/mcp"
	"postdesk/internal/service"
	"postdesk/internal/storage"
)

// noopEmitter drops events in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// ServeMCP runs postdesk as a standalone MCP server on stdin/stdout against
// the local post database. Publishing waits for approval in the desktop app.
func ServeMCP(cfg config.Config, log *zap.Logger, version string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := storage.New(cfg.DBPath(), cfg.DraftsDir())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	session := editor.StaticSession(cfg.UserID)
	backend := service.NewLocalPostAPI(storage.NewPostStore(db), session, cfg.AuthorName)
	ed := service.NewEditorService(backend, session, nil, noopEmitter{}, log)
	defer ed.Shutdown(ctx)

	srv := mcpserver.New(mcpserver.Deps{
		Emitter:         noopEmitter{},
		Editor:          ed,
		Approvals:       storage.NewApprovalStore(db),
		RequireApproval: true,
		Logger:          log,
		Version:         version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

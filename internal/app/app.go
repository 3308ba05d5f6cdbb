package app

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"postdesk/internal/blogapi"
	"postdesk/internal/config"
	"postdesk/internal/domain"
	"postdesk/internal/editor"
	"postdesk/internal/extedit"
	mcpserver "postdesk/internal/mcp"
	"postdesk/internal/secret"
	"postdesk/internal/service"
	"postdesk/internal/storage"
	"postdesk/internal/terminal"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx     context.Context
	cfg     config.Config
	log     *zap.Logger
	version string

	db        *storage.DB
	posts     *storage.PostStore
	approvals *storage.ApprovalStore
	secrets   secret.SecretStore

	editor   *service.EditorService
	autosave *service.AutosaveService
	windows  *service.WindowSettingsService
	watcher  *postWatcher

	// agent access to the open draft, nil unless cfg.MCPAddr is set
	mcp     *mcpserver.Server
	mcpHTTP *mcpserver.HTTPServer

	term *terminal.Manager
	ext  *extedit.Watcher

	// post key of the draft open in the external editor
	extMu      sync.Mutex
	extEditing string
}

// New creates a new App.
func New(cfg config.Config, log *zap.Logger, version string) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{cfg: cfg, log: log, version: version, secrets: secret.Default()}
}

// wailsEmitter sends events through the Wails runtime. Wails needs its own
// startup context, so the context passed to Emit is ignored.
type wailsEmitter struct {
	ctx context.Context
}

func (w wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(w.ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	if err := a.init(ctx, wailsEmitter{ctx: ctx}); err != nil {
		a.log.Error("startup failed", zap.Error(err))
		wailsRuntime.LogFatalf(ctx, "postdesk: %v", err)
	}
}

// init wires storage, the backend and the services. Split from Startup so
// it can run without a Wails runtime.
func (a *App) init(ctx context.Context, emitter service.EventEmitter) error {
	if runtime.GOOS == "darwin" {
		// let key repeat reach the embedded terminal instead of the accent popup
		exec.Command("defaults", "write", "-g", "ApplePressAndHoldEnabled", "-bool", "false").Run()
	}
	if a.ctx == nil {
		a.ctx = ctx
	}

	db, err := storage.New(a.cfg.DBPath(), a.cfg.DraftsDir())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.posts = storage.NewPostStore(db)
	a.approvals = storage.NewApprovalStore(db)
	a.windows = service.NewWindowSettingsService(storage.NewSettingsStore(db))

	session := editor.StaticSession(a.cfg.UserID)
	backend, err := a.newBackend(session)
	if err != nil {
		return err
	}
	a.editor = service.NewEditorService(
		backend, session, storage.NewRecoveryStore(db, a.cfg.RecoveryKeep), emitter, a.log,
	)

	a.autosave = service.NewAutosaveService(a.editor, a.cfg.AutosaveSpec, a.log)
	if err := a.autosave.Start(); err != nil {
		a.log.Warn("autosave disabled", zap.Error(err))
	}

	var posts *storage.PostStore
	if a.cfg.Backend == config.BackendLocal {
		posts = a.posts
	}
	a.watcher = newPostWatcher(ctx, emitter, a.editor, posts, a.approvals, a.log)
	a.watcher.Start()

	a.term = terminal.New(terminal.Options{
		Editor: a.cfg.Editor,
		OnData: func(data []byte) { emitTerminalData(ctx, emitter, data) },
		OnExit: func(path string, line int) { a.onExternalEditorExit(emitter, path, line) },
		Logger: a.log,
	})
	ext, err := extedit.New(a.onExternalChange, a.log)
	if err != nil {
		a.log.Warn("external editor sync disabled", zap.Error(err))
	}
	a.ext = ext

	if a.cfg.MCPAddr != "" {
		a.mcp = mcpserver.New(mcpserver.Deps{
			Emitter:         emitter,
			Editor:          a.editor,
			RequireApproval: true,
			Logger:          a.log,
			Version:         a.version,
		})
		a.mcpHTTP, err = a.mcp.ListenHTTP(a.cfg.MCPAddr)
		if err != nil {
			a.log.Warn("mcp server disabled", zap.Error(err))
			a.mcp = nil
		}
	}

	a.log.Info("started",
		zap.String("backend", a.cfg.Backend),
		zap.String("dataDir", a.cfg.DataDir),
		zap.String("user", a.cfg.UserID))
	return nil
}

func (a *App) newBackend(session editor.Session) (service.Backend, error) {
	if a.cfg.Backend != config.BackendRemote {
		return service.NewLocalPostAPI(a.posts, session, a.cfg.AuthorName), nil
	}
	client, err := blogapi.New(blogapi.Options{
		BaseURL:     a.cfg.APIBaseURL,
		TokenSource: func() string { return secret.Token(a.secrets, a.cfg.APIToken) },
		AuthorID:    domain.ID(a.cfg.UserID),
		Timeout:     a.cfg.RequestTimeout,
		Logger:      a.log,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.mcpHTTP != nil {
		sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := a.mcpHTTP.Shutdown(sctx); err != nil {
			a.log.Warn("mcp shutdown", zap.Error(err))
		}
		cancel()
	}
	if a.autosave != nil {
		a.autosave.Stop()
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.term != nil {
		a.term.Close()
	}
	if a.ext != nil {
		a.ext.Close()
	}
	if a.editor != nil {
		a.editor.Shutdown(ctx)
	}
	if a.db != nil {
		a.db.Close()
	}
	a.log.Sync()
}

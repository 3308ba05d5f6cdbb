package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"go.uber.org/zap"

	postdesk "postdesk/internal/app"
	"postdesk/internal/config"
	"postdesk/internal/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

var version = "dev"

func main() {
	mcpMode := len(os.Args) > 1 && os.Args[1] == "mcp"

	cfg, err := config.Load(config.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "postdesk:", err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.Development,
		StderrOnly:  mcpMode,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "postdesk:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if mcpMode {
		if err := postdesk.ServeMCP(cfg, log, version); err != nil {
			log.Fatal("mcp server", zap.Error(err))
		}
		return
	}

	app := postdesk.New(cfg, log, version)
	size := app.LoadWindowSize()

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	err = wails.Run(&options.App{
		Title:     "postdesk",
		Width:     size.Width,
		Height:    size.Height,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 250, G: 250, B: 248, A: 1},
		Menu:             appMenu,
		Logger:           logging.NewWailsLogger(log),
		OnStartup:        app.Startup,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				FullSizeContent:            true,
				UseToolbar:                 true,
				HideToolbarSeparator:       true,
			},
			About: &mac.AboutInfo{
				Title:   "postdesk",
				Message: "Markdown blog post editor " + version,
			},
		},
	})
	if err != nil {
		log.Error("wails run", zap.Error(err))
	}
}

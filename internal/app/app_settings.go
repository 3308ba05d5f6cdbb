package app

import (
	"errors"
	"strings"

	"postdesk/internal/secret"
	"postdesk/internal/service"
	"postdesk/internal/storage"
)

// ============================================================
// Settings
// ============================================================

// LoadWindowSize returns the saved window size. Before Startup it reads
// the settings table directly, which main.go needs to size the window.
func (a *App) LoadWindowSize() service.WindowSize {
	if a.windows != nil {
		return a.windows.LoadWindowSize()
	}
	db, err := storage.New(a.cfg.DBPath(), a.cfg.DraftsDir())
	if err != nil {
		return service.NewWindowSettingsService(nil).LoadWindowSize()
	}
	defer db.Close()
	return service.NewWindowSettingsService(storage.NewSettingsStore(db)).LoadWindowSize()
}

// SaveWindowSize is called by the frontend after the window is resized.
func (a *App) SaveWindowSize(width, height int) error {
	return a.windows.SaveWindowSize(width, height)
}

// SetAPIToken stores the remote API token in the OS keychain. It is used
// from the next request on.
func (a *App) SetAPIToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	return a.secrets.Set(secret.APITokenKey, []byte(token))
}

func (a *App) ClearAPIToken() error {
	return a.secrets.Delete(secret.APITokenKey)
}

// HasAPIToken reports whether a token is stored or configured.
func (a *App) HasAPIToken() bool {
	return secret.Token(a.secrets, a.cfg.APIToken) != ""
}

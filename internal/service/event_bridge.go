package service

import (
	"context"

	"postdesk/internal/editor"
)

// EmitterNotifier delivers editor toasts as frontend events.
type EmitterNotifier struct {
	Emitter EventEmitter
}

func (n EmitterNotifier) Notify(ctx context.Context, t editor.Toast) {
	n.Emitter.Emit(ctx, EventToast, t)
}

// EmitterNavigator asks the frontend router to change route.
type EmitterNavigator struct {
	Emitter EventEmitter
}

func (n EmitterNavigator) Navigate(ctx context.Context, r editor.Route) {
	n.Emitter.Emit(ctx, EventNavigate, r)
}

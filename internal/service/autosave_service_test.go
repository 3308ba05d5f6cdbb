package service_test

import (
	"context"
	"testing"

	"postdesk/internal/domain"
	"postdesk/internal/service"
)

func TestAutosaveService_InvalidSchedule(t *testing.T) {
	env := newTestEnv(t)
	svc := service.NewAutosaveService(env.editor, "not a schedule", nil)
	if err := svc.Start(); err == nil {
		svc.Stop()
		t.Fatal("expected invalid schedule error")
	}
}

func TestAutosaveService_EmptyScheduleDisables(t *testing.T) {
	env := newTestEnv(t)
	svc := service.NewAutosaveService(env.editor, "", nil)
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	svc.Stop()
}

func TestAutosaveService_StartStop(t *testing.T) {
	env := newTestEnv(t)
	svc := service.NewAutosaveService(env.editor, "@every 1h", nil)
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Start(); err != nil {
		t.Fatalf("second start should be a no-op: %v", err)
	}
	svc.Stop()
	svc.Stop()
}

func TestAutosaveService_TickSnapshotsDirtyDraft(t *testing.T) {
	env := newTestEnv(t)
	env.editor.Open(context.Background(), domain.NewPostID)
	env.editor.Change("# Draft in progress")

	service.NewAutosaveService(env.editor, "@every 1h", nil).Tick()

	latest, err := env.recovery.Latest("new")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Body != "# Draft in progress" {
		t.Fatalf("expected snapshot of the draft, got %+v", latest)
	}
}

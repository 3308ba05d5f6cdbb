package service_test

import (
	"path/filepath"
	"testing"

	"postdesk/internal/editor"
	"postdesk/internal/service"
	"postdesk/internal/storage"
)

const testUser = "user-1"

type testEnv struct {
	db       *storage.DB
	posts    *storage.PostStore
	recovery *storage.RecoveryStore
	api      *service.LocalPostAPI
	emitter  *service.MockEmitter
	editor   *service.EditorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), filepath.Join(dir, "drafts"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:       db,
		posts:    storage.NewPostStore(db),
		recovery: storage.NewRecoveryStore(db, 5),
		emitter:  &service.MockEmitter{},
	}
	session := editor.StaticSession(testUser)
	env.api = service.NewLocalPostAPI(env.posts, session, "Tester")
	env.editor = service.NewEditorService(env.api, session, env.recovery, env.emitter, nil)
	return env
}

package storage_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postdesk/internal/domain"
	"postdesk/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "postdesk.db"), filepath.Join(dir, "drafts"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "postdesk.db")

	db, err := storage.New(dbPath, dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.New(dbPath, dir)
	require.NoError(t, err, "re-running migrations must tolerate existing columns")
	require.NoError(t, db.Close())
}

func TestPostStore_CRUD(t *testing.T) {
	store := storage.NewPostStore(openTestDB(t))

	p := &domain.Post{ID: "p1", Body: "# One", Title: "One", Author: domain.Author{ID: "u1", Name: "Ann"}}
	require.NoError(t, store.CreatePost(p))

	got, err := store.GetPost("p1")
	require.NoError(t, err)
	assert.Equal(t, "# One", got.Body)
	assert.Equal(t, domain.ID("u1"), got.Author.ID)
	assert.Equal(t, "Ann", got.Author.Name)
	assert.False(t, got.Published)

	got.Body, got.Title = "# Two", "Two"
	require.NoError(t, store.UpdatePost(got))
	require.NoError(t, store.SetPublished("p1", true))

	got, err = store.GetPost("p1")
	require.NoError(t, err)
	assert.Equal(t, "Two", got.Title)
	assert.True(t, got.Published)

	require.NoError(t, store.DeletePost("p1"))
	_, err = store.GetPost("p1")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestPostStore_MissingRows(t *testing.T) {
	store := storage.NewPostStore(openTestDB(t))

	assert.ErrorIs(t, store.UpdatePost(&domain.Post{ID: "nope"}), domain.ErrPostNotFound)
	assert.ErrorIs(t, store.SetPublished("nope", true), domain.ErrPostNotFound)
	_, err := store.Fingerprint("nope")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestPostStore_ListPostsByAuthor(t *testing.T) {
	store := storage.NewPostStore(openTestDB(t))
	for i, author := range []domain.ID{"u1", "u2", "u1"} {
		require.NoError(t, store.CreatePost(&domain.Post{ID: domain.ID(fmt.Sprint("p", i)), Author: domain.Author{ID: author}}))
	}

	posts, err := store.ListPosts("u1")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, domain.ID("u1"), p.Author.ID)
	}
}

func TestPostStore_FingerprintChangesOnWrite(t *testing.T) {
	store := storage.NewPostStore(openTestDB(t))
	p := &domain.Post{ID: "p1", Author: domain.Author{ID: "u1"}}
	require.NoError(t, store.CreatePost(p))

	before, err := store.Fingerprint("p1")
	require.NoError(t, err)
	assert.NotEmpty(t, before)

	p.Body = "changed"
	require.NoError(t, store.UpdatePost(p))
	after, err := store.Fingerprint("p1")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestRecoveryStore_LatestAndPrune(t *testing.T) {
	store := storage.NewRecoveryStore(openTestDB(t), 3)

	latest, err := store.Latest("p1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 0; i < 5; i++ {
		_, err := store.Push("p1", fmt.Sprint("body ", i))
		require.NoError(t, err)
	}
	_, err = store.Push("other", "x")
	require.NoError(t, err)

	snaps, err := store.List("p1")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "body 4", snaps[0].Body)
	assert.Equal(t, "body 2", snaps[2].Body)

	latest, err = store.Latest("p1")
	require.NoError(t, err)
	assert.Equal(t, "body 4", latest.Body)

	require.NoError(t, store.Clear("p1"))
	snaps, err = store.List("p1")
	require.NoError(t, err)
	assert.Empty(t, snaps)

	other, err := store.List("other")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSettingsStore(t *testing.T) {
	store := storage.NewSettingsStore(openTestDB(t))

	_, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("k", "1"))
	require.NoError(t, store.Set("k", "2"))
	v, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestApprovalStore_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	store := storage.NewApprovalStore(db)

	require.NoError(t, store.Create(&storage.Approval{ID: "a1", Tool: "publish_post", Description: "Publish Hello"}))

	pending, err := store.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "publish_post", pending[0].Tool)
	assert.Equal(t, "{}", pending[0].Metadata)

	found, err := store.Resolve("a1", true)
	require.NoError(t, err)
	assert.True(t, found)

	// resolving twice is a no-op
	found, err = store.Resolve("a1", false)
	require.NoError(t, err)
	assert.False(t, found)

	status, ok, err := store.Status("a1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, storage.ApprovalApproved, status)

	pending, err = store.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, store.Delete("a1"))
	_, ok, err = store.Status("a1")
	require.NoError(t, err)
	assert.False(t, ok)
}

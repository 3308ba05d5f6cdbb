package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"postdesk/internal/domain"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"simple heading", "# Hello\nworld", "Hello"},
		{"no heading", "no heading here", ""},
		{"empty body", "", ""},
		{"first heading wins", "intro\n# First\ntext\n# Second", "First"},
		{"trailing whitespace kept", "# Spaced  \nbody", "Spaced  "},
		{"level two ignored", "## Sub\n# Main", "Main"},
		{"no space after marker", "#Hello", ""},
		{"indented marker ignored", "  # Indented", ""},
		{"bare marker", "# ", ""},
		{"crlf line ending", "# Windows\r\nbody", "Windows"},
		{"carriage return separates lines", "text\r# After CR", "After CR"},
		{"line separator", "text\u2028# After LS", "After LS"},
		{"heading on last line", "a\nb\n# Last", "Last"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DeriveTitle(tt.body))
		})
	}
}

func TestDraftWithBody(t *testing.T) {
	d := domain.Draft{ID: "42", Title: "stale", Mode: domain.ModeEdit}
	got := d.WithBody("# Fresh\ncontent")

	assert.Equal(t, "Fresh", got.Title)
	assert.Equal(t, "# Fresh\ncontent", got.Body)
	assert.Equal(t, domain.ID("42"), got.ID)
	assert.Equal(t, "stale", d.Title, "WithBody must not mutate the receiver")
}

func TestDraftFromPost_RederivesTitle(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &domain.Post{ID: "7", Body: "# From body", Title: "from server", Published: true, UpdatedAt: at}
	d := domain.DraftFromPost(p)

	assert.Equal(t, "From body", d.Title)
	assert.True(t, d.Published)
	assert.Equal(t, domain.ModeEdit, d.Mode)
	assert.Equal(t, at, d.UpdatedAt)
}

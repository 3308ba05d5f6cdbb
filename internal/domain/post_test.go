package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postdesk/internal/domain"
)

func TestIDUnmarshal_AcceptsStringsAndNumbers(t *testing.T) {
	var p domain.Post
	require.NoError(t, json.Unmarshal([]byte(`{"id":123,"author":{"id":"u-1"}}`), &p))
	assert.Equal(t, domain.ID("123"), p.ID)
	assert.Equal(t, domain.ID("u-1"), p.Author.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"abc","author":{"id":9}}`), &p))
	assert.Equal(t, domain.ID("abc"), p.ID)
	assert.Equal(t, domain.ID("9"), p.Author.ID)
}

func TestIDUnmarshal_Null(t *testing.T) {
	id := domain.ID("x")
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))
	assert.Equal(t, domain.ID(""), id)
}

func TestIDUnmarshal_RejectsObjects(t *testing.T) {
	var id domain.ID
	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// ID identifies posts and authors. Remote backends send ids either as JSON
// strings or as JSON numbers; both decode to the same string form.
type ID string

// NewPostID is the sentinel id of a draft that has never been saved.
const NewPostID ID = "new"

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

type Author struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

type Post struct {
	ID        ID        `json:"id"`
	Body      string    `json:"body"`
	Title     string    `json:"title"`
	Author    Author    `json:"author"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostInput is the payload of create and update calls.
type PostInput struct {
	Body  string `json:"body"`
	Title string `json:"title"`
}

type PostStore interface {
	CreatePost(p *Post) error
	GetPost(id ID) (*Post, error)
	ListPosts(authorID ID) ([]Post, error)
	UpdatePost(p *Post) error
	SetPublished(id ID, published bool) error
	DeletePost(id ID) error
}

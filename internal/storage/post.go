package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"postdesk/internal/domain"
)

// PostStore implements domain.PostStore using SQLite.
type PostStore struct {
	db *DB
}

func NewPostStore(db *DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, author_id, author_name, title, body, published, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }, p *domain.Post) error {
	return row.Scan(&p.ID, &p.Author.ID, &p.Author.Name, &p.Title, &p.Body, &p.Published, &p.CreatedAt, &p.UpdatedAt)
}

func (s *PostStore) CreatePost(p *domain.Post) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.conn.Exec(
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Author.ID, p.Author.Name, p.Title, p.Body, p.Published, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (s *PostStore) GetPost(id domain.ID) (*domain.Post, error) {
	p := &domain.Post{}
	err := scanPost(s.db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id), p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get post %s: %w", id, domain.ErrPostNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostStore) ListPosts(authorID domain.ID) ([]domain.Post, error) {
	rows, err := s.db.conn.Query(
		`SELECT `+postColumns+` FROM posts WHERE author_id = ? ORDER BY updated_at DESC`, authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PostStore) UpdatePost(p *domain.Post) error {
	p.UpdatedAt = time.Now()
	res, err := s.db.conn.Exec(
		`UPDATE posts SET title = ?, body = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Body, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireRow(res, p.ID)
}

func (s *PostStore) SetPublished(id domain.ID, published bool) error {
	res, err := s.db.conn.Exec(
		`UPDATE posts SET published = ?, updated_at = ? WHERE id = ?`,
		published, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	return requireRow(res, id)
}

func (s *PostStore) DeletePost(id domain.ID) error {
	_, err := s.db.conn.Exec(`DELETE FROM posts WHERE id = ?`, id)
	return err
}

// Fingerprint returns a value that changes whenever the post row is written.
func (s *PostStore) Fingerprint(id domain.ID) (string, error) {
	var updated string
	err := s.db.conn.QueryRow(`SELECT COALESCE(updated_at, '') FROM posts WHERE id = ?`, id).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrPostNotFound
	}
	return updated, err
}

func requireRow(res sql.Result, id domain.ID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("post %s: %w", id, domain.ErrPostNotFound)
	}
	return nil
}

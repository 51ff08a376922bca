package database

import (
	"database/sql"
	"fmt"
	"time"
)

// PostStatus is the outcome of processing one offer
type PostStatus string

const (
	StatusPosted PostStatus = "posted"
	StatusTest   PostStatus = "test" // Story prepared but the publish tap was skipped
	StatusFailed PostStatus = "failed"
)

// Post is one journal row
type Post struct {
	ID           int64
	URL          string
	Title        string
	PriceNow     float64
	PriceBefore  float64
	DiscountRate float64
	ImagePath    string
	Status       PostStatus
	ErrorMessage string
	Duration     time.Duration
	DeviceSerial string
	CreatedAt    time.Time
}

// RecordPost inserts a journal row and returns its ID.
// A zero CreatedAt is set to now.
func (db *DB) RecordPost(p *Post) (int64, error) {
	switch p.Status {
	case StatusPosted, StatusTest, StatusFailed:
	default:
		return 0, fmt.Errorf("invalid post status %q", p.Status)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	result, err := db.conn.Exec(`
		INSERT INTO posts (
			url, title, price_now, price_before, discount_rate,
			image_path, status, error_message, duration_ms, device_serial, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.URL, p.Title, p.PriceNow, p.PriceBefore, p.DiscountRate,
		p.ImagePath, string(p.Status), nullString(p.ErrorMessage), p.Duration.Milliseconds(),
		nullString(p.DeviceSerial), p.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to record post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

// RecentPosts returns the newest rows first
func (db *DB) RecentPosts(limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT id, url, title, price_now, price_before, discount_rate,
		       image_path, status, error_message, duration_ms, device_serial, created_at
		FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var (
			p                         Post
			title, image, errMsg, dev sql.NullString
			now, before, rate         sql.NullFloat64
			durationMS                int64
			status                    string
		)
		if err := rows.Scan(&p.ID, &p.URL, &title, &now, &before, &rate,
			&image, &status, &errMsg, &durationMS, &dev, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Title = title.String
		p.PriceNow = now.Float64
		p.PriceBefore = before.Float64
		p.DiscountRate = rate.Float64
		p.ImagePath = image.String
		p.Status = PostStatus(status)
		p.ErrorMessage = errMsg.String
		p.Duration = time.Duration(durationMS) * time.Millisecond
		p.DeviceSerial = dev.String
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// WasPosted reports whether url was ever published for real
func (db *DB) WasPosted(url string) (bool, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM posts WHERE url = ? AND status = ?
	`, url, string(StatusPosted)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check post history: %w", err)
	}
	return count > 0, nil
}

// CountByStatus summarises the journal
func (db *DB) CountByStatus() (map[PostStatus]int, error) {
	rows, err := db.conn.Query(`SELECT status, COUNT(*) FROM posts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	defer rows.Close()

	counts := make(map[PostStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[PostStatus(status)] = n
	}
	return counts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/entities"
)

// ClickRepository is the persistence the redirect path depends on.
type ClickRepository interface {
	// FindByShortCode returns a live (non-expired) link or ErrNotFound.
	FindByShortCode(ctx context.Context, shortCode string) (*entities.URL, error)
	// IncrementClickCount atomically adds one to the counter and returns
	// the new value.
	IncrementClickCount(ctx context.Context, urlID string) (int64, error)
	// InsertClick appends to the click log and returns the new row ID.
	InsertClick(ctx context.Context, click *entities.Click) (string, error)
}

// URLRepository defines the interface for URL database operations
type URLRepository interface {
	ClickRepository

	Create(ctx context.Context, url *entities.URL) (*entities.URL, error)
	ExistsShortCode(ctx context.Context, shortCode string) (bool, error)
	GetOwned(ctx context.Context, shortCode, userID string) (*entities.URL, error)
	GetByUserID(ctx context.Context, userID string) ([]*entities.URL, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, url *entities.URL) (*entities.URL, error)
	Delete(ctx context.Context, shortCode, userID string) error
	GetClickAnalytics(ctx context.Context, urlID string, hours int) ([]entities.ClickBucket, error)
	GetRecentClicks(ctx context.Context, urlID string, limit int) ([]*entities.Click, error)
	GetOverview(ctx context.Context, userID string) (totalURLs, totalClicks int64, err error)
	DeleteExpired(ctx context.Context, before time.Time) ([]string, error)
}

const urlColumns = `id, short_code, original_url, user_id, title, tags, click_count, created_at, updated_at, expires_at`

const uniqueViolation = "23505"

type urlRepository struct {
	db *sql.DB
}

// NewURLRepository creates a new URL repository
func NewURLRepository(db *sql.DB) URLRepository {
	return &urlRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanURL(row rowScanner) (*entities.URL, error) {
	var (
		url   entities.URL
		title sql.NullString
	)
	err := row.Scan(
		&url.ID,
		&url.ShortCode,
		&url.OriginalURL,
		&url.UserID,
		&title,
		pq.Array(&url.Tags),
		&url.ClickCount,
		&url.CreatedAt,
		&url.UpdatedAt,
		&url.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if title.Valid {
		url.Title = &title.String
	}
	if url.Tags == nil {
		url.Tags = []string{}
	}
	return &url, nil
}

// Create inserts a new URL; a duplicate code yields ErrShortCodeTaken.
func (r *urlRepository) Create(ctx context.Context, url *entities.URL) (*entities.URL, error) {
	query := `
		INSERT INTO urls (short_code, original_url, user_id, title, tags, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + urlColumns

	created, err := scanURL(r.db.QueryRowContext(ctx, query,
		url.ShortCode, url.OriginalURL, url.UserID, url.Title, pq.Array(tagsOrEmpty(url.Tags)), utcPtr(url.ExpiresAt),
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("short code '%s': %w", url.ShortCode, apperrors.ErrShortCodeTaken)
		}
		return nil, apperrors.Store("create url", err)
	}
	return created, nil
}

// FindByShortCode finds a URL by its short code (only if not expired)
func (r *urlRepository) FindByShortCode(ctx context.Context, shortCode string) (*entities.URL, error) {
	query := `
		SELECT ` + urlColumns + `
		FROM urls
		WHERE short_code = $1
		AND (expires_at IS NULL OR expires_at > NOW())
	`

	url, err := scanURL(r.db.QueryRowContext(ctx, query, shortCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("short code '%s': %w", shortCode, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Store("find url", err)
	}
	return url, nil
}

// IncrementClickCount bumps the counter in a single UPDATE so concurrent
// visits never lose an increment.
func (r *urlRepository) IncrementClickCount(ctx context.Context, urlID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE urls
		SET click_count = click_count + 1
		WHERE id = $1
		RETURNING click_count
	`, urlID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("url %s: %w", urlID, apperrors.ErrNotFound)
	}
	if err != nil {
		return 0, apperrors.Store("increment click count", err)
	}
	return count, nil
}

// InsertClick logs one click event.
func (r *urlRepository) InsertClick(ctx context.Context, click *entities.Click) (string, error) {
	clickedAt := click.ClickedAt
	if clickedAt.IsZero() {
		clickedAt = time.Now()
	}

	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO url_clicks (url_id, ip_address, user_agent, referrer, clicked_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, click.URLID, nullString(click.IPAddress), nullString(click.UserAgent), nullString(click.Referrer), clickedAt.UTC()).Scan(&id)
	if err != nil {
		return "", apperrors.Store("insert click", err)
	}
	return id, nil
}

// ExistsShortCode reports whether any link, expired or not, holds the code.
func (r *urlRepository) ExistsShortCode(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM urls WHERE short_code = $1)`, shortCode).Scan(&exists)
	if err != nil {
		return false, apperrors.Store("check short code", err)
	}
	return exists, nil
}

// GetOwned returns a link (including expired ones) only if userID owns it.
func (r *urlRepository) GetOwned(ctx context.Context, shortCode, userID string) (*entities.URL, error) {
	query := `
		SELECT ` + urlColumns + `
		FROM urls
		WHERE short_code = $1 AND user_id = $2
	`

	url, err := scanURL(r.db.QueryRowContext(ctx, query, shortCode, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("short code '%s': %w", shortCode, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Store("get url", err)
	}
	return url, nil
}

// GetByUserID retrieves all URLs for a specific user, newest first
func (r *urlRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.URL, error) {
	query := `
		SELECT ` + urlColumns + `
		FROM urls
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Store("list urls", err)
	}
	defer rows.Close()

	urls := []*entities.URL{}
	for rows.Next() {
		url, err := scanURL(rows)
		if err != nil {
			return nil, apperrors.Store("scan url", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("iterate urls", err)
	}
	return urls, nil
}

func (r *urlRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM urls WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, apperrors.Store("count urls", err)
	}
	return count, nil
}

// Update writes the owner-editable fields. The click counter is never
// written here.
func (r *urlRepository) Update(ctx context.Context, url *entities.URL) (*entities.URL, error) {
	query := `
		UPDATE urls
		SET original_url = $1, title = $2, tags = $3, expires_at = $4, updated_at = NOW()
		WHERE short_code = $5 AND user_id = $6
		RETURNING ` + urlColumns

	updated, err := scanURL(r.db.QueryRowContext(ctx, query,
		url.OriginalURL, url.Title, pq.Array(tagsOrEmpty(url.Tags)), utcPtr(url.ExpiresAt), url.ShortCode, url.UserID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("short code '%s': %w", url.ShortCode, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Store("update url", err)
	}
	return updated, nil
}

// Delete removes a URL owned by userID; its clicks go with it (ON DELETE CASCADE).
func (r *urlRepository) Delete(ctx context.Context, shortCode, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM urls WHERE short_code = $1 AND user_id = $2`, shortCode, userID)
	if err != nil {
		return apperrors.Store("delete url", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Store("delete url", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("short code '%s': %w", shortCode, apperrors.ErrNotFound)
	}
	return nil
}

// BucketSize picks the analytics resolution for a look-back window.
func BucketSize(hours int) time.Duration {
	switch {
	case hours <= 6:
		return 10 * time.Minute
	case hours <= 12:
		return 30 * time.Minute
	case hours <= 24:
		return time.Hour
	case hours <= 72:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// GetClickAnalytics groups the last `hours` of clicks into UTC-aligned buckets.
func (r *urlRepository) GetClickAnalytics(ctx context.Context, urlID string, hours int) ([]entities.ClickBucket, error) {
	bucketSeconds := int64(BucketSize(hours) / time.Second)

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			to_timestamp(floor(extract(epoch FROM clicked_at) / $3) * $3) AS time_bucket,
			COUNT(*) AS click_count
		FROM url_clicks
		WHERE url_id = $1
		AND clicked_at >= NOW() - make_interval(hours => $2)
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, urlID, hours, bucketSeconds)
	if err != nil {
		return nil, apperrors.Store("click analytics", err)
	}
	defer rows.Close()

	buckets := []entities.ClickBucket{}
	for rows.Next() {
		var b entities.ClickBucket
		if err := rows.Scan(&b.Time, &b.Count); err != nil {
			return nil, apperrors.Store("scan analytics", err)
		}
		b.Time = b.Time.UTC()
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("iterate analytics", err)
	}
	return buckets, nil
}

// GetRecentClicks returns the newest click records first.
func (r *urlRepository) GetRecentClicks(ctx context.Context, urlID string, limit int) ([]*entities.Click, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url_id, COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(referrer, ''), clicked_at
		FROM url_clicks
		WHERE url_id = $1
		ORDER BY clicked_at DESC
		LIMIT $2
	`, urlID, limit)
	if err != nil {
		return nil, apperrors.Store("recent clicks", err)
	}
	defer rows.Close()

	clicks := []*entities.Click{}
	for rows.Next() {
		var c entities.Click
		if err := rows.Scan(&c.ID, &c.URLID, &c.IPAddress, &c.UserAgent, &c.Referrer, &c.ClickedAt); err != nil {
			return nil, apperrors.Store("scan click", err)
		}
		clicks = append(clicks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("iterate clicks", err)
	}
	return clicks, nil
}

// GetOverview sums the denormalized counters; the click log is not scanned.
func (r *urlRepository) GetOverview(ctx context.Context, userID string) (int64, int64, error) {
	var totalURLs, totalClicks int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(click_count), 0)
		FROM urls
		WHERE user_id = $1
	`, userID).Scan(&totalURLs, &totalClicks)
	if err != nil {
		return 0, 0, apperrors.Store("overview", err)
	}
	return totalURLs, totalClicks, nil
}

// DeleteExpired purges links that expired before the given time and
// returns their short codes.
func (r *urlRepository) DeleteExpired(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		DELETE FROM urls
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		RETURNING short_code
	`, before.UTC())
	if err != nil {
		return nil, apperrors.Store("delete expired", err)
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, apperrors.Store("delete expired", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("delete expired", err)
	}
	return codes, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// tagsOrEmpty keeps nil out of the NOT NULL tags column.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

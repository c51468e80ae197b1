package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/cache"
	"linkpulse-be/internal/entities"
	"linkpulse-be/internal/logging"
	"linkpulse-be/internal/metrics"
	"linkpulse-be/internal/models"
	"linkpulse-be/internal/repository"
	"linkpulse-be/internal/validation"
)

const (
	generatedCodeLength   = 8
	maxGenerateAttempts   = 10
	shortCodeCacheTTL     = 24 * time.Hour
	expiryGrace           = 2 * time.Second
	maxTags               = 20
	DefaultAnalyticsHours = 24
	MaxAnalyticsHours     = 720
	MaxRecentClicks       = 100
)

// URLService defines the interface for URL business logic. Every method
// except ShortURL and PurgeExpired is scoped to the owning user; other
// users' links behave as if they did not exist.
type URLService interface {
	CreateShortURL(ctx context.Context, userID string, req *models.CreateURLRequest) (*models.URLResponse, error)
	GetURL(ctx context.Context, shortCode, userID string) (*models.URLResponse, error)
	GetUserURLs(ctx context.Context, userID string) ([]models.URLResponse, error)
	UpdateURL(ctx context.Context, shortCode, userID string, req *models.UpdateURLRequest) (*models.URLResponse, error)
	DeleteURL(ctx context.Context, shortCode, userID string) error
	GetClickAnalytics(ctx context.Context, shortCode, userID string, hours int) (*models.AnalyticsResponse, error)
	GetRecentClicks(ctx context.Context, shortCode, userID string, limit int) ([]models.ClickResponse, error)
	GetOverview(ctx context.Context, userID string) (*models.OverviewResponse, error)
	ShortURL(shortCode string) string
	PurgeExpired(ctx context.Context) (int64, error)
}

type urlService struct {
	repo    repository.URLRepository
	users   repository.UserRepository
	cache   cache.Cache
	baseURL string
	now     func() time.Time
}

// NewURLService creates a new URL service. cacheClient may be nil, in which
// case code availability is checked against the database only.
func NewURLService(repo repository.URLRepository, users repository.UserRepository, cacheClient cache.Cache, baseURL string) URLService {
	return &urlService{
		repo:    repo,
		users:   users,
		cache:   cacheClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (s *urlService) ShortURL(shortCode string) string {
	return s.baseURL + "/r/" + shortCode
}

func (s *urlService) respond(url *entities.URL) *models.URLResponse {
	resp := models.NewURLResponse(url, s.ShortURL(url.ShortCode))
	return &resp
}

// generateShortCode returns 8 URL-safe characters from 6 random bytes.
func generateShortCode() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes)[:generatedCodeLength], nil
}

// shortCodeAvailable consults the cache first, then the database.
func (s *urlService) shortCodeAvailable(ctx context.Context, shortCode string) (bool, error) {
	if s.cache != nil {
		taken, err := s.cache.Exists(ctx, cache.ShortCodeKey(shortCode))
		if err == nil && taken {
			return false, nil
		}
		if err != nil {
			logging.Logger.Debug("short code cache check failed", zap.Error(err))
		}
	}

	exists, err := s.repo.ExistsShortCode(ctx, shortCode)
	if err != nil {
		return false, err
	}
	if exists {
		s.markTaken(ctx, shortCode)
	}
	return !exists, nil
}

func (s *urlService) markTaken(ctx context.Context, shortCode string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.ShortCodeKey(shortCode), "taken", shortCodeCacheTTL); err != nil {
		logging.Logger.Debug("short code cache write failed", zap.Error(err))
	}
}

func (s *urlService) forgetCode(ctx context.Context, shortCode string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.ShortCodeKey(shortCode)); err != nil {
		logging.Logger.Debug("short code cache delete failed", zap.Error(err))
	}
}

func (s *urlService) validateExpiry(expiresAt *time.Time) error {
	if expiresAt != nil && expiresAt.Before(s.now().Add(-expiryGrace)) {
		return apperrors.Invalid("expiration date must be in the future")
	}
	return nil
}

func (s *urlService) CreateShortURL(ctx context.Context, userID string, req *models.CreateURLRequest) (*models.URLResponse, error) {
	if err := validation.ValidateDestination(req.URL); err != nil {
		return nil, err
	}
	if err := s.validateExpiry(req.ExpiresAt); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	count, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= user.MaxURLs {
		return nil, apperrors.ErrLimitReached
	}

	link := &entities.URL{
		OriginalURL: req.URL,
		UserID:      userID,
		Title:       trimmedOrNil(req.Title),
		Tags:        validation.NormalizeTags(req.Tags),
		ExpiresAt:   req.ExpiresAt,
	}

	var created *entities.URL
	if req.ShortCode != nil && *req.ShortCode != "" {
		code := *req.ShortCode
		if err := validation.ValidateCustomShortCode(code); err != nil {
			return nil, err
		}
		available, err := s.shortCodeAvailable(ctx, code)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, fmt.Errorf("short code '%s': %w", code, apperrors.ErrShortCodeTaken)
		}
		link.ShortCode = code
		created, err = s.repo.Create(ctx, link)
		if err != nil {
			return nil, err
		}
	} else {
		created, err = s.createWithGeneratedCode(ctx, link)
		if err != nil {
			return nil, err
		}
	}

	s.markTaken(ctx, created.ShortCode)
	metrics.LinksCreated.Inc()
	logging.Logger.Info("short link created",
		zap.String("short_code", created.ShortCode),
		zap.String("user_id", userID),
	)
	return s.respond(created), nil
}

// createWithGeneratedCode retries on collisions, including ones that slip
// past the availability check and hit the unique index.
func (s *urlService) createWithGeneratedCode(ctx context.Context, link *entities.URL) (*entities.URL, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := generateShortCode()
		if err != nil {
			return nil, err
		}
		available, err := s.shortCodeAvailable(ctx, code)
		if err != nil {
			return nil, err
		}
		if !available {
			continue
		}

		link.ShortCode = code
		created, err := s.repo.Create(ctx, link)
		if errors.Is(err, apperrors.ErrShortCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return created, nil
	}
	return nil, fmt.Errorf("failed to generate unique short code after %d attempts", maxGenerateAttempts)
}

func (s *urlService) GetURL(ctx context.Context, shortCode, userID string) (*models.URLResponse, error) {
	url, err := s.repo.GetOwned(ctx, shortCode, userID)
	if err != nil {
		return nil, err
	}
	return s.respond(url), nil
}

func (s *urlService) GetUserURLs(ctx context.Context, userID string) ([]models.URLResponse, error) {
	urls, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.URLResponse, 0, len(urls))
	for _, url := range urls {
		out = append(out, *s.respond(url))
	}
	return out, nil
}

func (s *urlService) UpdateURL(ctx context.Context, shortCode, userID string, req *models.UpdateURLRequest) (*models.URLResponse, error) {
	url, err := s.repo.GetOwned(ctx, shortCode, userID)
	if err != nil {
		return nil, err
	}

	if req.URL != nil {
		if err := validation.ValidateDestination(*req.URL); err != nil {
			return nil, err
		}
		url.OriginalURL = *req.URL
	}
	if req.Title != nil {
		url.Title = trimmedOrNil(req.Title)
	}
	if req.Tags != nil {
		if len(*req.Tags) > maxTags {
			return nil, apperrors.Invalid("at most %d tags are allowed", maxTags)
		}
		url.Tags = validation.NormalizeTags(*req.Tags)
	}
	if req.ExpiresAt != nil {
		if *req.ExpiresAt == "" {
			url.ExpiresAt = nil
		} else {
			t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				return nil, apperrors.Invalid("expires_at must be an RFC 3339 timestamp")
			}
			if err := s.validateExpiry(&t); err != nil {
				return nil, err
			}
			url.ExpiresAt = &t
		}
	}

	updated, err := s.repo.Update(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.respond(updated), nil
}

func (s *urlService) DeleteURL(ctx context.Context, shortCode, userID string) error {
	if err := s.repo.Delete(ctx, shortCode, userID); err != nil {
		return err
	}
	s.forgetCode(ctx, shortCode)
	logging.Logger.Info("short link deleted", zap.String("short_code", shortCode), zap.String("user_id", userID))
	return nil
}

func (s *urlService) GetClickAnalytics(ctx context.Context, shortCode, userID string, hours int) (*models.AnalyticsResponse, error) {
	if hours <= 0 {
		hours = DefaultAnalyticsHours
	}
	if hours > MaxAnalyticsHours {
		hours = MaxAnalyticsHours
	}

	url, err := s.repo.GetOwned(ctx, shortCode, userID)
	if err != nil {
		return nil, err
	}
	buckets, err := s.repo.GetClickAnalytics(ctx, url.ID, hours)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	return &models.AnalyticsResponse{
		ShortCode:  shortCode,
		Hours:      hours,
		Interval:   intervalLabel(repository.BucketSize(hours)),
		TotalCount: total,
		Buckets:    buckets,
	}, nil
}

func intervalLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
}

func (s *urlService) GetRecentClicks(ctx context.Context, shortCode, userID string, limit int) ([]models.ClickResponse, error) {
	if limit <= 0 || limit > MaxRecentClicks {
		limit = MaxRecentClicks
	}

	url, err := s.repo.GetOwned(ctx, shortCode, userID)
	if err != nil {
		return nil, err
	}
	clicks, err := s.repo.GetRecentClicks(ctx, url.ID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]models.ClickResponse, 0, len(clicks))
	for _, c := range clicks {
		out = append(out, models.ClickResponse{
			ID:        c.ID,
			IPAddress: c.IPAddress,
			UserAgent: c.UserAgent,
			Referrer:  c.Referrer,
			ClickedAt: c.ClickedAt,
		})
	}
	return out, nil
}

func (s *urlService) GetOverview(ctx context.Context, userID string) (*models.OverviewResponse, error) {
	urls, clicks, err := s.repo.GetOverview(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.OverviewResponse{TotalURLs: urls, TotalClicks: clicks}, nil
}

// PurgeExpired deletes every link whose expiry has passed and frees their
// codes in the cache.
func (s *urlService) PurgeExpired(ctx context.Context) (int64, error) {
	codes, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, code := range codes {
		s.forgetCode(ctx, code)
	}
	return int64(len(codes)), nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

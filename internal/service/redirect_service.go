package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/entities"
	"linkpulse-be/internal/logging"
	"linkpulse-be/internal/metrics"
	"linkpulse-be/internal/models"
	"linkpulse-be/internal/realtime"
	"linkpulse-be/internal/repository"
	"linkpulse-be/internal/validation"
)

// Publisher pushes a message to every live subscriber of an owner. It must
// not block; the return value is the number of subscribers reached.
type Publisher interface {
	Publish(ownerID, msgType string, data interface{}) int
}

// RedirectService handles public visits to short links.
type RedirectService interface {
	// Resolve returns the live link for shortCode. A missing code yields
	// apperrors.ErrNotFound; storage trouble yields ErrStoreUnavailable.
	Resolve(ctx context.Context, shortCode string) (*entities.URL, error)
	// RecordClick increments the link's counter, logs a click event and
	// notifies the owner. It returns the post-increment count.
	RecordClick(ctx context.Context, url *entities.URL, visit models.Visit) (int64, error)
	// Visit resolves, records and returns the destination. Recording
	// failures never fail the visit.
	Visit(ctx context.Context, shortCode string, visit models.Visit) (string, error)
}

type redirectService struct {
	repo          repository.ClickRepository
	publisher     Publisher
	recordTimeout time.Duration
	now           func() time.Time
}

// NewRedirectService creates the visit flow. recordTimeout bounds the two
// recording writes of a single visit.
func NewRedirectService(repo repository.ClickRepository, publisher Publisher, recordTimeout time.Duration) RedirectService {
	if recordTimeout <= 0 {
		recordTimeout = 2 * time.Second
	}
	return &redirectService{
		repo:          repo,
		publisher:     publisher,
		recordTimeout: recordTimeout,
		now:           time.Now,
	}
}

func (s *redirectService) Resolve(ctx context.Context, shortCode string) (*entities.URL, error) {
	if !validation.IsWellFormedCode(shortCode) {
		return nil, fmt.Errorf("short code '%s': %w", shortCode, apperrors.ErrNotFound)
	}

	url, err := s.repo.FindByShortCode(ctx, shortCode)
	if err == nil {
		return url, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrStoreUnavailable) {
		return nil, err
	}
	return nil, apperrors.Store("resolve short code", err)
}

func (s *redirectService) RecordClick(ctx context.Context, url *entities.URL, visit models.Visit) (int64, error) {
	// The visitor may hang up mid-redirect; the writes still get their own budget.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recordTimeout)
	defer cancel()

	log := logging.Logger.With(zap.String("short_code", url.ShortCode), zap.String("url_id", url.ID))

	count, incErr := s.repo.IncrementClickCount(recCtx, url.ID)
	if incErr != nil {
		metrics.ClickRecordFailures.WithLabelValues(metrics.StageIncrement).Inc()
		log.Warn("click counter increment failed", zap.String("stage", metrics.StageIncrement), zap.Error(incErr))
	} else {
		metrics.ClicksRecorded.Inc()
	}

	clickedAt := visit.StartedAt
	if clickedAt.IsZero() {
		clickedAt = s.now()
	}

	// Attempted even when the increment failed: every attempted increment
	// is paired with an event insert.
	click := &entities.Click{
		URLID:     url.ID,
		IPAddress: visit.IPAddress,
		UserAgent: visit.UserAgent,
		Referrer:  visit.Referrer,
		ClickedAt: clickedAt.UTC(),
	}
	if _, err := s.repo.InsertClick(recCtx, click); err != nil {
		metrics.ClickRecordFailures.WithLabelValues(metrics.StageInsert).Inc()
		log.Warn("click event insert failed", zap.String("stage", metrics.StageInsert), zap.Error(err))
	}

	if incErr != nil {
		return 0, fmt.Errorf("record click: %w", incErr)
	}

	// Published only after the increment is committed, so a subscriber never
	// sees a count lower than the store holds.
	s.publisher.Publish(url.UserID, realtime.MessageTypeClick, models.ClickNotification{
		URLID:      url.ID,
		ShortCode:  url.ShortCode,
		ClickCount: count,
	})

	return count, nil
}

func (s *redirectService) Visit(ctx context.Context, shortCode string, visit models.Visit) (string, error) {
	url, err := s.Resolve(ctx, shortCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.Redirects.WithLabelValues(metrics.OutcomeNotFound).Inc()
		} else {
			metrics.Redirects.WithLabelValues(metrics.OutcomeError).Inc()
			logging.Logger.Error("short code lookup failed", zap.String("short_code", shortCode), zap.Error(err))
		}
		return "", err
	}

	// Error already logged and counted; the visitor is redirected regardless.
	_, _ = s.RecordClick(ctx, url, visit)

	metrics.Redirects.WithLabelValues(metrics.OutcomeRedirected).Inc()
	return url.OriginalURL, nil
}

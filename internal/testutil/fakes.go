// Package testutil holds in-memory stand-ins for the persistence, cache and
// live-push collaborators.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/cache"
	"linkpulse-be/internal/entities"
	"linkpulse-be/internal/repository"
)

var (
	_ repository.URLRepository  = (*FakeURLRepository)(nil)
	_ repository.UserRepository = (*FakeUserRepository)(nil)
	_ cache.Cache               = (*MemoryCache)(nil)
)

// FakeURLRepository keeps links and clicks in memory. The *Err fields
// inject errors into single operations; the *Delay fields stall the click
// writes until the delay passes or ctx is done.
type FakeURLRepository struct {
	mu     sync.Mutex
	seq    int
	urls   map[string]*entities.URL // by ID
	codes  map[string]string        // short code -> ID
	clicks []*entities.Click

	FindErr      error
	IncrementErr error
	InsertErr    error
	CreateErr    error

	IncrementDelay time.Duration
	InsertDelay    time.Duration

	FindCalls int
}

func NewFakeURLRepository() *FakeURLRepository {
	return &FakeURLRepository{
		urls:  make(map[string]*entities.URL),
		codes: make(map[string]string),
	}
}

func (f *FakeURLRepository) nextID(prefix string) string {
	f.seq++
	return prefix + "-" + strconv.Itoa(f.seq)
}

// Seed stores url as-is (assigning an ID if missing) and returns a copy.
func (f *FakeURLRepository) Seed(url entities.URL) *entities.URL {
	f.mu.Lock()
	defer f.mu.Unlock()

	if url.ID == "" {
		url.ID = f.nextID("url")
	}
	if url.CreatedAt.IsZero() {
		url.CreatedAt = time.Now()
		url.UpdatedAt = url.CreatedAt
	}
	if url.Tags == nil {
		url.Tags = []string{}
	}
	stored := url
	f.urls[url.ID] = &stored
	f.codes[url.ShortCode] = url.ID
	out := stored
	return &out
}

// Link returns a copy of the stored link for code, or nil.
func (f *FakeURLRepository) Link(code string) *entities.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.codes[code]
	if !ok {
		return nil
	}
	out := *f.urls[id]
	return &out
}

// Clicks returns copies of the click records for urlID in insertion order.
func (f *FakeURLRepository) Clicks(urlID string) []entities.Click {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Click
	for _, c := range f.clicks {
		if c.URLID == urlID {
			out = append(out, *c)
		}
	}
	return out
}

// ClickTotal counts every stored click regardless of link.
func (f *FakeURLRepository) ClickTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clicks)
}

func (f *FakeURLRepository) FindByShortCode(_ context.Context, shortCode string) (*entities.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.FindCalls++
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	id, ok := f.codes[shortCode]
	if !ok || f.urls[id].Expired(time.Now()) {
		return nil, fmt.Errorf("short code '%s': %w", shortCode, apperrors.ErrNotFound)
	}
	out := *f.urls[id]
	return &out, nil
}

// stall waits for d or until ctx is done.
func stall(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeURLRepository) IncrementClickCount(ctx context.Context, urlID string) (int64, error) {
	if err := stall(ctx, f.IncrementDelay); err != nil {
		return 0, apperrors.Store("increment click count", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.IncrementErr != nil {
		return 0, f.IncrementErr
	}
	u, ok := f.urls[urlID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	u.ClickCount++
	return u.ClickCount, nil
}

func (f *FakeURLRepository) InsertClick(ctx context.Context, click *entities.Click) (string, error) {
	if err := stall(ctx, f.InsertDelay); err != nil {
		return "", apperrors.Store("insert click", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.InsertErr != nil {
		return "", f.InsertErr
	}
	stored := *click
	stored.ID = f.nextID("click")
	if stored.ClickedAt.IsZero() {
		stored.ClickedAt = time.Now()
	}
	f.clicks = append(f.clicks, &stored)
	return stored.ID, nil
}

func (f *FakeURLRepository) Create(_ context.Context, url *entities.URL) (*entities.URL, error) {
	f.mu.Lock()
	if f.CreateErr != nil {
		f.mu.Unlock()
		return nil, f.CreateErr
	}
	_, taken := f.codes[url.ShortCode]
	f.mu.Unlock()
	if taken {
		return nil, fmt.Errorf("short code '%s': %w", url.ShortCode, apperrors.ErrShortCodeTaken)
	}
	return f.Seed(*url), nil
}

func (f *FakeURLRepository) ExistsShortCode(_ context.Context, shortCode string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.codes[shortCode]
	return ok, nil
}

func (f *FakeURLRepository) owned(shortCode, userID string) (*entities.URL, bool) {
	id, ok := f.codes[shortCode]
	if !ok || f.urls[id].UserID != userID {
		return nil, false
	}
	return f.urls[id], true
}

func (f *FakeURLRepository) GetOwned(_ context.Context, shortCode, userID string) (*entities.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.owned(shortCode, userID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f *FakeURLRepository) GetByUserID(_ context.Context, userID string) ([]*entities.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*entities.URL{}
	for _, u := range f.urls {
		if u.UserID == userID {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeURLRepository) CountByUserID(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.urls {
		if u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *FakeURLRepository) Update(_ context.Context, url *entities.URL) (*entities.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.owned(url.ShortCode, url.UserID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u.OriginalURL = url.OriginalURL
	u.Title = url.Title
	u.Tags = url.Tags
	u.ExpiresAt = url.ExpiresAt
	u.UpdatedAt = time.Now()
	out := *u
	return &out, nil
}

func (f *FakeURLRepository) Delete(_ context.Context, shortCode, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.owned(shortCode, userID)
	if !ok {
		return apperrors.ErrNotFound
	}
	f.deleteLocked(u)
	return nil
}

// deleteLocked drops a link and its clicks, like ON DELETE CASCADE.
func (f *FakeURLRepository) deleteLocked(u *entities.URL) {
	delete(f.urls, u.ID)
	delete(f.codes, u.ShortCode)
	kept := f.clicks[:0]
	for _, c := range f.clicks {
		if c.URLID != u.ID {
			kept = append(kept, c)
		}
	}
	f.clicks = kept
}

func (f *FakeURLRepository) GetClickAnalytics(_ context.Context, urlID string, hours int) ([]entities.ClickBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	size := repository.BucketSize(hours)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	counts := map[time.Time]int64{}
	for _, c := range f.clicks {
		if c.URLID == urlID && !c.ClickedAt.Before(since) {
			counts[c.ClickedAt.UTC().Truncate(size)]++
		}
	}
	buckets := []entities.ClickBucket{}
	for t, n := range counts {
		buckets = append(buckets, entities.ClickBucket{Time: t, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Time.Before(buckets[j].Time) })
	return buckets, nil
}

func (f *FakeURLRepository) GetRecentClicks(_ context.Context, urlID string, limit int) ([]*entities.Click, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*entities.Click{}
	for i := len(f.clicks) - 1; i >= 0 && len(out) < limit; i-- {
		if f.clicks[i].URLID == urlID {
			c := *f.clicks[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *FakeURLRepository) GetOverview(_ context.Context, userID string) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var urls, clicks int64
	for _, u := range f.urls {
		if u.UserID == userID {
			urls++
			clicks += u.ClickCount
		}
	}
	return urls, clicks, nil
}

func (f *FakeURLRepository) DeleteExpired(_ context.Context, before time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired []*entities.URL
	for _, u := range f.urls {
		if u.Expired(before) {
			expired = append(expired, u)
		}
	}
	codes := []string{}
	for _, u := range expired {
		codes = append(codes, u.ShortCode)
		f.deleteLocked(u)
	}
	return codes, nil
}

// FakeUserRepository keeps users in memory keyed by email.
type FakeUserRepository struct {
	mu    sync.Mutex
	seq   int
	users map[string]*entities.User
}

func NewFakeUserRepository() *FakeUserRepository {
	return &FakeUserRepository{users: make(map[string]*entities.User)}
}

func (f *FakeUserRepository) Create(_ context.Context, email, passwordHash string, name *string, maxURLs int) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return nil, apperrors.ErrEmailTaken
	}
	f.seq++
	now := time.Now()
	u := &entities.User{
		ID:           "user-" + strconv.Itoa(f.seq),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Plan:         entities.PlanFree,
		MaxURLs:      maxURLs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[email] = u
	out := *u
	return &out, nil
}

func (f *FakeUserRepository) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f *FakeUserRepository) FindByID(_ context.Context, id string) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// Published is one call observed by RecordingPublisher.
type Published struct {
	OwnerID string
	Type    string
	Data    interface{}
}

// RecordingPublisher captures Publish calls instead of pushing them.
type RecordingPublisher struct {
	mu    sync.Mutex
	calls []Published
}

func (p *RecordingPublisher) Publish(ownerID, msgType string, data interface{}) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Published{OwnerID: ownerID, Type: msgType, Data: data})
	return 1
}

func (p *RecordingPublisher) Calls() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.calls...)
}

// MemoryCache is a map-backed cache.Cache without expiry.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

func (m *MemoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemoryCache) Close() error { return nil }

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"linkpulse-be/internal/controllers"
	"linkpulse-be/internal/entities"
	"linkpulse-be/internal/jwt"
	"linkpulse-be/internal/models"
	"linkpulse-be/internal/realtime"
	"linkpulse-be/internal/service"
	"linkpulse-be/internal/testutil"
	"linkpulse-be/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validation.RegisterBindings(); err != nil {
		panic(err)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

type app struct {
	router *gin.Engine
	urls   *testutil.FakeURLRepository
	users  *testutil.FakeUserRepository
	hub    *realtime.Hub
	tokens *jwt.JWTService
}

func newApp(t *testing.T) *app {
	t.Helper()

	a := &app{
		urls:   testutil.NewFakeURLRepository(),
		users:  testutil.NewFakeUserRepository(),
		hub:    realtime.NewHub(),
		tokens: jwt.NewJWTService("test-secret", time.Hour),
	}
	t.Cleanup(a.hub.Close)

	urlService := service.NewURLService(a.urls, a.users, testutil.NewMemoryCache(), "http://lp.test")
	authService := service.NewAuthService(a.users, a.tokens, 50)
	redirectService := service.NewRedirectService(a.urls, a.hub, time.Second)

	a.router = New(Handlers{
		Auth:      controllers.NewAuthController(authService, time.Hour, false),
		Shortener: controllers.NewShortenerController(urlService),
		QRCode:    controllers.NewQRCodeController(urlService, 128),
		Redirect:  controllers.NewRedirectController(redirectService),
		Realtime:  controllers.NewRealtimeController(a.hub, realtime.NewUpgrader([]string{"*"})),
		Health:    controllers.NewHealthController(stubPinger{}),
	}, Limiters{}, a.tokens, []string{"*"})
	return a
}

// user creates an account directly in the fake store and returns a token.
func (a *app) user(t *testing.T, email string) (*entities.User, string) {
	t.Helper()
	u, err := a.users.Create(context.Background(), email, "hash", nil, 50)
	if err != nil {
		t.Fatal(err)
	}
	token, err := a.tokens.GenerateToken(u.ID, u.Email)
	if err != nil {
		t.Fatal(err)
	}
	return u, token
}

func (a *app) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func TestRedirectScenario(t *testing.T) {
	a := newApp(t)
	link := a.urls.Seed(entities.URL{ShortCode: "abc123", OriginalURL: "https://example.org", UserID: "U1"})

	for i := 0; i < 3; i++ {
		rr := a.do(t, http.MethodGet, "/r/abc123", "", nil)
		if rr.Code != http.StatusFound {
			t.Fatalf("visit %d status = %d, want 302", i, rr.Code)
		}
		if loc := rr.Header().Get("Location"); loc != "https://example.org" {
			t.Errorf("Location = %q, want https://example.org", loc)
		}
		if rr.Header().Get("Cache-Control") == "" {
			t.Error("redirect must not be cacheable")
		}
	}

	if got := a.urls.Link("abc123").ClickCount; got != 3 {
		t.Errorf("click_count = %d, want 3", got)
	}
	if got := len(a.urls.Clicks(link.ID)); got != 3 {
		t.Errorf("click events = %d, want 3", got)
	}
}

func TestRedirectPreservesDestinationBytes(t *testing.T) {
	a := newApp(t)
	dest := "https://example.org/path/%E2%9C%93?q=a+b&x=%2F#frag"
	a.urls.Seed(entities.URL{ShortCode: "exact", OriginalURL: dest, UserID: "U1"})

	rr := a.do(t, http.MethodGet, "/r/exact", "", nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != dest {
		t.Errorf("status = %d Location = %q, want %q", rr.Code, rr.Header().Get("Location"), dest)
	}
}

func TestRedirectNotFound(t *testing.T) {
	a := newApp(t)

	rr := a.do(t, http.MethodGet, "/r/doesnotexist", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "not found") {
		t.Errorf("body = %q", rr.Body.String())
	}
	if a.urls.ClickTotal() != 0 {
		t.Errorf("click events = %d, want 0", a.urls.ClickTotal())
	}
}

func TestRedirectStoreFailure(t *testing.T) {
	a := newApp(t)
	a.urls.FindErr = errors.New("connection refused")

	rr := a.do(t, http.MethodGet, "/r/abc123", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestResolveJSON(t *testing.T) {
	a := newApp(t)
	a.urls.Seed(entities.URL{ShortCode: "json1", OriginalURL: "https://example.net", UserID: "U1"})

	rr := a.do(t, http.MethodGet, "/api/v1/redirect/json1", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body["original_url"] != "https://example.net" {
		t.Errorf("body = %v", body)
	}
	if a.urls.Link("json1").ClickCount != 1 {
		t.Error("JSON resolve should count the visit")
	}

	if rr := a.do(t, http.MethodGet, "/api/v1/redirect/missing", "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rr.Code)
	}
}

func dialLive(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *realtime.Hub, owner string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount(owner) < n {
		if time.Now().After(deadline) {
			t.Fatalf("owner %s has %d subscribers, want %d", owner, hub.SubscriberCount(owner), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLiveNotificationScopedToOwner(t *testing.T) {
	a := newApp(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	u1, tok1 := a.user(t, "one@example.com")
	u2, tok2 := a.user(t, "two@example.com")
	link := a.urls.Seed(entities.URL{ShortCode: "live1", OriginalURL: "https://example.org", UserID: u1.ID, ClickCount: 4})

	conn1 := dialLive(t, srv, tok1)
	conn2 := dialLive(t, srv, tok2)
	waitForSubscribers(t, a.hub, u1.ID, 1)
	waitForSubscribers(t, a.hub, u2.ID, 1)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(srv.URL + "/r/live1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	_ = conn1.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string                   `json:"type"`
		Data models.ClickNotification `json:"data"`
	}
	if err := conn1.ReadJSON(&msg); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if msg.Type != realtime.MessageTypeClick || msg.Data.ClickCount != 5 || msg.Data.URLID != link.ID || msg.Data.ShortCode != "live1" {
		t.Errorf("message = %+v", msg)
	}

	_ = conn2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := conn2.ReadJSON(&msg); err == nil {
		t.Errorf("other owner received %+v", msg)
	}
}

func TestLiveRequiresAuth(t *testing.T) {
	a := newApp(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err == nil {
		t.Fatal("expected handshake failure without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %v", resp)
	}
}

func TestLinkLifecycle(t *testing.T) {
	a := newApp(t)
	_, token := a.user(t, "owner@example.com")
	_, stranger := a.user(t, "stranger@example.com")

	rr := a.do(t, http.MethodPost, "/api/v1/shorten", token, map[string]interface{}{
		"url":        "https://example.org/docs",
		"short_code": "docs",
		"tags":       []string{"b", "a", "a"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rr.Code, rr.Body.String())
	}
	var created models.URLResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	if created.ShortURL != "http://lp.test/r/docs" || len(created.Tags) != 2 {
		t.Errorf("created = %+v", created)
	}

	if rr := a.do(t, http.MethodPost, "/api/v1/shorten", token, map[string]string{"url": "https://x.example", "short_code": "docs"}); rr.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rr.Code)
	}
	if rr := a.do(t, http.MethodPost, "/api/v1/shorten", token, map[string]string{"url": "https://x.example", "short_code": "api"}); rr.Code != http.StatusBadRequest {
		t.Errorf("reserved status = %d, want 400", rr.Code)
	}
	if rr := a.do(t, http.MethodPost, "/api/v1/shorten", "", map[string]string{"url": "https://x.example"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rr.Code)
	}

	a.do(t, http.MethodGet, "/r/docs", "", nil)

	rr = a.do(t, http.MethodGet, "/api/v1/urls", token, nil)
	var list []models.URLResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if rr.Code != http.StatusOK || len(list) != 1 || list[0].ClickCount != 1 {
		t.Errorf("list status = %d body = %s", rr.Code, rr.Body.String())
	}

	if rr := a.do(t, http.MethodGet, "/api/v1/url/docs", stranger, nil); rr.Code != http.StatusNotFound {
		t.Errorf("stranger get status = %d, want 404", rr.Code)
	}

	rr = a.do(t, http.MethodPatch, "/api/v1/url/docs", token, map[string]string{"title": "Docs"})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"click_count":1`) {
		t.Errorf("patch status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = a.do(t, http.MethodGet, "/api/v1/url/docs/analytics?hours=6", token, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"interval":"10m"`) {
		t.Errorf("analytics status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = a.do(t, http.MethodGet, "/api/v1/url/docs/clicks", token, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"clicks":[{`) {
		t.Errorf("clicks status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = a.do(t, http.MethodGet, "/api/v1/analytics/overview", token, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"total_clicks":1`) {
		t.Errorf("overview status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = a.do(t, http.MethodGet, "/api/v1/url/docs/qr", token, nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Errorf("qr status = %d type = %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	rr = a.do(t, http.MethodGet, "/api/v1/url/docs/qr?format=dataurl", token, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "data:image/png;base64,") {
		t.Errorf("qr dataurl status = %d", rr.Code)
	}

	if rr := a.do(t, http.MethodDelete, "/api/v1/url/docs", stranger, nil); rr.Code != http.StatusNotFound {
		t.Errorf("stranger delete status = %d, want 404", rr.Code)
	}
	if rr := a.do(t, http.MethodDelete, "/api/v1/url/docs", token, nil); rr.Code != http.StatusOK {
		t.Errorf("delete status = %d", rr.Code)
	}
	if rr := a.do(t, http.MethodGet, "/r/docs", "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("visit after delete status = %d, want 404", rr.Code)
	}
}

func TestAuthEndpoints(t *testing.T) {
	a := newApp(t)

	rr := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "new@example.com", "password": "secret1"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", rr.Code, rr.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "uid" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("session cookie = %+v", cookie)
	}

	if rr := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "new@example.com", "password": "secret1"}); rr.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rr.Code)
	}
	if rr := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "bad", "password": "secret1"}); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid register status = %d, want 400", rr.Code)
	}
	if rr := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "new@example.com") {
		t.Errorf("me status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t)

	if rr := a.do(t, http.MethodGet, "/health", "", nil); rr.Code != http.StatusOK {
		t.Errorf("health status = %d", rr.Code)
	}

	a.urls.Seed(entities.URL{ShortCode: "m1", OriginalURL: "https://example.org", UserID: "U1"})
	a.do(t, http.MethodGet, "/r/m1", "", nil)

	rr := a.do(t, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "linkpulse_redirects_total") {
		t.Errorf("metrics status = %d", rr.Code)
	}
}

func TestTagLengthLimitOnCreateAndUpdate(t *testing.T) {
	a := newApp(t)
	u, token := a.user(t, "tags@example.com")
	a.urls.Seed(entities.URL{ShortCode: "tagged", OriginalURL: "https://example.org", UserID: u.ID})

	long := strings.Repeat("t", 51)
	tests := []struct {
		name   string
		method string
		path   string
		body   map[string]interface{}
		want   int
	}{
		{"create long tag", http.MethodPost, "/api/v1/shorten", map[string]interface{}{"url": "https://example.org", "tags": []string{long}}, http.StatusBadRequest},
		{"update long tag", http.MethodPatch, "/api/v1/url/tagged", map[string]interface{}{"tags": []string{"ok", long}}, http.StatusBadRequest},
		{"update max length tag", http.MethodPatch, "/api/v1/url/tagged", map[string]interface{}{"tags": []string{long[:50]}}, http.StatusOK},
		{"update without tags", http.MethodPatch, "/api/v1/url/tagged", map[string]interface{}{"title": "Tagged"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := a.do(t, tt.method, tt.path, token, tt.body); rr.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
	if tags := a.urls.Link("tagged").Tags; len(tags) != 1 || len(tags[0]) != 50 {
		t.Errorf("tags = %v", tags)
	}

	rr := a.do(t, http.MethodPost, "/api/v1/shorten", token, map[string]interface{}{"url": "https://example.org", "tags": []string{long}})
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(body["error"], "Invalid request body: ") {
		t.Errorf("error = %q", body["error"])
	}
}

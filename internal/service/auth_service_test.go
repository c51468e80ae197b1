package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/entities"
	"linkpulse-be/internal/jwt"
	"linkpulse-be/internal/models"
	"linkpulse-be/internal/testutil"
)

func newAuthFixture() (AuthService, *jwt.JWTService) {
	tokens := jwt.NewJWTService("test-secret", time.Hour)
	svc := NewAuthService(testutil.NewFakeUserRepository(), tokens, 50)
	svc.(*authService).bcryptCost = bcrypt.MinCost
	return svc, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := newAuthFixture()
	ctx := context.Background()

	reg, err := svc.Register(ctx, &models.RegisterRequest{Email: " Ada@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Email != "ada@example.com" {
		t.Errorf("email = %q, want normalized", reg.User.Email)
	}
	if reg.User.Plan != entities.PlanFree || reg.User.MaxURLs != 50 {
		t.Errorf("plan = %q max_urls = %d", reg.User.Plan, reg.User.MaxURLs)
	}
	claims, err := tokens.ValidateToken(reg.User.Token)
	if err != nil || claims.UserID != reg.User.UserID {
		t.Fatalf("token claims = %+v, err = %v", claims, err)
	}

	login, err := svc.Login(ctx, &models.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.UserID != reg.User.UserID || login.Token == "" {
		t.Errorf("login = %+v", login)
	}

	me, err := svc.Me(ctx, reg.User.UserID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Token != "" || me.Email != "ada@example.com" {
		t.Errorf("me = %+v", me)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	req := &models.RegisterRequest{Email: "dup@example.com", Password: "secret1"}

	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, req); !errors.Is(err, apperrors.ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	if _, err := svc.Register(ctx, &models.RegisterRequest{Email: "a@example.com", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		req  models.LoginRequest
	}{
		{"wrong password", models.LoginRequest{Email: "a@example.com", Password: "nope"}},
		{"unknown email", models.LoginRequest{Email: "b@example.com", Password: "secret1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, &tt.req); !errors.Is(err, apperrors.ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestMeUnknownUser(t *testing.T) {
	svc, _ := newAuthFixture()
	if _, err := svc.Me(context.Background(), "ghost"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

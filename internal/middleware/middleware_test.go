package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/config"
)

const testSecret = "middleware-secret"

type stubSource struct {
	roles map[uuid.UUID]string
	err   error
}

func (s stubSource) StoredRole(_ context.Context, id uuid.UUID, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if r, ok := s.roles[id]; ok {
		return r, nil
	}
	return "", authz.ErrUnknownSubject
}

func signToken(t *testing.T, secret, sub, email string) string {
	t.Helper()
	return signClaims(t, secret, jwt.MapClaims{
		"sub":            sub,
		"email":          email,
		"email_verified": true,
		"exp":            time.Now().Add(time.Minute).Unix(),
	})
}

func signClaims(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newTestApp(resolver *authz.Resolver, perms ...authz.Permission) *fiber.App {
	app := fiber.New()
	cfg := &config.Config{JWTSecret: testSecret}
	app.Get("/whoami", JWTProtected(cfg), Identify(resolver), RequirePermission(perms...), func(c *fiber.Ctx) error {
		id, _ := GetIdentity(c)
		return c.JSON(fiber.Map{"user_id": id.UserID, "role": id.Role})
	})
	return app
}

func call(t *testing.T, app *fiber.App, token string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", "/whoami?userId="+uuid.NewString(), nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestIdentityComesFromToken(t *testing.T) {
	mod := uuid.New()
	resolver := authz.NewResolver(authz.NewPolicy(nil), stubSource{roles: map[uuid.UUID]string{mod: "moderator"}})
	app := newTestApp(resolver, authz.PermAccessAdminPanel)

	status, body := call(t, app, signToken(t, testSecret, mod.String(), "mod@medicaps.ac.in"))
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", status, body)
	}
	if body["user_id"] != mod.String() || body["role"] != "moderator" {
		t.Fatalf("identity = %v, want %s as moderator", body, mod)
	}
}

func TestRejectsMissingOrForgedToken(t *testing.T) {
	resolver := authz.NewResolver(authz.NewPolicy(nil), stubSource{})
	app := newTestApp(resolver)

	if status, _ := call(t, app, ""); status != fiber.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", status)
	}
	forged := signToken(t, "other-secret", uuid.NewString(), "x@medicaps.ac.in")
	if status, _ := call(t, app, forged); status != fiber.StatusUnauthorized {
		t.Fatalf("forged token: status = %d, want 401", status)
	}
	badSub := signToken(t, testSecret, "not-a-uuid", "x@medicaps.ac.in")
	if status, _ := call(t, app, badSub); status != fiber.StatusUnauthorized {
		t.Fatalf("bad sub: status = %d, want 401", status)
	}
}

func TestRequirePermission(t *testing.T) {
	uploader := uuid.New()
	resolver := authz.NewResolver(authz.NewPolicy([]string{"owner@medicaps.ac.in"}), stubSource{roles: map[uuid.UUID]string{uploader: "uploader"}})

	adminOnly := newTestApp(resolver, authz.PermAccessAdminPanel)
	if status, _ := call(t, adminOnly, signToken(t, testSecret, uploader.String(), "up@medicaps.ac.in")); status != fiber.StatusForbidden {
		t.Fatalf("uploader on admin route: status = %d, want 403", status)
	}

	// Owner wins even without a stored profile.
	status, body := call(t, adminOnly, signToken(t, testSecret, uuid.NewString(), "Owner@Medicaps.ac.in"))
	if status != fiber.StatusOK || body["role"] != "owner" {
		t.Fatalf("owner: status = %d role = %v, want 200 owner", status, body["role"])
	}

	anyOf := newTestApp(resolver, authz.PermDeleteFiles, authz.PermUploadWithoutApproval)
	if status, _ := call(t, anyOf, signToken(t, testSecret, uploader.String(), "up@medicaps.ac.in")); status != fiber.StatusOK {
		t.Fatalf("any-of permission: status = %d, want 200", status)
	}
}

func TestIdentifyFallsBackWhenStoreDown(t *testing.T) {
	down := stubSource{err: errors.New("connection refused")}
	resolver := authz.NewResolver(authz.NewPolicy(nil), down, authz.NewAllowList([]string{"admin@medicaps.ac.in"}, nil, nil))
	app := newTestApp(resolver, authz.PermManageUsers)

	status, body := call(t, app, signToken(t, testSecret, uuid.NewString(), "admin@medicaps.ac.in"))
	if status != fiber.StatusOK || body["role"] != "admin" {
		t.Fatalf("fallback: status = %d role = %v, want 200 admin", status, body["role"])
	}

	status, _ = call(t, app, signToken(t, testSecret, uuid.NewString(), "someone@medicaps.ac.in"))
	if status != fiber.StatusForbidden {
		t.Fatalf("unlisted user during outage: status = %d, want 403", status)
	}
}

func TestUnverifiedEmailGetsNoAllowListRole(t *testing.T) {
	resolver := authz.NewResolver(authz.NewPolicy([]string{"owner@medicaps.ac.in"}), stubSource{})
	app := newTestApp(resolver, authz.PermAccessAdminPanel)

	unverified := signClaims(t, testSecret, jwt.MapClaims{
		"sub":            uuid.NewString(),
		"email":          "owner@medicaps.ac.in",
		"email_verified": false,
		"exp":            time.Now().Add(time.Minute).Unix(),
	})
	if status, _ := call(t, app, unverified); status != fiber.StatusForbidden {
		t.Fatalf("unverified owner email: status = %d, want 403", status)
	}

	missingClaim := signClaims(t, testSecret, jwt.MapClaims{
		"sub":   uuid.NewString(),
		"email": "owner@medicaps.ac.in",
		"exp":   time.Now().Add(time.Minute).Unix(),
	})
	if status, _ := call(t, app, missingClaim); status != fiber.StatusForbidden {
		t.Fatalf("token without email_verified: status = %d, want 403", status)
	}

	down := stubSource{err: errors.New("connection refused")}
	fallback := authz.NewResolver(authz.NewPolicy(nil), down, authz.NewAllowList([]string{"admin@medicaps.ac.in"}, nil, nil))
	app = newTestApp(fallback, authz.PermManageUsers)
	unverifiedAdmin := signClaims(t, testSecret, jwt.MapClaims{
		"sub":            uuid.NewString(),
		"email":          "admin@medicaps.ac.in",
		"email_verified": false,
		"exp":            time.Now().Add(time.Minute).Unix(),
	})
	if status, _ := call(t, app, unverifiedAdmin); status != fiber.StatusForbidden {
		t.Fatalf("unverified admin-listed email: status = %d, want 403", status)
	}
}

func TestCORSPreflightExposesLimiterHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(&config.Config{CORSOrigins: "https://notes.medicaps.ac.in"}))
	app.Post("/api/files", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	req := httptest.NewRequest("OPTIONS", "/api/files", nil)
	req.Header.Set("Origin", "https://notes.medicaps.ac.in")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://notes.medicaps.ac.in" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Max-Age"); got != "3600" {
		t.Fatalf("max age = %q, want 3600", got)
	}

	req = httptest.NewRequest("POST", "/api/files", nil)
	req.Header.Set("Origin", "https://notes.medicaps.ac.in")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if got := resp.Header.Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-RateLimit-Remaining") || !strings.Contains(got, "Retry-After") {
		t.Fatalf("expose headers = %q", got)
	}
}

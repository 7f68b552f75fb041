package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"wleci/internal/http/handlers"
)

func TestRouteDecision(t *testing.T) {
	cases := []struct {
		path string
		auth bool
		want string
	}{
		{"/dashboard", false, "/auth/login"},
		{"/dashboard/", false, "/auth/login"},
		{"/dashboard/users", false, "/auth/login"},
		{"/dashboard", true, ""},
		{"/dashboards", false, ""},
		{"/auth/login", true, "/dashboard"},
		{"/auth/register", true, "/dashboard"},
		{"/auth/login", false, ""},
		{"/authors", true, ""},
		{"/", false, ""},
		{"/", true, ""},
		{"/api/users", false, ""},
	}
	for _, tc := range cases {
		if got := handlers.RouteDecision(tc.path, tc.auth); got != tc.want {
			t.Errorf("RouteDecision(%q, %v) = %q, want %q", tc.path, tc.auth, got, tc.want)
		}
	}
}

func TestRouteGateRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com", "secret1")
	cookie := env.login(t, "ann@x.com", "secret1")

	resp := env.do(t, "GET", "/dashboard", nil)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/auth/login" {
		t.Fatalf("anonymous /dashboard: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	resp = env.do(t, "GET", "/dashboard/settings", nil)
	if resp.Header.Get("Location") != "/auth/login" {
		t.Fatalf("anonymous nested dashboard page not redirected: %d", resp.StatusCode)
	}

	resp = env.do(t, "GET", "/auth/login", nil, cookie)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("signed-in /auth/login: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = env.do(t, "GET", "/dashboard", nil, cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signed-in /dashboard: expected 200, got %d", resp.StatusCode)
	}
	resp = env.do(t, "GET", "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("landing: expected 200, got %d", resp.StatusCode)
	}
}

func TestRoutingIsCaseSensitive(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com", "secret1")
	cookie := env.login(t, "ann@x.com", "secret1")

	for _, path := range []string{"/AUTH/login", "/Auth/Register"} {
		resp := env.do(t, "GET", path, nil, cookie)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("signed-in %s: expected 404, got %d", path, resp.StatusCode)
		}
	}
	for _, path := range []string{"/DASHBOARD", "/Dashboard/settings"} {
		resp := env.do(t, "GET", path, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("anonymous %s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestRevocationLookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com", "secret1")
	ann := env.login(t, "ann@x.com", "secret1")

	if err := env.db.Exec("DROP TABLE session_revocations").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	var resp *http.Response
	logs := captureLogs(t, func() {
		resp = env.do(t, "GET", "/", nil, ann)
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("landing with cookie: expected 200, got %d", resp.StatusCode)
	}
	if c := extractCookie(resp, env.cfg.CookieName); c != nil {
		t.Fatal("a lookup failure must not clear the session cookie")
	}
	if e, ok := findLog(logs, "session.lookup.fail"); !ok || e.Level != "error" {
		t.Fatal("session.lookup.fail error log not found")
	}

	if resp := env.do(t, "GET", "/health", nil, ann); resp.StatusCode != http.StatusOK {
		t.Fatalf("health with cookie: expected 200, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/dashboard", nil, ann); resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/auth/login" {
		t.Fatalf("dashboard should fall back to anonymous: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if resp := env.do(t, "GET", "/api/profile", nil, ann); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("api with cookie: expected 500, got %d", resp.StatusCode)
	}
}

func TestAdminPagesForbidUsers(t *testing.T) {
	env := newTestEnv(t)
	_, adminCookie := env.admin(t)
	env.register(t, "Ann", "ann@x.com", "secret1")
	cookie := env.login(t, "ann@x.com", "secret1")

	for _, path := range []string{"/dashboard/users", "/dashboard/analytics"} {
		if resp := env.do(t, "GET", path, nil, cookie); resp.StatusCode != http.StatusForbidden {
			t.Fatalf("user %s: expected 403, got %d", path, resp.StatusCode)
		}
		if resp := env.do(t, "GET", path, nil, adminCookie); resp.StatusCode != http.StatusOK {
			t.Fatalf("admin %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestUserAPIAuthorization(t *testing.T) {
	env := newTestEnv(t)
	_, adminCookie := env.admin(t)
	annID := env.register(t, "Ann", "ann@x.com", "secret1")
	bobID := env.register(t, "Bob", "bob@x.com", "secret1")
	ann := env.login(t, "ann@x.com", "secret1")

	if resp := env.do(t, "GET", "/api/users", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous list: expected 401, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/api/users", nil, ann); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user list: expected 403, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/api/users", nil, adminCookie); resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list: expected 200, got %d", resp.StatusCode)
	}

	if resp := env.do(t, "GET", fmt.Sprintf("/api/users/%d", annID), nil, ann); resp.StatusCode != http.StatusOK {
		t.Fatalf("own record: expected 200, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", fmt.Sprintf("/api/users/%d", bobID), nil, ann); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("other record: expected 403, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/api/users/abc", nil, ann); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/api/users/9999", nil, adminCookie); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing user: expected 404, got %d", resp.StatusCode)
	}

	resp := env.do(t, "PUT", fmt.Sprintf("/api/users/%d", annID), map[string]string{"role": "ADMIN"}, ann)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self promotion: expected 403, got %d", resp.StatusCode)
	}
	resp = env.do(t, "PUT", fmt.Sprintf("/api/users/%d", annID), map[string]string{"role": "ADMIN"}, adminCookie)
	if resp.StatusCode != http.StatusOK || decode(t, resp)["role"] != "ADMIN" {
		t.Fatal("admin should be able to change roles")
	}
}

func TestAdminCreatesUser(t *testing.T) {
	env := newTestEnv(t)
	_, adminCookie := env.admin(t)

	resp := env.do(t, "POST", "/api/users", map[string]string{"email": "New@x.com", "password": "secret1", "role": "admin"}, adminCookie)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["email"] != "new@x.com" || body["role"] != "ADMIN" {
		t.Fatalf("unexpected user %v", body)
	}
	if resp := env.do(t, "POST", "/api/users", map[string]string{"email": "new@x.com", "password": "secret1"}, adminCookie); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", resp.StatusCode)
	}
}

func TestUpdateEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	annID := env.register(t, "Ann", "ann@x.com", "secret1")
	env.register(t, "Bob", "bob@x.com", "secret1")
	ann := env.login(t, "ann@x.com", "secret1")

	resp := env.do(t, "PUT", fmt.Sprintf("/api/users/%d", annID), map[string]string{"email": "BOB@x.com", "name": "Changed"}, ann)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if msg := decode(t, resp)["error"]; msg != "Email is already taken" {
		t.Fatalf("unexpected message %v", msg)
	}

	profile := decode(t, env.do(t, "GET", "/api/profile", nil, ann))
	if profile["email"] != "ann@x.com" || profile["name"] != "Ann" {
		t.Fatalf("rejected update must leave the record unchanged: %v", profile)
	}

	resp = env.do(t, "PUT", fmt.Sprintf("/api/users/%d", annID), map[string]string{"email": "ann@x.com", "name": "Annie"}, ann)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("own email is not a conflict: got %d", resp.StatusCode)
	}
}

func TestDeleteRules(t *testing.T) {
	env := newTestEnv(t)
	adminID, adminCookie := env.admin(t)
	annID := env.register(t, "Ann", "ann@x.com", "secret1")
	bobID := env.register(t, "Bob", "bob@x.com", "secret1")
	ann := env.login(t, "ann@x.com", "secret1")
	bob := env.login(t, "bob@x.com", "secret1")

	resp := env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", bobID), nil, ann)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin delete: expected 403, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", fmt.Sprintf("/api/users/%d", bobID), nil, adminCookie); resp.StatusCode != http.StatusOK {
		t.Fatal("forbidden delete must not remove the user")
	}
	if resp := env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", annID), nil, ann); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user self delete: expected 403, got %d", resp.StatusCode)
	}

	resp = env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", adminID), nil, adminCookie)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("admin self delete: expected 400, got %d", resp.StatusCode)
	}
	if msg := decode(t, resp)["error"]; msg != "Cannot delete your own account" {
		t.Fatalf("unexpected message %v", msg)
	}

	resp = env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", bobID), nil, adminCookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin delete: expected 200, got %d", resp.StatusCode)
	}
	deleted := decode(t, resp)["deletedUser"].(map[string]any)
	if deleted["email"] != "bob@x.com" {
		t.Fatalf("unexpected deleted user %v", deleted)
	}
	if resp := env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", bobID), nil, adminCookie); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/api/profile", nil, bob); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("deleted user's session should be dead, got %d", resp.StatusCode)
	}
}

func TestAdminRevokeSession(t *testing.T) {
	env := newTestEnv(t)
	_, adminCookie := env.admin(t)
	annID := env.register(t, "Ann", "ann@x.com", "secret1")
	ann := env.login(t, "ann@x.com", "secret1")

	if resp := env.do(t, "POST", "/api/admin/revoke-session", map[string]any{"userId": annID}, ann); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin revoke: expected 403, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "POST", "/api/admin/revoke-session", map[string]any{}, adminCookie); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing userId: expected 400, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "POST", "/api/admin/revoke-session", map[string]any{"userId": 9999}, adminCookie); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", resp.StatusCode)
	}

	var resp *http.Response
	logs := captureLogs(t, func() {
		resp = env.do(t, "POST", "/api/admin/revoke-session", map[string]any{"userId": fmt.Sprint(annID)}, adminCookie)
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke: expected 200, got %d", resp.StatusCode)
	}
	if msg := decode(t, resp)["message"]; msg != "Sessions revoked for user ann@x.com" {
		t.Fatalf("unexpected message %v", msg)
	}
	if e, ok := findLog(logs, "admin.sessions.revoke"); !ok || e.Level != "audit" {
		t.Fatal("admin.sessions.revoke audit log not found")
	}

	if resp := env.do(t, "GET", "/api/profile", nil, ann); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked session: expected 401, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", "/api/profile", nil, adminCookie); resp.StatusCode != http.StatusOK {
		t.Fatal("revocation must not touch other users")
	}
}

func TestDemotedAdminLosesAccess(t *testing.T) {
	env := newTestEnv(t)
	rootID, rootCookie := env.admin(t)

	resp := env.do(t, "POST", "/api/users", map[string]string{"email": "b@x.com", "password": "secret1", "role": "ADMIN"}, rootCookie)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create admin: expected 201, got %d", resp.StatusCode)
	}
	bID := uint(decode(t, resp)["id"].(float64))
	b := env.login(t, "b@x.com", "secret1")
	if resp := env.do(t, "GET", "/api/users", nil, b); resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list before demotion: expected 200, got %d", resp.StatusCode)
	}

	resp = env.do(t, "PUT", fmt.Sprintf("/api/users/%d", bID), map[string]string{"role": "USER"}, rootCookie)
	if resp.StatusCode != http.StatusOK || decode(t, resp)["role"] != "USER" {
		t.Fatal("demotion failed")
	}

	if resp := env.do(t, "GET", "/api/users", nil, b); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old cookie after demotion: expected 401, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", rootID), nil, b); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old cookie delete: expected 401, got %d", resp.StatusCode)
	}
	if resp := env.do(t, "GET", fmt.Sprintf("/api/users/%d", rootID), nil, rootCookie); resp.StatusCode != http.StatusOK {
		t.Fatal("root must survive the stale cookie")
	}
}

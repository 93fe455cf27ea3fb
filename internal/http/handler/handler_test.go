package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkRewards/internal/app/model"
	"github.com/sifan077/LinkRewards/internal/app/provider"
	"github.com/sifan077/LinkRewards/internal/app/service"
	"github.com/sifan077/LinkRewards/internal/app/settings"
	"github.com/sifan077/LinkRewards/internal/http/middleware"
	"github.com/sifan077/LinkRewards/internal/i18n"
	"go.uber.org/zap"
)

type mockEarnService struct {
	providersFn func(ctx context.Context) ([]service.ProviderSummary, error)
	historyFn   func(ctx context.Context, identity service.Identity) ([]model.Link, error)
	startFn     func(ctx context.Context, identity service.Identity, providerName string) (*service.StartResult, error)
	earnFn      func(ctx context.Context, identity service.Identity, code string) (*service.EarnResult, error)
}

func (m *mockEarnService) Providers(ctx context.Context) ([]service.ProviderSummary, error) {
	return m.providersFn(ctx)
}

func (m *mockEarnService) History(ctx context.Context, identity service.Identity) ([]model.Link, error) {
	return m.historyFn(ctx, identity)
}

func (m *mockEarnService) Start(ctx context.Context, identity service.Identity, providerName string) (*service.StartResult, error) {
	return m.startFn(ctx, identity, providerName)
}

func (m *mockEarnService) Earn(ctx context.Context, identity service.Identity, code string) (*service.EarnResult, error) {
	return m.earnFn(ctx, identity, code)
}

type mockAdminService struct {
	settingsFn func(ctx context.Context) (map[string]string, error)
	updateFn   func(ctx context.Context, identity service.Identity, values map[string]any) ([]string, error)
	listFn     func(ctx context.Context, page, perPage int) (*service.LinkPage, error)
}

func (m *mockAdminService) Settings(ctx context.Context) (map[string]string, error) {
	return m.settingsFn(ctx)
}

func (m *mockAdminService) UpdateSettings(ctx context.Context, identity service.Identity, values map[string]any) ([]string, error) {
	return m.updateFn(ctx, identity, values)
}

func (m *mockAdminService) ListLinks(ctx context.Context, page, perPage int) (*service.LinkPage, error) {
	return m.listFn(ctx, page, perPage)
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Meta      json.RawMessage `json:"meta"`
	ErrorCode string          `json:"error_code"`
}

func newTestApp(t *testing.T, earn service.EarnService, admin service.AdminService) *fiber.App {
	t.Helper()

	translator, err := i18n.New("en")
	if err != nil {
		t.Fatalf("i18n.New returned error: %v", err)
	}

	app := fiber.New()
	app.Use(middleware.Identity(nil, zap.NewNop()))
	app.Use(middleware.I18n(translator))
	app.Get("/health", Health)

	user := app.Group("/api/user/billinglinks")
	NewAPIHandler(APIDeps{EarnService: earn}).Register(user)
	NewEarnHandler(EarnDeps{EarnService: earn}).Register(user)

	adminRouter := app.Group("/api/admin/billinglinks", middleware.RequireAdmin())
	NewAdminHandler(AdminDeps{AdminService: admin}).Register(adminRouter)
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func userRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(middleware.UserIDHeader, "7")
	req.Header.Set(middleware.UserUUIDHeader, "u-7")
	req.Header.Set(middleware.UserRoleHeader, "user")
	return req
}

func adminRequest(method, target string, body io.Reader) *http.Request {
	req := userRequest(method, target, body)
	req.Header.Set(middleware.UserRoleHeader, "admin")
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func decodeEnvelope(t *testing.T, body string) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("response is not an envelope: %v\n%s", err, body)
	}
	return env
}

func TestAPIHandler_Providers(t *testing.T) {
	enabled := true
	earn := &mockEarnService{
		providersFn: func(ctx context.Context) ([]service.ProviderSummary, error) {
			if !enabled {
				return nil, service.ErrFeatureDisabled
			}
			return []service.ProviderSummary{{Name: model.ProviderShareUS, Enabled: true, CoinsPerLink: 100, DailyLimit: 5}}, nil
		},
	}
	app := newTestApp(t, earn, nil)

	resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/providers", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	env := decodeEnvelope(t, body)
	var data ProvidersResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !env.Success || !data.L4REnabled || len(data.Providers) != 1 || data.Providers[0].CoinsPerLink != 100 {
		t.Fatalf("unexpected payload %s", body)
	}

	enabled = false
	resp, body = doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/providers", nil))
	if resp.StatusCode != fiber.StatusForbidden || decodeEnvelope(t, body).ErrorCode != "L4R_DISABLED" {
		t.Fatalf("expected 403 L4R_DISABLED, got %d: %s", resp.StatusCode, body)
	}

	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/user/billinglinks/providers", nil))
	if resp.StatusCode != fiber.StatusUnauthorized || decodeEnvelope(t, body).ErrorCode != "UNAUTHORIZED" {
		t.Fatalf("expected 401, got %d: %s", resp.StatusCode, body)
	}
}

func TestAPIHandler_History(t *testing.T) {
	earn := &mockEarnService{
		historyFn: func(ctx context.Context, identity service.Identity) ([]model.Link, error) {
			if identity.UserID != 7 || identity.UserUUID != "u-7" {
				t.Fatalf("unexpected identity %+v", identity)
			}
			return []model.Link{{ID: 2, UserID: 7}, {ID: 1, UserID: 7}}, nil
		},
	}
	app := newTestApp(t, earn, nil)

	resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/history", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var data HistoryResponse
	if err := json.Unmarshal(decodeEnvelope(t, body).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Total != 2 || data.Links[0].ID != 2 {
		t.Fatalf("unexpected history %+v", data)
	}
}

func TestEarnHandler_Start(t *testing.T) {
	var startErr error
	var result *service.StartResult
	earn := &mockEarnService{
		startFn: func(ctx context.Context, identity service.Identity, providerName string) (*service.StartResult, error) {
			return result, startErr
		},
	}
	app := newTestApp(t, earn, nil)

	t.Run("redirect", func(t *testing.T) {
		result, startErr = &service.StartResult{RedirectURL: "https://shareus.io/x"}, nil
		resp, _ := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/start/shareus", nil))
		if resp.StatusCode != fiber.StatusFound || resp.Header.Get(fiber.HeaderLocation) != "https://shareus.io/x" {
			t.Fatalf("expected redirect, got %d %q", resp.StatusCode, resp.Header.Get(fiber.HeaderLocation))
		}
	})

	t.Run("linkvertise interstitial", func(t *testing.T) {
		result, startErr = &service.StartResult{Interstitial: &service.Interstitial{
			PublisherID: 12345,
			CallbackURL: "https://panel.example.com/api/user/billinglinks/earn/abc",
		}}, nil
		resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/start/linkvertise", nil))
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(resp.Header.Get(fiber.HeaderContentSecurityPolicy), "publisher.linkvertise.com") {
			t.Fatalf("missing CSP header")
		}
		if !strings.Contains(body, "12345") || !strings.Contains(body, "Continue to Linkvertise") {
			t.Fatalf("unexpected page:\n%s", body)
		}
	})

	t.Run("cooldown rounds minutes up", func(t *testing.T) {
		result, startErr = nil, &service.CooldownError{Provider: model.ProviderShareUS, SecondsRemaining: 61}
		resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/start/shareus", nil))
		if resp.StatusCode != fiber.StatusTooManyRequests || !strings.Contains(body, "wait 2 minutes") {
			t.Fatalf("unexpected cooldown page %d:\n%s", resp.StatusCode, body)
		}
	})

	t.Run("daily limit", func(t *testing.T) {
		result, startErr = nil, &service.DailyLimitError{Provider: model.ProviderShareUS, Limit: 5}
		_, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/start/shareus", nil))
		if !strings.Contains(body, "daily limit of 5 links") {
			t.Fatalf("unexpected daily limit page:\n%s", body)
		}
	})

	t.Run("shortening failure", func(t *testing.T) {
		result, startErr = nil, &service.ShorteningError{Provider: model.ProviderGyaniLinks, Err: errors.New("HTTP 500 - boom")}
		resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/start/gyanilinks", nil))
		if resp.StatusCode != fiber.StatusBadGateway || !strings.Contains(body, "Failed to create gyanilinks link") {
			t.Fatalf("unexpected failure page %d:\n%s", resp.StatusCode, body)
		}
		if strings.Contains(body, "boom") {
			t.Fatal("upstream details must not leak")
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		result, startErr = nil, &service.ShorteningError{Provider: model.ProviderShareUS, Err: provider.ErrRateLimited}
		resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/start/shareus", nil))
		if resp.StatusCode != fiber.StatusTooManyRequests || !strings.Contains(body, "shareus service is busy") {
			t.Fatalf("unexpected rate limit page %d:\n%s", resp.StatusCode, body)
		}
	})

	t.Run("localized", func(t *testing.T) {
		result, startErr = nil, service.ErrFeatureDisabled
		req := userRequest(http.MethodGet, "/api/user/billinglinks/start/shareus", nil)
		req.Header.Set(fiber.HeaderAcceptLanguage, "zh-CN,zh;q=0.9")
		resp, body := doRequest(t, app, req)
		if resp.StatusCode != fiber.StatusForbidden || !strings.Contains(body, "当前已关闭") || !strings.Contains(body, `lang="zh"`) {
			t.Fatalf("unexpected localized page %d:\n%s", resp.StatusCode, body)
		}
	})
}

func TestEarnHandler_Earn(t *testing.T) {
	var earnErr error
	var result *service.EarnResult
	earn := &mockEarnService{
		earnFn: func(ctx context.Context, identity service.Identity, code string) (*service.EarnResult, error) {
			return result, earnErr
		},
	}
	app := newTestApp(t, earn, nil)

	t.Run("success", func(t *testing.T) {
		result, earnErr = &service.EarnResult{Link: &model.Link{ID: 1}, Coins: 100}, nil
		resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/earn/abc", nil))
		if resp.StatusCode != fiber.StatusOK || !strings.Contains(body, "earned 100 credits") {
			t.Fatalf("unexpected success page %d:\n%s", resp.StatusCode, body)
		}
	})

	t.Run("credit pending", func(t *testing.T) {
		result, earnErr = &service.EarnResult{Link: &model.Link{ID: 1}, Coins: 100, CreditFailed: true}, nil
		_, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/earn/abc", nil))
		if !strings.Contains(body, "manual review") {
			t.Fatalf("expected credit pending notice:\n%s", body)
		}
	})

	t.Run("too fast", func(t *testing.T) {
		result, earnErr = nil, &service.TooFastError{MinSeconds: 60}
		resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/earn/abc", nil))
		if resp.StatusCode != fiber.StatusBadRequest || !strings.Contains(body, "at least 60 seconds") {
			t.Fatalf("unexpected too fast page %d:\n%s", resp.StatusCode, body)
		}
	})

	t.Run("not owner", func(t *testing.T) {
		result, earnErr = nil, service.ErrNotOwner
		resp, body := doRequest(t, app, userRequest(http.MethodGet, "/api/user/billinglinks/earn/abc", nil))
		if resp.StatusCode != fiber.StatusForbidden || !strings.Contains(body, "does not belong to you") {
			t.Fatalf("unexpected not owner page %d:\n%s", resp.StatusCode, body)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		result, earnErr = nil, service.ErrNotAuthenticated
		resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/user/billinglinks/earn/abc", nil))
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})
}

func TestAdminHandler_Settings(t *testing.T) {
	var updated map[string]any
	admin := &mockAdminService{
		settingsFn: func(ctx context.Context) (map[string]string, error) {
			return map[string]string{"l4r_enabled": "true"}, nil
		},
		updateFn: func(ctx context.Context, identity service.Identity, values map[string]any) ([]string, error) {
			if !identity.IsAdmin() {
				t.Fatalf("expected admin identity, got %+v", identity)
			}
			updated = values
			if v, ok := values["l4r_shareus_daily_limit"]; ok && v == "lots" {
				return nil, &settings.InvalidSettingError{Key: "l4r_shareus_daily_limit", Value: "lots"}
			}
			if _, ok := values["l4r_enabled"]; !ok {
				return nil, settings.ErrNoSettings
			}
			return []string{"l4r_enabled"}, nil
		},
	}
	app := newTestApp(t, nil, admin)

	resp, body := doRequest(t, app, adminRequest(http.MethodGet, "/api/admin/billinglinks/settings", nil))
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(body, `"l4r_enabled":"true"`) {
		t.Fatalf("unexpected settings response %d: %s", resp.StatusCode, body)
	}

	cases := []struct {
		name     string
		method   string
		body     string
		status   int
		wantCode string
	}{
		{"patch", http.MethodPatch, `{"l4r_enabled":true}`, fiber.StatusOK, ""},
		{"put", http.MethodPut, `{"l4r_enabled":"false"}`, fiber.StatusOK, ""},
		{"malformed", http.MethodPatch, `{"l4r_enabled":`, fiber.StatusBadRequest, "INVALID_JSON"},
		{"not an object", http.MethodPatch, `null`, fiber.StatusBadRequest, "INVALID_JSON"},
		{"nothing allowed", http.MethodPatch, `{"foo":"bar"}`, fiber.StatusBadRequest, "NO_SETTINGS"},
		{"bad value", http.MethodPatch, `{"l4r_shareus_daily_limit":"lots"}`, fiber.StatusBadRequest, "INVALID_SETTING"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, app, adminRequest(tc.method, "/api/admin/billinglinks/settings", strings.NewReader(tc.body)))
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.StatusCode, body)
			}
			if env := decodeEnvelope(t, body); env.ErrorCode != tc.wantCode {
				t.Fatalf("expected error code %q, got %q", tc.wantCode, env.ErrorCode)
			}
		})
	}
	if updated == nil {
		t.Fatal("expected update to reach the service")
	}

	resp, _ = doRequest(t, app, userRequest(http.MethodGet, "/api/admin/billinglinks/settings", nil))
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}
}

func TestAdminHandler_ListLinks(t *testing.T) {
	admin := &mockAdminService{
		listFn: func(ctx context.Context, page, perPage int) (*service.LinkPage, error) {
			if page != 2 || perPage != 10 {
				t.Fatalf("unexpected paging %d/%d", page, perPage)
			}
			return &service.LinkPage{
				Links:       []model.Link{{ID: 11}},
				CurrentPage: 2,
				PerPage:     10,
				Total:       11,
				TotalPages:  2,
			}, nil
		},
	}
	app := newTestApp(t, nil, admin)

	resp, body := doRequest(t, app, adminRequest(http.MethodGet, "/api/admin/billinglinks/links?page=2&limit=10", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var meta struct {
		Pagination struct {
			CurrentPage int   `json:"current_page"`
			PerPage     int   `json:"per_page"`
			Total       int64 `json:"total"`
			TotalPages  int   `json:"total_pages"`
		} `json:"pagination"`
	}
	env := decodeEnvelope(t, body)
	if err := json.Unmarshal(env.Meta, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Pagination.Total != 11 || meta.Pagination.TotalPages != 2 || meta.Pagination.CurrentPage != 2 {
		t.Fatalf("unexpected pagination %+v", meta.Pagination)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil, nil)
	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("unexpected health response %d: %s", resp.StatusCode, body)
	}
}

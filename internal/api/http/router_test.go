package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apihttp "github.com/helpdesk-labs/issue-tracker/internal/api/http"
	"github.com/helpdesk-labs/issue-tracker/internal/api/http/handlers"
	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/events"
	"github.com/helpdesk-labs/issue-tracker/internal/observability"
	"github.com/helpdesk-labs/issue-tracker/internal/persistence"
	"github.com/helpdesk-labs/issue-tracker/internal/repository/memory"
	"github.com/helpdesk-labs/issue-tracker/internal/service"
	"github.com/helpdesk-labs/issue-tracker/internal/session"
)

const adminPassword = "admin-pass"

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Errors     []string        `json:"errors"`
	Success    bool            `json:"success"`
}

type testServer struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
	blobs *persistence.MemoryBlobs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewStore()
	blobs := persistence.NewMemoryBlobs()
	sessions := session.NewRedisStoreWithClient(client)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", time.Hour, 2*time.Hour)

	hash, err := hasher.Hash(adminPassword)
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(context.Background(), &domain.User{
		ID: "admin", FullName: "Site Admin", Email: "admin@example.com",
		PasswordHash: hash, IsAdmin: true, CreatedAt: time.Now(),
	}))

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo: store.Users(), DepartmentRepo: store.Departments(),
		Sessions: sessions, Tokens: tokens, Hasher: hasher, Logger: logger,
	})
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo: store.Issues(), DepartmentRepo: store.Departments(), UserRepo: store.Users(),
		Publisher: events.NewInMemoryDispatcher(), Metrics: metrics, Logger: logger,
	})
	directory := service.NewDirectoryService(service.DirectoryDependencies{
		DepartmentRepo: store.Departments(), UserRepo: store.Users(), Hasher: hasher,
	})
	licenses := service.NewLicenseService(service.LicenseDependencies{
		LicenseRepo: store.Licenses(), DepartmentRepo: store.Departments(), Blobs: blobs, Logger: logger,
	})

	app := fiber.New()
	apihttp.RegisterMiddlewares(app, logger, metrics, apihttp.MiddlewareConfig{Timeout: 5 * time.Second})
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health: handlers.NewHealthHandler("issue-tracker", "test", map[string]handlers.Pinger{
			"redis": sessions, "storage": blobs,
		}, metrics),
		Auth:           handlers.NewAuthHandler(authService, false),
		Issues:         handlers.NewIssuesHandler(issueService),
		Reports:        handlers.NewReportsHandler(service.NewReportService(store.Issues())),
		Directory:      handlers.NewDirectoryHandler(directory),
		Licenses:       handlers.NewLicensesHandler(licenses),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users()),
	})
	return &testServer{t: t, app: app, store: store, blobs: blobs}
}

func (s *testServer) send(req *http.Request) (*http.Response, envelope) {
	s.t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func (s *testServer) do(method, path, token string, body any) (*http.Response, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.send(req)
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	resp, env := s.do(http.MethodPost, "/api/v1/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, resp.StatusCode, env.Message)
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.AccessToken)
	return data.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestReportedIssueReachesDepartmentQueue(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)

	resp, _ := s.do(http.MethodPost, "/api/v1/departments", admin, map[string]string{"name": "Electrical", "type": "Maintenance"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := s.do(http.MethodPost, "/api/v1/users/register", admin, map[string]any{
		"fullName": "Sam Sparks", "email": "sam@example.com", "username": "Sparky",
		"password": "volts", "department": "Electrical",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)

	sam := s.login("sparky", "volts")
	resp, env = s.do(http.MethodPost, "/api/v1/issue-form", sam, map[string]string{
		"issue": "Flickering light", "address": "Block D", "requireDepartment": "Electrical",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	created := decode[struct {
		Warning *string `json:"warning"`
	}](t, env.Data)
	assert.Nil(t, created.Warning)

	resp, env = s.do(http.MethodGet, "/api/v1/issues", sam, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	issues := decode[[]struct {
		ID       int64  `json:"id"`
		Issue    string `json:"issue"`
		Complete bool   `json:"complete"`
		UserID   string `json:"user_id"`
	}](t, env.Data)
	require.Len(t, issues, 1)
	assert.False(t, issues[0].Complete)
	assert.Equal(t, "Flickering light", issues[0].Issue)
	assert.Equal(t, "sparky", issues[0].UserID)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(http.MethodPost, "/api/v1/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid user credentials", env.Message)
	assert.NotNil(t, env.Errors)
	assert.Empty(t, resp.Cookies())

	resp, env = s.do(http.MethodPost, "/api/v1/login", "", map[string]string{"username": "admin", "password": adminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Admin logged in successfully", env.Message)

	cookies := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, auth.AccessTokenCookie)
	require.Contains(t, cookies, auth.RefreshTokenCookie)
	assert.True(t, cookies[auth.AccessTokenCookie].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/current-user", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: cookies[auth.AccessTokenCookie].Value})
	resp, env = s.send(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[map[string]any](t, env.Data)
	assert.Equal(t, "admin", me["id"])
	assert.NotContains(t, me, "password")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: cookies[auth.RefreshTokenCookie].Value})
	resp, _ = s.send(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: cookies[auth.RefreshTokenCookie].Value})
	resp, _ = s.send(req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuards(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)
	s.do(http.MethodPost, "/api/v1/departments", admin, map[string]string{"name": "Library", "type": "Regular"})
	s.do(http.MethodPost, "/api/v1/users/register", admin, map[string]any{
		"fullName": "Reader", "email": "reader@example.com", "username": "reader", "password": "pages", "department": "Library",
	})
	reader := s.login("reader", "pages")

	resp, _ := s.do(http.MethodGet, "/api/v1/issues", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env := s.do(http.MethodGet, "/api/v1/fetch-report", reader, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = s.do(http.MethodPost, "/api/v1/departments", reader, map[string]string{"name": "X", "type": "Y"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/v1/departments", reader, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = s.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)

	for name, token := range map[string]string{"anonymous": "", "member": reader, "admin": admin} {
		resp, env = s.do(http.MethodGet, "/api/v1/no-such-route", token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, name)
		assert.Equal(t, "route not found", env.Message, name)
	}

	resp, _ = s.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIssueTransitionsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)
	s.do(http.MethodPost, "/api/v1/departments", admin, map[string]string{"name": "Plumbing", "type": "Maintenance"})

	resp, env := s.do(http.MethodPost, "/api/v1/issue-form", admin, map[string]string{
		"issue": "Leaking tap", "address": "Block C", "requireDepartment": "Plumbing",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Issue struct {
			ID int64 `json:"id"`
		} `json:"issue"`
		Warning *string `json:"warning"`
	}](t, env.Data)
	require.NotNil(t, created.Warning)
	id := created.Issue.ID

	resp, _ = s.do(http.MethodPost, "/api/v1/acknowledge-response", admin, map[string]any{"responseId": strconv.FormatInt(id, 10)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = s.do(http.MethodPost, "/api/v1/complete-issue", admin, map[string]any{"issueId": id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "RESOLVED", decode[map[string]any](t, env.Data)["status"])

	resp, _ = s.do(http.MethodPost, "/api/v1/acknowledge-response", admin, map[string]any{"issueId": id})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/api/v1/reopen-issue", admin, map[string]any{"issueId": id})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = s.do(http.MethodPost, "/api/v1/complete-issue", admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, env.Errors)

	resp, _ = s.do(http.MethodGet, "/api/v1/issues/"+strconv.FormatInt(id, 10), admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = s.do(http.MethodGet, "/api/v1/fetch-report", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]map[string]any](t, env.Data)
	require.Len(t, rows, 1)
	assert.Equal(t, "Plumbing", rows[0]["required_department_name"])
	assert.Nil(t, rows[0]["user_department_name"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fetch-report/export", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	resp, _ = s.send(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "spreadsheetml")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "issue-report.xlsx")
}

func TestLicenseUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)
	resp, env := s.do(http.MethodPost, "/api/v1/departments", admin, map[string]string{"name": "Library", "type": "Regular"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	dept := decode[struct {
		ID int64 `json:"department_id"`
	}](t, env.Data)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "permit.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-permit"))
	require.NoError(t, err)
	require.NoError(t, form.WriteField("expiry_date", "2026-03-31"))
	require.NoError(t, form.WriteField("department_id", strconv.FormatInt(dept.ID, 10)))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/licenses", &body)
	req.Header.Set(fiber.HeaderContentType, form.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	resp, env = s.send(req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	license := decode[struct {
		ID         int64  `json:"id"`
		FileName   string `json:"file_name"`
		ExpiryDate string `json:"expiry_date"`
	}](t, env.Data)
	assert.Equal(t, "permit.pdf", license.FileName)
	assert.Equal(t, "2026-03-31", license.ExpiryDate)
	assert.Equal(t, 1, s.blobs.Len())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/licenses/"+strconv.FormatInt(license.ID, 10)+"/file", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-permit", string(content))

	resp, _ = s.do(http.MethodDelete, "/api/v1/licenses/"+strconv.FormatInt(license.ID, 10), admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, s.blobs.Len())
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/githubpalak/gas-utility-portal/internal/api/http/handlers"
	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/observability"
	"github.com/githubpalak/gas-utility-portal/internal/repository/memory"
	"github.com/githubpalak/gas-utility-portal/internal/service"
	"github.com/githubpalak/gas-utility-portal/internal/storage"
)

const testPassword = "pilot-light-7"

type testEnv struct {
	app      *fiber.App
	accounts *service.AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager("router-test-secret", time.Hour)
	denylist := auth.NewMemoryDenylist()
	blobs, err := storage.NewLocalBlobStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	accounts := service.NewAccountService(service.AccountDependencies{
		IdentityRepo: store.Identities,
		Tokens:       tokens,
		Denylist:     denylist,
		BcryptCost:   bcrypt.MinCost,
	})
	requests := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  store.Requests,
		IdentityRepo: store.Identities,
		CategoryRepo: store.Categories,
		HistoryRepo:  store.History,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
	})
	discussion := service.NewDiscussionService(service.DiscussionDependencies{
		Requests:       requests,
		CommentRepo:    store.Comments,
		AttachmentRepo: store.Attachments,
		Blobs:          blobs,
		Dispatcher:     dispatcher,
	})
	dashboard := service.NewDashboardService(service.DashboardDependencies{
		RequestRepo:  store.Requests,
		IdentityRepo: store.Identities,
		CategoryRepo: store.Categories,
	})

	app := NewApp("gas-utility-portal-test", 2<<20, metrics)
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("gas-utility-portal", "test", nil, nil),
		Accounts:       handlers.NewAccountsHandler(accounts),
		Categories:     handlers.NewCategoriesHandler(service.NewCategoryService(store.Categories, logger)),
		Requests:       handlers.NewRequestsHandler(requests, discussion),
		Dashboard:      handlers.NewDashboardHandler(dashboard, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Identities, denylist),
	})
	return &testEnv{app: app, accounts: accounts}
}

// signIn creates an identity with role and returns its id and bearer token.
func (e *testEnv) signIn(t *testing.T, username string, role domain.Role) (string, string) {
	t.Helper()
	identity, err := e.accounts.CreateIdentity(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@gas.example",
		Password: testPassword,
	}, role, nil, nil)
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	_, token, err := e.accounts.Login(context.Background(), username, testPassword)
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return identity.ID, token.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.send(t, req, token)
}

func (e *testEnv) send(t *testing.T, req *nethttp.Request, token string) (int, map[string]interface{}) {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	payload := map[string]interface{}{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &payload)
	}
	return resp.StatusCode, payload
}

func errorCode(payload map[string]interface{}) string {
	envelope, _ := payload["error"].(map[string]interface{})
	code, _ := envelope["code"].(string)
	return code
}

func dataObject(t *testing.T, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := payload["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %#v", payload)
	}
	return data
}

func dataList(t *testing.T, payload map[string]interface{}) []interface{} {
	t.Helper()
	data, ok := payload["data"].([]interface{})
	if !ok {
		t.Fatalf("expected list data, got %#v", payload)
	}
	return data
}

func createCategory(t *testing.T, e *testEnv, token string) string {
	t.Helper()
	status, payload := e.do(t, fiber.MethodPost, "/api/service-requests/categories", token, map[string]interface{}{
		"name":        "Gas Leak",
		"description": "Suspected leaks",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create category: %d %v", status, payload)
	}
	return dataObject(t, payload)["id"].(string)
}

func createRequest(t *testing.T, e *testEnv, token, categoryID string) string {
	t.Helper()
	status, payload := e.do(t, fiber.MethodPost, "/api/service-requests/requests", token, map[string]interface{}{
		"category_id": categoryID,
		"title":       "Smell of gas",
		"description": "Near the kitchen stove",
		"priority":    "urgent",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create request: %d %v", status, payload)
	}
	return dataObject(t, payload)["id"].(string)
}

func TestHealthLive(t *testing.T) {
	e := newTestEnv(t)
	status, payload := e.do(t, fiber.MethodGet, "/health/live", "", nil)
	if status != fiber.StatusOK || payload["status"] != "alive" {
		t.Fatalf("live: %d %v", status, payload)
	}
	status, payload = e.do(t, fiber.MethodGet, "/health/ready", "", nil)
	if status != fiber.StatusOK || payload["status"] != "ready" {
		t.Fatalf("ready without backends: %d %v", status, payload)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t)
	status, payload := e.do(t, fiber.MethodGet, "/api/service-requests/requests", "", nil)
	if status != fiber.StatusUnauthorized || errorCode(payload) != "UNAUTHORIZED" {
		t.Fatalf("expected 401 envelope, got %d %v", status, payload)
	}
	status, _ = e.do(t, fiber.MethodGet, "/api/accounts/me", "garbage", nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("bad token should be rejected, got %d", status)
	}
}

func TestRegisterLoginAndLogout(t *testing.T) {
	e := newTestEnv(t)
	status, payload := e.do(t, fiber.MethodPost, "/api/accounts/register", "", map[string]interface{}{
		"username": "homeowner",
		"email":    "homeowner@gas.example",
		"password": testPassword,
	})
	if status != fiber.StatusCreated {
		t.Fatalf("register: %d %v", status, payload)
	}
	user := dataObject(t, payload)["user"].(map[string]interface{})
	if user["role"] != string(domain.RoleCustomer) {
		t.Fatalf("registered role = %v", user["role"])
	}

	status, payload = e.do(t, fiber.MethodPost, "/api/accounts/login", "", map[string]interface{}{
		"username": "homeowner",
		"password": testPassword,
	})
	if status != fiber.StatusOK {
		t.Fatalf("login: %d %v", status, payload)
	}
	token := dataObject(t, payload)["auth"].(map[string]interface{})["token"].(string)

	status, payload = e.do(t, fiber.MethodGet, "/api/accounts/me", token, nil)
	if status != fiber.StatusOK || dataObject(t, payload)["username"] != "homeowner" {
		t.Fatalf("me: %d %v", status, payload)
	}

	if status, _ = e.do(t, fiber.MethodPost, "/api/accounts/logout", token, nil); status != fiber.StatusNoContent {
		t.Fatalf("logout: %d", status)
	}
	if status, _ = e.do(t, fiber.MethodGet, "/api/accounts/me", token, nil); status != fiber.StatusUnauthorized {
		t.Fatalf("revoked token should be rejected, got %d", status)
	}

	status, payload = e.do(t, fiber.MethodPost, "/api/accounts/login", "", map[string]interface{}{
		"username": "homeowner",
		"password": "wrong-password",
	})
	if status != fiber.StatusUnauthorized || errorCode(payload) != "UNAUTHORIZED" {
		t.Fatalf("bad login: %d %v", status, payload)
	}
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	_, customer := e.signIn(t, "customer1", domain.RoleCustomer)
	_, other := e.signIn(t, "customer2", domain.RoleCustomer)
	agentID, agent := e.signIn(t, "agent1", domain.RoleAgent)
	_, manager := e.signIn(t, "manager1", domain.RoleManager)

	categoryID := createCategory(t, e, manager)
	requestID := createRequest(t, e, customer, categoryID)
	base := "/api/service-requests/requests/" + requestID

	status, payload := e.do(t, fiber.MethodGet, base, other, nil)
	if status != fiber.StatusNotFound || errorCode(payload) != "NOT_FOUND" {
		t.Fatalf("other customer read: %d %v", status, payload)
	}

	status, payload = e.do(t, fiber.MethodPost, base+"/change-status", customer, map[string]interface{}{"status": "completed"})
	if status != fiber.StatusForbidden || errorCode(payload) != "FORBIDDEN" {
		t.Fatalf("customer change status: %d %v", status, payload)
	}

	status, payload = e.do(t, fiber.MethodPost, base+"/change-status", agent, map[string]interface{}{"status": "resolved"})
	if status != fiber.StatusBadRequest || errorCode(payload) != "INVALID_STATUS" {
		t.Fatalf("unknown status: %d %v", status, payload)
	}

	status, payload = e.do(t, fiber.MethodPost, base+"/assign", manager, map[string]interface{}{"staff_id": agentID})
	if status != fiber.StatusOK || dataObject(t, payload)["assigned_to_id"] != agentID {
		t.Fatalf("assign: %d %v", status, payload)
	}

	status, payload = e.do(t, fiber.MethodPost, base+"/change-status", agent, map[string]interface{}{
		"status":  "assigned",
		"comment": "crew scheduled",
	})
	if status != fiber.StatusOK || dataObject(t, payload)["status"] != "assigned" {
		t.Fatalf("agent change status: %d %v", status, payload)
	}

	status, payload = e.do(t, fiber.MethodGet, base+"/history", customer, nil)
	if status != fiber.StatusOK {
		t.Fatalf("history: %d %v", status, payload)
	}
	history := dataList(t, payload)
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
	entry := history[0].(map[string]interface{})
	if entry["previous_status"] != "new" || entry["new_status"] != "assigned" || entry["changed_by_id"] != agentID {
		t.Fatalf("unexpected entry: %v", entry)
	}

	status, payload = e.do(t, fiber.MethodGet, "/api/service-requests/requests?status=assigned", other, nil)
	if status != fiber.StatusOK || dataObject(t, payload)["total"].(float64) != 0 {
		t.Fatalf("other customer list: %d %v", status, payload)
	}
	status, payload = e.do(t, fiber.MethodGet, "/api/service-requests/requests?status=assigned", agent, nil)
	if status != fiber.StatusOK || dataObject(t, payload)["total"].(float64) != 1 {
		t.Fatalf("agent list: %d %v", status, payload)
	}
}

func TestCommentsHideInternalNotes(t *testing.T) {
	e := newTestEnv(t)
	_, customer := e.signIn(t, "customer1", domain.RoleCustomer)
	_, agent := e.signIn(t, "agent1", domain.RoleAgent)
	_, manager := e.signIn(t, "manager1", domain.RoleManager)
	requestID := createRequest(t, e, customer, createCategory(t, e, manager))
	path := "/api/service-requests/requests/" + requestID + "/comments"

	status, payload := e.do(t, fiber.MethodPost, path, customer, map[string]interface{}{"text": "any update?", "is_internal": true})
	if status != fiber.StatusCreated || dataObject(t, payload)["is_internal"] != false {
		t.Fatalf("customer comment: %d %v", status, payload)
	}
	if status, payload = e.do(t, fiber.MethodPost, path, agent, map[string]interface{}{"text": "valve replaced", "is_internal": true}); status != fiber.StatusCreated {
		t.Fatalf("agent note: %d %v", status, payload)
	}

	_, payload = e.do(t, fiber.MethodGet, path, customer, nil)
	if n := len(dataList(t, payload)); n != 1 {
		t.Fatalf("customer should see 1 comment, got %d", n)
	}
	_, payload = e.do(t, fiber.MethodGet, path, agent, nil)
	if n := len(dataList(t, payload)); n != 2 {
		t.Fatalf("agent should see 2 comments, got %d", n)
	}

	status, payload = e.do(t, fiber.MethodPost, path, customer, map[string]interface{}{"text": "  "})
	if status != fiber.StatusBadRequest || errorCode(payload) != "VALIDATION_FAILED" {
		t.Fatalf("blank comment: %d %v", status, payload)
	}
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	e := newTestEnv(t)
	_, customer := e.signIn(t, "customer1", domain.RoleCustomer)
	_, manager := e.signIn(t, "manager1", domain.RoleManager)
	requestID := createRequest(t, e, customer, createCategory(t, e, manager))
	path := "/api/service-requests/requests/" + requestID + "/attachments"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "meter.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte("fake image bytes"))
	_ = writer.Close()

	req := httptest.NewRequest(fiber.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	status, payload := e.send(t, req, customer)
	if status != fiber.StatusCreated {
		t.Fatalf("upload: %d %v", status, payload)
	}
	attachment := dataObject(t, payload)
	if attachment["file_name"] != "meter.png" || attachment["size_bytes"].(float64) != 16 {
		t.Fatalf("unexpected attachment: %v", attachment)
	}

	download := httptest.NewRequest(fiber.MethodGet, attachment["url"].(string), nil)
	download.Header.Set(fiber.HeaderAuthorization, "Bearer "+customer)
	resp, err := e.app.Test(download, -1)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || string(body) != "fake image bytes" {
		t.Fatalf("download: %d %q", resp.StatusCode, body)
	}

	status, payload = e.do(t, fiber.MethodPost, path, customer, map[string]interface{}{})
	if status != fiber.StatusBadRequest || errorCode(payload) != "VALIDATION_FAILED" {
		t.Fatalf("missing file: %d %v", status, payload)
	}

	_, stranger := e.signIn(t, "customer2", domain.RoleCustomer)
	status, payload = e.do(t, fiber.MethodPost, path, stranger, map[string]interface{}{})
	if status != fiber.StatusNotFound || errorCode(payload) != "NOT_FOUND" {
		t.Fatalf("out-of-scope upload without file should be not found: %d %v", status, payload)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	e := newTestEnv(t)
	_, customer := e.signIn(t, "customer1", domain.RoleCustomer)
	_, agent := e.signIn(t, "agent1", domain.RoleAgent)
	_, manager := e.signIn(t, "manager1", domain.RoleManager)
	createRequest(t, e, customer, createCategory(t, e, manager))

	status, payload := e.do(t, fiber.MethodGet, "/api/dashboard/stats", customer, nil)
	if status != fiber.StatusOK {
		t.Fatalf("stats: %d %v", status, payload)
	}
	stats := dataObject(t, payload)
	if stats["total_requests"].(float64) != 1 || stats["urgent_requests"].(float64) != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if _, ok := stats["total_customers"]; ok {
		t.Fatalf("customer stats should omit staff counters: %v", stats)
	}

	status, payload = e.do(t, fiber.MethodGet, "/api/dashboard/agent-performance", agent, nil)
	if status != fiber.StatusForbidden {
		t.Fatalf("agent performance as agent: %d %v", status, payload)
	}
	status, payload = e.do(t, fiber.MethodGet, "/api/dashboard/agent-performance", manager, nil)
	if status != fiber.StatusOK || len(dataList(t, payload)) != 1 {
		t.Fatalf("agent performance: %d %v", status, payload)
	}
	row := dataList(t, payload)[0].(map[string]interface{})
	if row["resolution_rate"].(float64) != 0 || row["avg_completion_seconds"] != nil {
		t.Fatalf("idle agent row: %v", row)
	}

	status, payload = e.do(t, fiber.MethodGet, "/api/dashboard/priority-breakdown", manager, nil)
	if status != fiber.StatusOK || len(dataList(t, payload)) != 1 {
		t.Fatalf("priority breakdown: %d %v", status, payload)
	}

	if status, _ = e.do(t, fiber.MethodGet, "/api/dashboard/http-metrics", agent, nil); status != fiber.StatusForbidden {
		t.Fatalf("http metrics as agent: %d", status)
	}
	if status, _ = e.do(t, fiber.MethodGet, "/api/dashboard/http-metrics", manager, nil); status != fiber.StatusOK {
		t.Fatalf("http metrics as manager: %d", status)
	}
}

func TestAccountAdministration(t *testing.T) {
	e := newTestEnv(t)
	customerID, customer := e.signIn(t, "customer1", domain.RoleCustomer)
	managerID, manager := e.signIn(t, "manager1", domain.RoleManager)

	status, payload := e.do(t, fiber.MethodPut, "/api/accounts/users/"+managerID+"/role", manager, map[string]interface{}{"role": "admin"})
	if status != fiber.StatusForbidden {
		t.Fatalf("self role change: %d %v", status, payload)
	}
	status, payload = e.do(t, fiber.MethodPut, "/api/accounts/users/"+customerID+"/role", customer, map[string]interface{}{"role": "admin"})
	if status != fiber.StatusForbidden {
		t.Fatalf("customer role change: %d %v", status, payload)
	}

	status, payload = e.do(t, fiber.MethodPost, "/api/accounts/staff", manager, map[string]interface{}{
		"username": "tech1",
		"email":    "tech1@gas.example",
		"password": testPassword,
		"role":     "agent",
	})
	if status != fiber.StatusCreated || dataObject(t, payload)["role"] != "agent" {
		t.Fatalf("create staff: %d %v", status, payload)
	}

	status, payload = e.do(t, fiber.MethodGet, "/api/accounts/users?page_size=1", manager, nil)
	if status != fiber.StatusOK {
		t.Fatalf("list users: %d %v", status, payload)
	}
	page := dataObject(t, payload)
	if page["total"].(float64) != 3 || page["total_pages"].(float64) != 3 {
		t.Fatalf("unexpected page: %v", page)
	}

	status, payload = e.do(t, fiber.MethodGet, "/api/accounts/users/"+managerID, customer, nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("customer reading manager: %d %v", status, payload)
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rootword-dev/rootword/internal/config"
	"github.com/rootword-dev/rootword/internal/models"
	"github.com/rootword-dev/rootword/internal/tasks"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: "default"}, nil
}

type testEnv struct {
	server   *Server
	db       *gorm.DB
	enqueuer *fakeEnqueuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		HTTP: config.HTTPConfig{Addr: ":0", CORSOrigins: []string{"http://localhost:8080"}},
		Auth: config.AuthConfig{
			TokenTTL:               30 * time.Minute,
			BootstrapAdminUsername: "admin",
			BootstrapAdminPassword: "admin123",
		},
		Dictionary: config.DictionaryConfig{RefreshSchedule: "@every 5m"},
	}

	enq := &fakeEnqueuer{}
	srv, err := New(cfg, zerolog.Nop(), "test", WithDB(db), WithRedis(rdb), WithEnqueuer(enq))
	require.NoError(t, err)

	return &testEnv{server: srv, db: db, enqueuer: enq}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()

	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func (e *testEnv) createUser(t *testing.T, adminToken, username, role string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/user/create", adminToken, CreateUserRequest{Username: username, Password: "secret1", Role: role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return e.login(t, username, "secret1")
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, http.StatusOK, env.Code)
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.Contains(t, w.Body.String(), `"status":"online"`)
}

func TestJWTSecretPersisted(t *testing.T) {
	env := newTestEnv(t)

	var cfg models.Config
	require.NoError(t, env.db.First(&cfg).Error)
	assert.Len(t, cfg.JWTSecret, 64)

	again, err := loadJWTSecret(env.db, "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, cfg.JWTSecret, again)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("json body", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "admin123"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, "admin", resp.User.Username)
		assert.Equal(t, models.RoleAdmin, resp.User.Role)
	})

	t.Run("bad password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	})

	t.Run("missing fields", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", "Missing authorization header"},
		{"wrong scheme", "Basic abc", "Invalid authorization header format"},
		{"garbage token", "Bearer abc", "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			env.server.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.want, errorMessage(t, w))
		})
	}
}

func TestMeAndLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	var me UserDetail
	decodeData(t, env.do(t, http.MethodGet, "/api/auth/me", token, nil), &me)
	assert.Equal(t, "admin", me.Username)

	decodeData(t, env.do(t, http.MethodPost, "/api/auth/logout", token, nil), nil)

	w := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", errorMessage(t, w))
}

func TestDeletedUserTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin123")
	aliceToken := env.createUser(t, adminToken, "alice", "user")

	var me UserDetail
	decodeData(t, env.do(t, http.MethodGet, "/api/auth/me", aliceToken, nil), &me)
	decodeData(t, env.do(t, http.MethodDelete, "/api/user/delete/"+me.ID, adminToken, nil), nil)

	w := env.do(t, http.MethodGet, "/api/auth/me", aliceToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin123")
	aliceToken := env.createUser(t, adminToken, "alice", "user")

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/root-word/audit"},
		{http.MethodPost, "/api/root-word/discard/x"},
		{http.MethodPost, "/api/root-word/recover/x"},
		{http.MethodPut, "/api/root-word/update"},
		{http.MethodDelete, "/api/root-word/force-delete/x"},
		{http.MethodPost, "/api/root-word/import"},
		{http.MethodGet, "/api/user/list"},
		{http.MethodPost, "/api/user/create"},
		{http.MethodGet, "/api/system/info"},
	} {
		w := env.do(t, route.method, route.path, aliceToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, route.path)
	}
}

func TestRootWordLifecycle(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin123")
	aliceToken := env.createUser(t, adminToken, "alice", "user")
	bobToken := env.createUser(t, adminToken, "bob", "user")

	apply := ApplyRootWordRequest{WordName: "user_id", MySQLType: "bigint", DorisType: "bigint", ClickHouseType: "UInt64"}

	var word models.RootWord
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/apply", aliceToken, apply), &word)
	assert.Equal(t, models.StatusPendingAudit, word.Status)
	assert.Equal(t, "alice", word.ApplyUser)

	// Duplicate name
	w := env.do(t, http.MethodPost, "/api/root-word/apply", bobToken, apply)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Invalid name
	bad := apply
	bad.WordName = "user id"
	w = env.do(t, http.MethodPost, "/api/root-word/apply", bobToken, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Only the applicant can delete a pending word
	w = env.do(t, http.MethodDelete, "/api/root-word/delete-pending/"+word.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Bad audit result
	w = env.do(t, http.MethodPost, "/api/root-word/audit", adminToken, map[string]interface{}{"word_id": word.ID, "audit_result": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/audit", adminToken, AuditRootWordRequest{WordID: word.ID, AuditResult: 1}), &word)
	assert.Equal(t, models.StatusEffective, word.Status)

	// Approved words are no longer deletable by the applicant
	w = env.do(t, http.MethodDelete, "/api/root-word/delete-pending/"+word.ID, aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/discard/"+word.ID, adminToken, nil), nil)
	w = env.do(t, http.MethodPost, "/api/root-word/discard/"+word.ID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/recover/"+word.ID, adminToken, nil), nil)

	newName := "uid"
	decodeData(t, env.do(t, http.MethodPut, "/api/root-word/update", adminToken, UpdateRootWordRequest{ID: word.ID, WordName: &newName}), &word)
	assert.Equal(t, "uid", word.WordName)

	var logs []models.OperationLog
	decodeData(t, env.do(t, http.MethodGet, "/api/root-word/logs/"+word.ID, aliceToken, nil), &logs)
	require.Len(t, logs, 5)
	assert.Equal(t, models.OpUpdate, logs[0].OperationType)
	assert.Equal(t, models.OpCreate, logs[4].OperationType)

	decodeData(t, env.do(t, http.MethodDelete, "/api/root-word/force-delete/"+word.ID, adminToken, nil), nil)
	w = env.do(t, http.MethodDelete, "/api/root-word/force-delete/"+word.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRootWords(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	for _, name := range []string{"user_id", "order_id", "amount"} {
		w := env.do(t, http.MethodPost, "/api/root-word/apply", token, ApplyRootWordRequest{WordName: name, MySQLType: "bigint", DorisType: "bigint", ClickHouseType: "UInt64"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	var page struct {
		List     []models.RootWord `json:"list"`
		Total    int64             `json:"total"`
		PageNum  int               `json:"page_num"`
		PageSize int               `json:"page_size"`
	}
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/list", token, ListRootWordsRequest{PageNum: 1, PageSize: 2}), &page)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.List, 2)
	assert.Equal(t, "amount", page.List[0].WordName)

	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/list", token, ListRootWordsRequest{WordName: "order"}), &page)
	assert.EqualValues(t, 1, page.Total)

	w := env.do(t, http.MethodPost, "/api/root-word/list", token, ListRootWordsRequest{PageSize: 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/root-word/list", token, ListRootWordsRequest{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDDLCheckUsesEffectiveWords(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	var word models.RootWord
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/apply", token, ApplyRootWordRequest{WordName: "id", MySQLType: "bigint", DorisType: "bigint", ClickHouseType: "UInt64"}), &word)

	ddlReq := DDLRequest{DDL: "CREATE TABLE t (\n  id bigint,\n  name varchar(64)\n) ENGINE=InnoDB"}

	var result struct {
		Compliant    []map[string]interface{} `json:"compliant_fields"`
		NonCompliant []map[string]interface{} `json:"non_compliant_fields"`
		Missing      []map[string]interface{} `json:"missing_root_words"`
		Engine       string                   `json:"database_engine"`
	}

	// Pending words do not count
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/ddl/check", token, ddlReq), &result)
	assert.Empty(t, result.Compliant)
	assert.Len(t, result.Missing, 2)
	assert.Equal(t, "mysql", result.Engine)

	// Approval invalidates the cache
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/audit", token, AuditRootWordRequest{WordID: word.ID, AuditResult: 1}), nil)

	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/ddl/check", token, ddlReq), &result)
	require.Len(t, result.Compliant, 1)
	assert.Equal(t, "id", result.Compliant[0]["field_name"])
	assert.Len(t, result.Missing, 1)

	var replaced struct {
		DDL string `json:"replaced_ddl"`
	}
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/ddl/replace", token, DDLRequest{DDL: "CREATE TABLE t (user_id int)"}), &replaced)
	assert.Equal(t, "CREATE TABLE t (user_id bigint)", replaced.DDL)

	w := env.do(t, http.MethodPost, "/api/root-word/ddl/check", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportEnqueuesTask(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	var resp ImportResponse
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/import", token, "root_words:\n  - word_name: user_id\n  - word_name: create_time\n"), &resp)
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, 2, resp.Words)

	require.Len(t, env.enqueuer.tasks, 1)
	payload, err := tasks.ParseImportPayload(env.enqueuer.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, "admin", payload.ImportedBy)
	require.Len(t, payload.Words, 2)
	assert.Equal(t, "DateTime", payload.Words[1].ClickHouseType)

	w := env.do(t, http.MethodPost, "/api/root-word/import", token, "root_words: []")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserManagement(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin123")

	var created UserDetail
	decodeData(t, env.do(t, http.MethodPost, "/api/user/create", adminToken, CreateUserRequest{Username: "alice", Password: "secret1"}), &created)
	assert.Equal(t, models.RoleUser, created.Role)

	w := env.do(t, http.MethodPost, "/api/user/create", adminToken, CreateUserRequest{Username: "alice", Password: "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/user/create", adminToken, CreateUserRequest{Username: "bob", Password: "secret1", Role: "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/user/create", adminToken, CreateUserRequest{Username: "ab", Password: "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var page UserPage
	decodeData(t, env.do(t, http.MethodGet, "/api/user/list?page_num=1&page_size=10", adminToken, nil), &page)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, "alice", page.List[0].Username)

	decodeData(t, env.do(t, http.MethodPost, "/api/user/reset-password/"+created.ID+"?new_password=changed1", adminToken, nil), nil)
	env.login(t, "alice", "changed1")

	w = env.do(t, http.MethodPost, "/api/user/reset-password/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var me UserDetail
	decodeData(t, env.do(t, http.MethodGet, "/api/auth/me", adminToken, nil), &me)
	w = env.do(t, http.MethodDelete, "/api/user/delete/"+me.ID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/user/delete/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeInspector struct {
	err error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.QueueInfo{Queue: queue, Pending: 2, Active: 1}, nil
}

func TestSystemInfo(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", "admin123")

	apply := ApplyRootWordRequest{WordName: "amount", MySQLType: "decimal(10,2)", DorisType: "decimal(10,2)", ClickHouseType: "Decimal(10,2)"}
	decodeData(t, env.do(t, http.MethodPost, "/api/root-word/apply", token, apply), nil)

	var info SystemInfoResponse
	decodeData(t, env.do(t, http.MethodGet, "/api/system/info", token, nil), &info)
	assert.Equal(t, "test", info.Version)
	assert.Equal(t, int64(1), info.RootWords[string(models.StatusPendingAudit)])
	assert.Equal(t, int64(0), info.RootWords[string(models.StatusEffective)])
	assert.Equal(t, int64(1), info.Users)
	assert.Equal(t, "@every 5m", info.Dictionary.Schedule)
	require.NotNil(t, info.Dictionary.NextRefresh)
	assert.Nil(t, info.Imports)
	assert.Positive(t, info.Runtime.CPUCount)

	env.server.inspector = fakeInspector{}
	info = SystemInfoResponse{}
	decodeData(t, env.do(t, http.MethodGet, "/api/system/info", token, nil), &info)
	require.NotNil(t, info.Imports)
	assert.Equal(t, 2, info.Imports.Pending)
	assert.Equal(t, 1, info.Imports.Active)

	env.server.inspector = fakeInspector{err: errors.New("redis down")}
	info = SystemInfoResponse{}
	decodeData(t, env.do(t, http.MethodGet, "/api/system/info", token, nil), &info)
	require.NotNil(t, info.Imports)
	assert.Equal(t, "redis down", info.Imports.Error)
}

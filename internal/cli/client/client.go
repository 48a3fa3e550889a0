package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rootword-dev/rootword/internal/ddl"
	"github.com/rootword-dev/rootword/internal/models"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Message)
}

// Client represents an HTTP client for the Rootword API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client. address may omit the scheme, in which case
// http is assumed.
func New(address, token string) *Client {
	return &Client{
		baseURL: BaseURL(address),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL normalizes a configured server address
func BaseURL(address string) string {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	return address
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(method, path string, in, out interface{}) error {
	if in == nil {
		return c.do(method, path, nil, "", out)
	}
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(method, path, bytes.NewReader(data), "application/json", out)
}

// newAPIError extracts the message from {"error": ...} or {"detail": ...}
// bodies, falling back to the raw body.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
		Msg    string `json:"msg"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			message = payload.Error
		case payload.Detail != "":
			message = payload.Detail
		case payload.Msg != "":
			message = payload.Msg
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{Status: status, Message: message}
}

// User is a user as returned by the API
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	CreateTime time.Time `json:"create_time"`
	UpdateTime time.Time `json:"update_time"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Login authenticates the user and returns a bearer token
func (c *Client) Login(username, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, data)
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(data, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &loginResp, nil
}

// Logout revokes the current token
func (c *Client) Logout() error {
	return c.doJSON(http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the user the token belongs to
func (c *Client) Me() (*User, error) {
	var user User
	if err := c.doJSON(http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListRootWordsRequest filters the root word list
type ListRootWordsRequest struct {
	PageNum   int    `json:"page_num,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	WordName  string `json:"word_name,omitempty"`
	Status    string `json:"status,omitempty"`
	ApplyUser string `json:"apply_user,omitempty"`
}

// RootWordPage is a page of root words
type RootWordPage struct {
	List     []models.RootWord `json:"list"`
	Total    int64             `json:"total"`
	PageNum  int               `json:"page_num"`
	PageSize int               `json:"page_size"`
}

// ListRootWords returns a filtered page of root words
func (c *Client) ListRootWords(req ListRootWordsRequest) (*RootWordPage, error) {
	var page RootWordPage
	if err := c.doJSON(http.MethodPost, "/api/root-word/list", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ApplyRootWordRequest represents a root word application
type ApplyRootWordRequest struct {
	WordName       string  `json:"word_name"`
	MySQLType      string  `json:"mysql_type"`
	DorisType      string  `json:"doris_type"`
	ClickHouseType string  `json:"clickhouse_type"`
	Remark         *string `json:"remark,omitempty"`
}

// ApplyRootWord submits a root word for audit
func (c *Client) ApplyRootWord(req ApplyRootWordRequest) (*models.RootWord, error) {
	var word models.RootWord
	if err := c.doJSON(http.MethodPost, "/api/root-word/apply", req, &word); err != nil {
		return nil, err
	}
	return &word, nil
}

// DeletePendingRootWord deletes one of the caller's pending applications
func (c *Client) DeletePendingRootWord(id string) error {
	return c.doJSON(http.MethodDelete, "/api/root-word/delete-pending/"+url.PathEscape(id), nil, nil)
}

// AuditRequest represents an audit decision. AuditResult is 1 to approve
// and 2 to reject.
type AuditRequest struct {
	WordID      string  `json:"word_id"`
	AuditResult int     `json:"audit_result"`
	AuditRemark *string `json:"audit_remark,omitempty"`
}

// AuditRootWord approves or rejects a pending root word
func (c *Client) AuditRootWord(req AuditRequest) (*models.RootWord, error) {
	var word models.RootWord
	if err := c.doJSON(http.MethodPost, "/api/root-word/audit", req, &word); err != nil {
		return nil, err
	}
	return &word, nil
}

// DiscardRootWord retires an effective root word
func (c *Client) DiscardRootWord(id string) error {
	return c.doJSON(http.MethodPost, "/api/root-word/discard/"+url.PathEscape(id), nil, nil)
}

// RecoverRootWord makes a discarded root word effective again
func (c *Client) RecoverRootWord(id string) error {
	return c.doJSON(http.MethodPost, "/api/root-word/recover/"+url.PathEscape(id), nil, nil)
}

// UpdateRootWordRequest is a partial update; nil fields are left unchanged
type UpdateRootWordRequest struct {
	ID             string  `json:"id"`
	WordName       *string `json:"word_name,omitempty"`
	MySQLType      *string `json:"mysql_type,omitempty"`
	DorisType      *string `json:"doris_type,omitempty"`
	ClickHouseType *string `json:"clickhouse_type,omitempty"`
	Remark         *string `json:"remark,omitempty"`
}

// UpdateRootWord edits a root word
func (c *Client) UpdateRootWord(req UpdateRootWordRequest) (*models.RootWord, error) {
	var word models.RootWord
	if err := c.doJSON(http.MethodPut, "/api/root-word/update", req, &word); err != nil {
		return nil, err
	}
	return &word, nil
}

// ForceDeleteRootWord deletes a root word regardless of status
func (c *Client) ForceDeleteRootWord(id string) error {
	return c.doJSON(http.MethodDelete, "/api/root-word/force-delete/"+url.PathEscape(id), nil, nil)
}

// RootWordLogs returns the operation log of a root word, newest first
func (c *Client) RootWordLogs(id string) ([]models.OperationLog, error) {
	var logs []models.OperationLog
	if err := c.doJSON(http.MethodGet, "/api/root-word/logs/"+url.PathEscape(id), nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

type ddlRequest struct {
	DDL string `json:"ddl"`
}

// CheckDDL checks a CREATE TABLE statement against the dictionary
func (c *Client) CheckDDL(statement string) (*ddl.CheckResult, error) {
	var result ddl.CheckResult
	if err := c.doJSON(http.MethodPost, "/api/root-word/ddl/check", ddlRequest{DDL: statement}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReplaceDDL rewrites column types to their standard types
func (c *Client) ReplaceDDL(statement string) (*ddl.ReplaceResult, error) {
	var result ddl.ReplaceResult
	if err := c.doJSON(http.MethodPost, "/api/root-word/ddl/replace", ddlRequest{DDL: statement}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportResponse identifies an enqueued import
type ImportResponse struct {
	TaskID string `json:"task_id"`
	Words  int    `json:"words"`
}

// ImportRootWords uploads a YAML or JSON seed document
func (c *Client) ImportRootWords(document []byte, contentType string) (*ImportResponse, error) {
	var result ImportResponse
	if err := c.do(http.MethodPost, "/api/root-word/import", bytes.NewReader(document), contentType, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// CreateUser creates a user
func (c *Client) CreateUser(req CreateUserRequest) (*User, error) {
	var user User
	if err := c.doJSON(http.MethodPost, "/api/user/create", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPage is a page of users
type UserPage struct {
	List     []User `json:"list"`
	Total    int64  `json:"total"`
	PageNum  int    `json:"page_num"`
	PageSize int    `json:"page_size"`
}

// ListUsers returns a page of users, optionally filtered by username
func (c *Client) ListUsers(pageNum, pageSize int, username string) (*UserPage, error) {
	q := url.Values{}
	if pageNum > 0 {
		q.Set("page_num", strconv.Itoa(pageNum))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	if username != "" {
		q.Set("username", username)
	}

	path := "/api/user/list"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page UserPage
	if err := c.doJSON(http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteUser deletes a user
func (c *Client) DeleteUser(id string) error {
	return c.doJSON(http.MethodDelete, "/api/user/delete/"+url.PathEscape(id), nil, nil)
}

// ResetPassword sets a new password for a user
func (c *Client) ResetPassword(id, newPassword string) error {
	q := url.Values{}
	q.Set("new_password", newPassword)
	return c.doJSON(http.MethodPost, "/api/user/reset-password/"+url.PathEscape(id)+"?"+q.Encode(), nil, nil)
}

// SystemInfo is the server's self report
type SystemInfo struct {
	Version string `json:"version"`
	Runtime struct {
		GoVersion     string  `json:"go_version"`
		Goroutines    int     `json:"goroutines"`
		HeapAllocMB   float64 `json:"heap_alloc_mb"`
		UptimeSeconds int64   `json:"uptime_seconds"`
	} `json:"runtime"`
	Dictionary struct {
		Words       int        `json:"words"`
		LoadedAt    *time.Time `json:"loaded_at"`
		Schedule    string     `json:"refresh_schedule"`
		NextRefresh *time.Time `json:"next_refresh"`
	} `json:"dictionary"`
	RootWords map[string]int64 `json:"root_words"`
	Users     int64            `json:"users"`
	Imports   *struct {
		Queue   string `json:"queue"`
		Pending int    `json:"pending"`
		Active  int    `json:"active"`
		Retry   int    `json:"retry"`
		Error   string `json:"error"`
	} `json:"imports"`
}

// SystemInfo fetches server status (admin only)
func (c *Client) SystemInfo() (*SystemInfo, error) {
	var info SystemInfo
	if err := c.doJSON(http.MethodGet, "/api/system/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

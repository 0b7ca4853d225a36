// Package client はタスクAPIのGoクライアントを提供する。
// サーバーAPIを呼び出すHTTPクライアントと、楽観的更新を行う
// ローカルキャッシュを含む。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/todoman/internal/model"
)

// APIError はサーバーが返す統一エラーフォーマット。
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Category   string `json:"category"`
	Action     string `json:"action"`
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

// Client はタスクAPIのHTTPクライアント。
// 認証はセッションCookieで行うため、httpClientにはCookieジャーを
// 設定したものを渡すこと。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	csrfToken  string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// FetchCSRFToken はCSRFトークンを取得して以後の変更系リクエストに使用する。
// 変更系API（作成・更新・削除）を呼ぶ前に一度呼び出すこと。
func (c *Client) FetchCSRFToken(ctx context.Context) error {
	var result struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/csrf-token", nil, &result); err != nil {
		return fmt.Errorf("CSRFトークンの取得に失敗しました: %w", err)
	}
	c.csrfToken = result.Token
	return nil
}

// ListTodos は自分の全タスクを取得する。
func (c *Client) ListTodos(ctx context.Context) ([]*model.Todo, error) {
	var todos []*model.Todo
	if err := c.doJSON(ctx, http.MethodGet, "/api/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// GetTodo は指定IDのタスクを取得する。
func (c *Client) GetTodo(ctx context.Context, todoID string) (*model.Todo, error) {
	var todo model.Todo
	if err := c.doJSON(ctx, http.MethodGet, "/api/todos/"+todoID, nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// CreateTodo はタスクを作成し、サーバーが採番した確定レコードを返す。
func (c *Client) CreateTodo(ctx context.Context, title, description string) (*model.Todo, error) {
	body := map[string]string{
		"title":       title,
		"description": description,
	}
	var todo model.Todo
	if err := c.doJSON(ctx, http.MethodPost, "/api/todos", body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo は指定IDのタスクを部分更新する。
// updateのnilフィールドはリクエストに含めず、サーバー側で既存値が維持される。
func (c *Client) UpdateTodo(ctx context.Context, todoID string, update *model.TodoUpdate) (*model.Todo, error) {
	body := map[string]interface{}{}
	if update.Title != nil {
		body["title"] = *update.Title
	}
	if update.Description != nil {
		body["description"] = *update.Description
	}
	if update.Completed != nil {
		body["completed"] = *update.Completed
	}

	var todo model.Todo
	if err := c.doJSON(ctx, http.MethodPut, "/api/todos/"+todoID, body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo は指定IDのタスクを削除する。
func (c *Client) DeleteTodo(ctx context.Context, todoID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/todos/"+todoID, nil, nil)
}

// doJSON はJSONリクエストを送信し、レスポンスをoutにデコードする。
// 非2xxレスポンスはAPIErrorとして返す。
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Todoman/1.0 API Client")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && c.csrfToken != "" {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "UNKNOWN"
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		c.logger.Error("APIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		}
	}

	return nil
}

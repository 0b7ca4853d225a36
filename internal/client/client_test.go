package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/todoman/internal/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// --- ListTodos テスト ---

func TestClient_ListTodos_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/todos" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "todo-1", "title": "牛乳を買う", "completed": false}]`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), server.URL)

	todos, err := c.ListTodos(context.Background())
	if err != nil {
		t.Fatalf("ListTodos returned error: %v", err)
	}
	if len(todos) != 1 {
		t.Fatalf("len(todos) = %d, want 1", len(todos))
	}
	if todos[0].ID != "todo-1" || todos[0].Title != "牛乳を買う" {
		t.Errorf("unexpected todo: %+v", todos[0])
	}
}

func TestClient_ListTodos_Unauthorized_ReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code": "UNAUTHORIZED", "message": "認証が必要です。", "category": "auth", "action": "ログインしてください。"}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), server.URL)

	_, err := c.ListTodos(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", apiErr.StatusCode, http.StatusUnauthorized)
	}
	if apiErr.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want %q", apiErr.Code, "UNAUTHORIZED")
	}
}

// --- CreateTodo テスト ---

func TestClient_CreateTodo_SendsBodyAndCSRFToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/csrf-token":
			w.Write([]byte(`{"token": "csrf-abc"}`))
		case "/api/todos":
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if r.Header.Get("X-CSRF-Token") != "csrf-abc" {
				t.Errorf("X-CSRF-Token = %q, want %q", r.Header.Get("X-CSRF-Token"), "csrf-abc")
			}
			body, _ := io.ReadAll(r.Body)
			var req map[string]string
			json.Unmarshal(body, &req)
			if req["title"] != "掃除をする" {
				t.Errorf("title = %q, want %q", req["title"], "掃除をする")
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id": "todo-new", "title": "掃除をする", "completed": false}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), server.URL)

	if err := c.FetchCSRFToken(context.Background()); err != nil {
		t.Fatalf("FetchCSRFToken returned error: %v", err)
	}

	todo, err := c.CreateTodo(context.Background(), "掃除をする", "")
	if err != nil {
		t.Fatalf("CreateTodo returned error: %v", err)
	}
	if todo.ID != "todo-new" {
		t.Errorf("id = %q, want %q", todo.ID, "todo-new")
	}
}

func TestClient_CreateTodo_ValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": "VALIDATION_FAILED", "message": "タイトルを入力してください", "category": "validation", "action": "入力内容を確認してください。"}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), server.URL)

	_, err := c.CreateTodo(context.Background(), "", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "VALIDATION_FAILED" {
		t.Errorf("code = %q, want %q", apiErr.Code, "VALIDATION_FAILED")
	}
}

// --- UpdateTodo テスト ---

func TestClient_UpdateTodo_OnlySendsProvidedFields(t *testing.T) {
	completed := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/todos/todo-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		json.Unmarshal(body, &req)
		if _, ok := req["title"]; ok {
			t.Error("title should not be sent when not set")
		}
		if v, ok := req["completed"].(bool); !ok || !v {
			t.Error("completed=true should be sent")
		}
		w.Write([]byte(`{"id": "todo-1", "title": "牛乳を買う", "completed": true}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), server.URL)

	todo, err := c.UpdateTodo(context.Background(), "todo-1", &model.TodoUpdate{Completed: &completed})
	if err != nil {
		t.Fatalf("UpdateTodo returned error: %v", err)
	}
	if !todo.Completed {
		t.Error("expected completed=true in response")
	}
}

// --- DeleteTodo テスト ---

func TestClient_DeleteTodo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/todos/todo-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id": "todo-1", "message": "タスクを削除しました。"}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), server.URL)

	if err := c.DeleteTodo(context.Background(), "todo-1"); err != nil {
		t.Fatalf("DeleteTodo returned error: %v", err)
	}
}

func TestClient_DeleteTodo_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code": "TODO_NOT_FOUND", "message": "指定されたタスクが見つかりません。", "category": "todo", "action": "タスクIDを確認してください。"}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), server.URL)

	err := c.DeleteTodo(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "TODO_NOT_FOUND" {
		t.Errorf("code = %q, want %q", apiErr.Code, "TODO_NOT_FOUND")
	}
}

// --- 非JSONエラーレスポンス ---

func TestClient_NonJSONErrorBody_ReturnsUnknownCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), server.URL)

	_, err := c.ListTodos(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "UNKNOWN" {
		t.Errorf("code = %q, want %q", apiErr.Code, "UNKNOWN")
	}
	if !bytes.Contains([]byte(apiErr.Message), []byte("bad gateway")) {
		t.Errorf("message = %q, should contain raw body", apiErr.Message)
	}
}

package todo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// --- モック定義 ---

type mockTodoRepo struct {
	listByUserIDFn      func(ctx context.Context, userID string) ([]*model.Todo, error)
	findByIDAndUserFn   func(ctx context.Context, id, userID string) (*model.Todo, error)
	createFn            func(ctx context.Context, todo *model.Todo) error
	updateFn            func(ctx context.Context, todo *model.Todo) (bool, error)
	deleteByIDAndUserFn func(ctx context.Context, id, userID string) (bool, error)
}

func (m *mockTodoRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Todo, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return []*model.Todo{}, nil
}

func (m *mockTodoRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Todo, error) {
	if m.findByIDAndUserFn != nil {
		return m.findByIDAndUserFn(ctx, id, userID)
	}
	return nil, nil
}

func (m *mockTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	if m.createFn != nil {
		return m.createFn(ctx, todo)
	}
	return nil
}

func (m *mockTodoRepo) Update(ctx context.Context, todo *model.Todo) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, todo)
	}
	return true, nil
}

func (m *mockTodoRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) (bool, error) {
	if m.deleteByIDAndUserFn != nil {
		return m.deleteByIDAndUserFn(ctx, id, userID)
	}
	return true, nil
}

var _ repository.TodoRepository = (*mockTodoRepo)(nil)

// passthroughSanitizer はサニタイズ処理を素通しするテスト用実装。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// --- テスト ---

func TestList_ReturnsUserTodos(t *testing.T) {
	ctx := context.Background()

	repo := &mockTodoRepo{
		listByUserIDFn: func(ctx context.Context, userID string) ([]*model.Todo, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return []*model.Todo{
				{ID: "todo-2", UserID: userID, Title: "newer"},
				{ID: "todo-1", UserID: userID, Title: "older"},
			}, nil
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	todos, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("len(todos) = %d, want 2", len(todos))
	}
	if todos[0].ID != "todo-2" {
		t.Errorf("todos[0].ID = %q, want %q", todos[0].ID, "todo-2")
	}
}

func TestList_EmptyResult_ReturnsEmptySlice(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockTodoRepo{}, passthroughSanitizer{})

	todos, err := svc.List(ctx, "user-empty")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if todos == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(todos) != 0 {
		t.Errorf("len(todos) = %d, want 0", len(todos))
	}
}

func TestGet_NotFound_ReturnsTodoNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockTodoRepo{}, passthroughSanitizer{})

	_, err := svc.Get(ctx, "user-1", "missing-todo")
	if err == nil {
		t.Fatal("expected error for missing todo")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTodoNotFound {
		t.Errorf("expected TODO_NOT_FOUND error, got %v", err)
	}
}

func TestCreate_ValidInput_CreatesTodo(t *testing.T) {
	ctx := context.Background()

	var created *model.Todo
	repo := &mockTodoRepo{
		createFn: func(ctx context.Context, todo *model.Todo) error {
			created = todo
			return nil
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	todo, err := svc.Create(ctx, "user-1", "  Buy milk  ", "2 liters")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected todo to be persisted")
	}
	// タイトルは前後の空白が除去されること
	if todo.Title != "Buy milk" {
		t.Errorf("title = %q, want %q", todo.Title, "Buy milk")
	}
	if todo.UserID != "user-1" {
		t.Errorf("userID = %q, want %q", todo.UserID, "user-1")
	}
	if todo.Completed {
		t.Error("new todo should not be completed")
	}
	if todo.ID == "" {
		t.Error("expected non-empty todo ID")
	}
	if todo.Description != "2 liters" {
		t.Errorf("description = %q, want %q", todo.Description, "2 liters")
	}
}

func TestCreate_EmptyTitle_ReturnsValidationError(t *testing.T) {
	ctx := context.Background()

	createCalled := false
	repo := &mockTodoRepo{
		createFn: func(ctx context.Context, todo *model.Todo) error {
			createCalled = true
			return nil
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := svc.Create(ctx, "user-1", title, "")
		if err == nil {
			t.Errorf("Create(title=%q) expected validation error, got nil", title)
			continue
		}
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
			t.Errorf("Create(title=%q) expected VALIDATION_FAILED, got %v", title, err)
		}
	}
	if createCalled {
		t.Error("repository should not be called for invalid input")
	}
}

func TestCreate_TitleTooLong_ReturnsValidationError(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockTodoRepo{}, passthroughSanitizer{})

	longTitle := strings.Repeat("あ", model.TitleMaxLength+1)
	_, err := svc.Create(ctx, "user-1", longTitle, "")
	if err == nil {
		t.Fatal("expected validation error for too-long title")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}

	// 境界値: ちょうど最大文字数は許可される
	okTitle := strings.Repeat("あ", model.TitleMaxLength)
	if _, err := svc.Create(ctx, "user-1", okTitle, ""); err != nil {
		t.Errorf("Create() with max-length title should succeed, got %v", err)
	}
}

// 説明文がサニタイズされてから保存されることを検証
func TestCreate_DescriptionSanitized(t *testing.T) {
	ctx := context.Background()

	var created *model.Todo
	repo := &mockTodoRepo{
		createFn: func(ctx context.Context, todo *model.Todo) error {
			created = todo
			return nil
		},
	}

	svc := NewService(repo, upperSanitizer{})

	if _, err := svc.Create(ctx, "user-1", "task", "memo"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Description != "MEMO" {
		t.Errorf("description = %q, want sanitized %q", created.Description, "MEMO")
	}
}

// upperSanitizer はサニタイズが適用されたことを観測しやすくするテスト用実装。
type upperSanitizer struct{}

func (upperSanitizer) Sanitize(raw string) string { return strings.ToUpper(raw) }

func TestUpdate_MergesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()

	existing := &model.Todo{
		ID:          "todo-1",
		UserID:      "user-1",
		Title:       "original title",
		Description: "original description",
		Completed:   false,
		CreatedAt:   time.Now().Add(-1 * time.Hour),
		UpdatedAt:   time.Now().Add(-1 * time.Hour),
	}

	var updated *model.Todo
	repo := &mockTodoRepo{
		findByIDAndUserFn: func(ctx context.Context, id, userID string) (*model.Todo, error) {
			if id == existing.ID && userID == existing.UserID {
				copied := *existing
				return &copied, nil
			}
			return nil, nil
		},
		updateFn: func(ctx context.Context, todo *model.Todo) (bool, error) {
			updated = todo
			return true, nil
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	// completedのみ更新
	result, err := svc.Update(ctx, "user-1", "todo-1", &model.TodoUpdate{Completed: boolPtr(true)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !result.Completed {
		t.Error("completed should be updated to true")
	}
	if result.Title != "original title" {
		t.Errorf("title = %q, should be unchanged", result.Title)
	}
	if result.Description != "original description" {
		t.Errorf("description = %q, should be unchanged", result.Description)
	}
	if updated == nil {
		t.Fatal("expected repository update to be called")
	}
	if !updated.UpdatedAt.After(existing.UpdatedAt) {
		t.Error("updatedAt should advance")
	}
}

func TestUpdate_TitleValidationApplied(t *testing.T) {
	ctx := context.Background()

	repo := &mockTodoRepo{
		findByIDAndUserFn: func(ctx context.Context, id, userID string) (*model.Todo, error) {
			return &model.Todo{ID: id, UserID: userID, Title: "old"}, nil
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	_, err := svc.Update(ctx, "user-1", "todo-1", &model.TodoUpdate{Title: strPtr("   ")})
	if err == nil {
		t.Fatal("expected validation error for blank title")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestUpdate_NotFound_ReturnsTodoNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockTodoRepo{}, passthroughSanitizer{})

	_, err := svc.Update(ctx, "user-1", "missing-todo", &model.TodoUpdate{Completed: boolPtr(true)})
	if err == nil {
		t.Fatal("expected error for missing todo")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTodoNotFound {
		t.Errorf("expected TODO_NOT_FOUND, got %v", err)
	}
}

func TestUpdate_DeletedBetweenFindAndUpdate_ReturnsTodoNotFound(t *testing.T) {
	ctx := context.Background()

	repo := &mockTodoRepo{
		findByIDAndUserFn: func(ctx context.Context, id, userID string) (*model.Todo, error) {
			return &model.Todo{ID: id, UserID: userID, Title: "soon gone"}, nil
		},
		updateFn: func(ctx context.Context, todo *model.Todo) (bool, error) {
			return false, nil // 取得後に削除された
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	_, err := svc.Update(ctx, "user-1", "todo-1", &model.TodoUpdate{Completed: boolPtr(true)})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTodoNotFound {
		t.Errorf("expected TODO_NOT_FOUND, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	ctx := context.Background()

	var deletedID, deletedUserID string
	repo := &mockTodoRepo{
		deleteByIDAndUserFn: func(ctx context.Context, id, userID string) (bool, error) {
			deletedID = id
			deletedUserID = userID
			return true, nil
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	if err := svc.Delete(ctx, "user-1", "todo-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deletedID != "todo-1" || deletedUserID != "user-1" {
		t.Errorf("delete called with (%q, %q), want (%q, %q)", deletedID, deletedUserID, "todo-1", "user-1")
	}
}

func TestDelete_NotFound_ReturnsTodoNotFound(t *testing.T) {
	ctx := context.Background()

	repo := &mockTodoRepo{
		deleteByIDAndUserFn: func(ctx context.Context, id, userID string) (bool, error) {
			return false, nil
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	err := svc.Delete(ctx, "user-1", "missing-todo")
	if err == nil {
		t.Fatal("expected error for missing todo")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTodoNotFound {
		t.Errorf("expected TODO_NOT_FOUND, got %v", err)
	}
}

func TestDelete_RepositoryError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	repo := &mockTodoRepo{
		deleteByIDAndUserFn: func(ctx context.Context, id, userID string) (bool, error) {
			return false, errors.New("db error")
		},
	}

	svc := NewService(repo, passthroughSanitizer{})

	err := svc.Delete(ctx, "user-1", "todo-1")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("store error should not map to an API error, got %v", err)
	}
}

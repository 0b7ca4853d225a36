// Package todo はタスク管理のドメインロジックを提供する。
package todo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
	"github.com/hitoshi/todoman/internal/security"
)

// Service はタスクに関するビジネスロジックを提供する。
// 全ての操作は認証済みユーザーIDを受け取り、所有者スコープで実行される。
type Service struct {
	todoRepo  repository.TodoRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(todoRepo repository.TodoRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		todoRepo:  todoRepo,
		sanitizer: sanitizer,
	}
}

// List はユーザーの全タスクを作成日時の降順で返す。
// タスクが1件もない場合は空スライスを返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Todo, error) {
	todos, err := s.todoRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// Get は指定IDのタスクを取得する。
// 存在しない場合も他ユーザー所有の場合も同じTODO_NOT_FOUNDを返す
// （タスクの存在を他ユーザーに漏らさない）。
func (s *Service) Get(ctx context.Context, userID, todoID string) (*model.Todo, error) {
	todo, err := s.todoRepo.FindByIDAndUser(ctx, todoID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find todo: %w", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(todoID)
	}
	return todo, nil
}

// Create は新しいタスクを作成する。
// タイトルは前後の空白を除去した上で検証される。
// 説明文はサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, userID, title, description string) (*model.Todo, error) {
	title, err := s.validateTitle(title)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	todo := &model.Todo{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitize(description),
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.todoRepo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	slog.Info("todo created",
		slog.String("todo_id", todo.ID),
		slog.String("user_id", userID),
	)
	return todo, nil
}

// Update は指定IDのタスクを部分更新する。
// updateのnilフィールドは既存の値を維持する（マージ更新）。
// 存在しない場合も他ユーザー所有の場合もTODO_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, userID, todoID string, update *model.TodoUpdate) (*model.Todo, error) {
	todo, err := s.todoRepo.FindByIDAndUser(ctx, todoID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find todo: %w", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(todoID)
	}

	if update.Title != nil {
		title, err := s.validateTitle(*update.Title)
		if err != nil {
			return nil, err
		}
		todo.Title = title
	}
	if update.Description != nil {
		todo.Description = s.sanitize(*update.Description)
	}
	if update.Completed != nil {
		todo.Completed = *update.Completed
	}
	todo.UpdatedAt = time.Now()

	updated, err := s.todoRepo.Update(ctx, todo)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	if !updated {
		// 取得後に削除された場合。未検出として扱う。
		return nil, model.NewTodoNotFoundError(todoID)
	}

	return todo, nil
}

// Delete は指定IDのタスクを削除する。
// 存在しない場合も他ユーザー所有の場合もTODO_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, userID, todoID string) error {
	deleted, err := s.todoRepo.DeleteByIDAndUser(ctx, todoID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if !deleted {
		return model.NewTodoNotFoundError(todoID)
	}

	slog.Info("todo deleted",
		slog.String("todo_id", todoID),
		slog.String("user_id", userID),
	)
	return nil
}

// validateTitle はタイトルを検証し、正規化した値を返す。
// 前後の空白を除去し、空または最大文字数超過を拒否する。
func (s *Service) validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", model.NewValidationFailedError("タイトルを入力してください")
	}
	if utf8.RuneCountInString(title) > model.TitleMaxLength {
		return "", model.NewValidationFailedError(
			fmt.Sprintf("タイトルは%d文字以内で入力してください", model.TitleMaxLength))
	}
	return title, nil
}

// sanitize は説明文をサニタイズする。サニタイザー未設定時はそのまま返す。
func (s *Service) sanitize(description string) string {
	if s.sanitizer == nil {
		return description
	}
	return s.sanitizer.Sanitize(description)
}

package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/todoman/internal/model"
)

// TempIDPrefix はサーバー採番前の仮タスクIDの接頭辞。
const TempIDPrefix = "temp-"

// --- 純粋な変換関数 ---
// 入力リストは変更せず、常に新しいリストを返す。

// ApplyCreate は仮IDのタスクをリスト先頭に追加した新しいリストと仮IDを返す。
// サーバー応答後にReconcileCreateで確定レコードに置き換える。
func ApplyCreate(list []*model.Todo, title, description string) ([]*model.Todo, string) {
	tempID := TempIDPrefix + uuid.New().String()
	now := time.Now()
	placeholder := &model.Todo{
		ID:          tempID,
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result := make([]*model.Todo, 0, len(list)+1)
	result = append(result, placeholder)
	for _, todo := range list {
		result = append(result, copyTodo(todo))
	}
	return result, tempID
}

// ApplyToggle は指定IDのタスクの完了状態を変更した新しいリストを返す。
// 該当IDがなければリストのコピーをそのまま返す。
func ApplyToggle(list []*model.Todo, todoID string, completed bool) []*model.Todo {
	result := make([]*model.Todo, 0, len(list))
	for _, todo := range list {
		c := copyTodo(todo)
		if c.ID == todoID {
			c.Completed = completed
			c.UpdatedAt = time.Now()
		}
		result = append(result, c)
	}
	return result
}

// ApplyDelete は指定IDのタスクを取り除いた新しいリストを返す。
func ApplyDelete(list []*model.Todo, todoID string) []*model.Todo {
	result := make([]*model.Todo, 0, len(list))
	for _, todo := range list {
		if todo.ID == todoID {
			continue
		}
		result = append(result, copyTodo(todo))
	}
	return result
}

// ReconcileCreate は仮IDのプレースホルダーをサーバーの確定レコードに
// 置き換えた新しいリストを返す。仮IDが見つからない場合
// （確定前に削除された場合など）はリストのコピーをそのまま返す。
func ReconcileCreate(list []*model.Todo, tempID string, serverTodo *model.Todo) []*model.Todo {
	result := make([]*model.Todo, 0, len(list))
	for _, todo := range list {
		if todo.ID == tempID {
			result = append(result, copyTodo(serverTodo))
			continue
		}
		result = append(result, copyTodo(todo))
	}
	return result
}

// Snapshot はリストの値コピーを返す。ロールバック用。
func Snapshot(list []*model.Todo) []*model.Todo {
	result := make([]*model.Todo, 0, len(list))
	for _, todo := range list {
		result = append(result, copyTodo(todo))
	}
	return result
}

func copyTodo(todo *model.Todo) *model.Todo {
	c := *todo
	return &c
}

// --- 楽観的キャッシュ ---

// Cache はタスクリストのローカルビュー。
// 変更操作は先にローカルに反映し、サーバー呼び出しの失敗時には
// 変更前のスナップショットへ巻き戻す。
//
// 既知の競合: 確定前に届いた古い応答が新しい状態に対して
// 照合されることがある。キャンセルトークンは持たない。
type Cache struct {
	mu     sync.Mutex
	client *Client
	todos  []*model.Todo
}

// NewCache はCacheを生成する。
func NewCache(client *Client) *Cache {
	return &Cache{
		client: client,
		todos:  []*model.Todo{},
	}
}

// Todos は現在のローカルビューの値コピーを返す。
func (c *Cache) Todos() []*model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot(c.todos)
}

// Refresh はサーバーから全タスクを取得してローカルビューを置き換える。
func (c *Cache) Refresh(ctx context.Context) error {
	todos, err := c.client.ListTodos(ctx)
	if err != nil {
		return fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.todos = Snapshot(todos)
	return nil
}

// Create はタスクを楽観的に追加する。
// 先にプレースホルダーを表示し、サーバー応答で確定レコードに置き換える。
// 失敗時は変更前の状態に巻き戻してエラーを返す。
func (c *Cache) Create(ctx context.Context, title, description string) error {
	c.mu.Lock()
	snapshot := Snapshot(c.todos)
	next, tempID := ApplyCreate(c.todos, title, description)
	c.todos = next
	c.mu.Unlock()

	serverTodo, err := c.client.CreateTodo(ctx, title, description)
	if err != nil {
		c.rollback(snapshot)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.todos = ReconcileCreate(c.todos, tempID, serverTodo)
	return nil
}

// Toggle はタスクの完了状態を楽観的に変更する。
// 失敗時は変更前の状態に巻き戻してエラーを返す。
func (c *Cache) Toggle(ctx context.Context, todoID string, completed bool) error {
	c.mu.Lock()
	snapshot := Snapshot(c.todos)
	c.todos = ApplyToggle(c.todos, todoID, completed)
	c.mu.Unlock()

	update := &model.TodoUpdate{Completed: &completed}
	if _, err := c.client.UpdateTodo(ctx, todoID, update); err != nil {
		c.rollback(snapshot)
		return err
	}
	return nil
}

// Delete はタスクを楽観的に削除する。
// 失敗時は変更前の状態に巻き戻してエラーを返す。
func (c *Cache) Delete(ctx context.Context, todoID string) error {
	c.mu.Lock()
	snapshot := Snapshot(c.todos)
	c.todos = ApplyDelete(c.todos, todoID)
	c.mu.Unlock()

	if err := c.client.DeleteTodo(ctx, todoID); err != nil {
		c.rollback(snapshot)
		return err
	}
	return nil
}

func (c *Cache) rollback(snapshot []*model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.todos = snapshot
}

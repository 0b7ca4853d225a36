package model

import "time"

// TitleMaxLength はタイトルの最大文字数。
const TitleMaxLength = 500

// Todo は1件のタスクを表す。
// 所有者は常に1人で、全ての読み取り・更新・削除は
// (ID, UserID) の組でフィルタされる。
type Todo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoUpdate は部分更新の入力を表す。
// nilフィールドは変更せず、既存の値を維持するマージ更新を行う。
type TodoUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

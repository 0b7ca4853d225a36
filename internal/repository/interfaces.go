// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/todoman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。
	// アカウントリンク時の第2検索キーとして使用する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateAvatar はユーザーのアバター画像データを更新する。
	UpdateAvatar(ctx context.Context, userID string, data []byte, mimeType string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Create はidentityを作成する。
	// 既存ユーザーへの追加プロバイダー紐付け（アカウントリンク）で使用する。
	Create(ctx context.Context, identity *model.Identity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TodoRepository はタスクデータの永続化インターフェース。
// 所有者スコープはクエリレベルで強制される: 読み取り・更新・削除の
// WHERE句には常に (id, user_id) の両方が含まれる。
type TodoRepository interface {
	// ListByUserID はユーザーの全タスクを作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Todo, error)

	// FindByIDAndUser は (id, user_id) でタスクを取得する。
	// 存在しない場合も他ユーザー所有の場合もnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Todo, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, todo *model.Todo) error

	// Update は (ID, UserID) が一致する行を更新する。
	// 一致する行がない場合はfalseを返し、ストアは変更されない。
	Update(ctx context.Context, todo *model.Todo) (bool, error)

	// DeleteByIDAndUser は (id, user_id) が一致する行を削除する。
	// 一致する行がない場合はfalseを返す。
	DeleteByIDAndUser(ctx context.Context, id, userID string) (bool, error)
}

// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回サインイン時に遅延作成され、以後削除されることはない。
type User struct {
	ID         string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	// AvatarData / AvatarMime はサインイン時に取得したプロフィール画像。
	// 取得失敗時はnil/空のまま保存される。
	AvatarData []byte
	AvatarMime string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// (Provider, ProviderUserID) の組につきユーザーは常に1人。
// 同一メールアドレスの既存ユーザーには新しいIdentityが追加で紐付く。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// IDはセッショントークン（JWT）のjtiクレームとして埋め込まれ、
// ログアウト時の失効判定に使用される。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

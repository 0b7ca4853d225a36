// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	GivenName      string
	FamilyName     string
	PictureURL     string
	Provider       string // "google", "github" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// AvatarFetcher はプロフィール画像取得のうち認証サービスが必要とする部分。
type AvatarFetcher interface {
	Fetch(ctx context.Context, avatarURL string) (data []byte, mimeType string, err error)
}

// SignInOutcome はサインイン処理の結果区分。
type SignInOutcome string

const (
	// SignInCreated は新規ユーザーとアイデンティティを作成した。
	SignInCreated SignInOutcome = "created"
	// SignInLinked はメールアドレス一致の既存ユーザーに新しいアイデンティティを紐付けた。
	SignInLinked SignInOutcome = "linked"
	// SignInFound は既存のアイデンティティでログインした。
	SignInFound SignInOutcome = "found"
)

// SignInResult はサインイン成功時の結果。
type SignInResult struct {
	User    *model.User
	Session *model.Session
	Token   string // クッキーに格納する署名済みトークン
	Outcome SignInOutcome
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
//
// サインイン時のユーザー解決は以下の優先順で行う（冪等）:
//  1. (provider, provider_user_id) に一致するアイデンティティ → 既存ユーザー
//  2. メールアドレスに一致するユーザー → アイデンティティを追加して紐付け
//  3. どちらも存在しない → ユーザーとアイデンティティを同時に新規作成
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	tokens      *TokenCodec
	avatars     AvatarFetcher
	config      ServiceConfig
}

// NewService はServiceを生成する。
// avatarsはnil可（プロフィール画像の取得を行わない）。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	tokens *TokenCodec,
	avatars AvatarFetcher,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		avatars:     avatars,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、ユーザーを解決してセッションを発行する。
// プロバイダーのユーザーIDまたはメールアドレスが欠落している場合は
// サインイン失敗とし、ユーザーは作成されない。
// ストア障害時はエラーを返してサインインを拒否する（fail-closed）。
func (s *Service) HandleCallback(ctx context.Context, code string) (*SignInResult, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, model.NewSignInFailedError(fmt.Sprintf("failed to exchange oauth code: %v", err))
	}

	// 2. 必須クレームの検証。欠落時はユーザーを作成せず失敗させる。
	if userInfo.ProviderUserID == "" {
		return nil, model.NewSignInFailedError("provider did not return a user ID")
	}
	if userInfo.Email == "" {
		return nil, model.NewSignInFailedError("provider did not return an email address")
	}

	// 3. ユーザー解決
	user, outcome, err := s.resolveUser(ctx, userInfo)
	if err != nil {
		return nil, err
	}

	// 4. セッションとトークンを発行
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user signed in",
		slog.String("user_id", user.ID),
		slog.String("provider", userInfo.Provider),
		slog.String("outcome", string(outcome)),
	)

	return &SignInResult{
		User:    user,
		Session: session,
		Token:   token,
		Outcome: outcome,
	}, nil
}

// resolveUser はOAuthユーザー情報からアプリケーションのユーザーを解決する。
// 同一入力での再実行は同一ユーザーに収束する（冪等）。
func (s *Service) resolveUser(ctx context.Context, userInfo *OAuthUserInfo) (*model.User, SignInOutcome, error) {
	// アイデンティティで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find identity: %w", err)
	}

	if identity != nil {
		user, err := s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			// アイデンティティが残っているのにユーザーが消えている。
			// データ不整合なのでサインインを拒否する。
			return nil, "", fmt.Errorf("identity %s points to missing user %s", identity.ID, identity.UserID)
		}
		return user, SignInFound, nil
	}

	// メールアドレス一致で既存ユーザーを検索し、アイデンティティを追加
	existing, err := s.userRepo.FindByEmail(ctx, userInfo.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}

	now := time.Now()

	if existing != nil {
		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			UserID:         existing.ID,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			CreatedAt:      now,
		}
		if err := s.identRepo.Create(ctx, newIdentity); err != nil {
			return nil, "", fmt.Errorf("failed to link identity: %w", err)
		}
		slog.Info("identity linked to existing user",
			slog.String("user_id", existing.ID),
			slog.String("provider", userInfo.Provider),
		)
		return existing, SignInLinked, nil
	}

	// 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
	newUser := &model.User{
		ID:         uuid.New().String(),
		Email:      userInfo.Email,
		Name:       userInfo.Name,
		GivenName:  userInfo.GivenName,
		FamilyName: userInfo.FamilyName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// プロフィール画像の取得は失敗してもサインインを止めない（fail-soft）
	if s.avatars != nil && userInfo.PictureURL != "" {
		data, mimeType, err := s.avatars.Fetch(ctx, userInfo.PictureURL)
		if err == nil && data != nil {
			newUser.AvatarData = data
			newUser.AvatarMime = mimeType
		}
	}

	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
		return nil, "", fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("provider", userInfo.Provider),
	)
	return newUser, SignInCreated, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はユーザーIDから現在のユーザーを取得する。
// ユーザーが存在しない場合はUSER_NOT_FOUNDエラーを返す。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// createSession はセッションを作成し永続化する。
// セッションIDはトークンのjtiクレームとしても使用される。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	now := time.Now()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec はセッショントークンの発行と検証を行う。
// トークンはHMAC-SHA256で署名されたJWTで、クレームは以下の通り:
//   - sub: ユーザーID
//   - jti: セッションID（sessionsテーブルの主キー）
//   - exp: 有効期限
//
// 署名検証に成功してもセッション行がDBに存在しなければ無効として扱う。
// これによりログアウトやクリーンアップによる失効が即座に反映される。
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec はTokenCodecを生成する。
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// SessionClaims はトークン検証後に取り出されるクレーム。
type SessionClaims struct {
	UserID    string
	SessionID string
}

// Issue はユーザーIDとセッションIDから署名済みトークンを発行する。
func (c *TokenCodec) Issue(userID, sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        sessionID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 署名不正、期限切れ、クレーム欠落の場合はエラーを返す。
func (c *TokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing sub claim")
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("missing jti claim")
	}

	return &SessionClaims{
		UserID:    claims.Subject,
		SessionID: claims.ID,
	}, nil
}

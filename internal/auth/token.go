package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL はトークンの既定有効期間（7日）。
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken は署名不正・形式不正・期限切れのトークンを表す。
var ErrInvalidToken = errors.New("invalid token")

// Claims はトークンに格納するアカウント識別情報。
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer はHS256署名のトークンを発行・検証する。
type TokenIssuer struct {
	secret   []byte
	ttl      time.Duration
	recorder EventRecorder
	now      func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。
// ttlが0以下の場合はDefaultTokenTTLを使用する。recorderはnilでもよい。
func NewTokenIssuer(secret []byte, ttl time.Duration, recorder EventRecorder) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &TokenIssuer{
		secret:   secret,
		ttl:      ttl,
		recorder: recorder,
		now:      time.Now,
	}
}

// Issue はアカウントIDとユーザー名を含むトークンを発行する。
// jtiにUUIDを設定するため、同一秒内に発行したトークンも互いに異なる。
func (t *TokenIssuer) Issue(userID, username string) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名・アルゴリズム・有効期限を検証し、クレームを返す。
// 検証に失敗した場合は理由を問わずErrInvalidTokenを返す。
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		t.recorder.RecordAuthEvent(EventVerify, OutcomeFailure)
		return nil, ErrInvalidToken
	}

	t.recorder.RecordAuthEvent(EventVerify, OutcomeSuccess)
	return claims, nil
}

// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/miniblog/internal/auth"
	"github.com/hitoshi/miniblog/internal/model"
)

const bearerScheme = "bearer"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みIDを格納するためのキー。
var identityContextKey = contextKey("identity")

// Identity はトークンから取り出した認証済みアカウントの識別情報。
type Identity struct {
	UserID   string
	Username string
}

// TokenVerifier はトークン検証のインターフェース。
// 検証失敗時はauth.ErrInvalidTokenを返す。
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 検証に成功した場合はIdentityをリクエストコンテキストに注入する。
// トークンが無い場合はUNAUTHENTICATED、検証に失敗した場合はINVALID_TOKENで401を返し、
// 後続のハンドラーは呼ばない。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteAPIError(w, model.NewUnauthenticatedError())
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				WriteAPIError(w, model.NewInvalidTokenError())
				return
			}

			ctx := ContextWithIdentity(r.Context(), Identity{
				UserID:   claims.UserID,
				Username: claims.Username,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken は "Bearer <token>" 形式のヘッダー値からトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// IdentityFromContext はリクエストコンテキストから認証済みIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("user ID not found in context")
	}
	return id.UserID, nil
}

// ContextWithIdentity はコンテキストに認証済みIDを注入する。
// リクエストログ用のrequestStateがあれば、そこにもユーザーIDを記録する。
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	if state := requestStateFromContext(ctx); state != nil {
		state.userID = id.UserID
	}
	return context.WithValue(ctx, identityContextKey, id)
}

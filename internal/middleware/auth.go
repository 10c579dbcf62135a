// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/todoman/internal/model"
)

// AuthHeaderName は認証トークンを運ぶHTTPヘッダー名。
const AuthHeaderName = "x-auth"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userContextKey  = contextKey("user")
	tokenContextKey = contextKey("token")
)

// TokenVerifier はトークン検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.User, error)
}

// NewAuthMiddleware はx-authヘッダーのトークンを検証するミドルウェアを返す。
// 認証済みユーザーとトークンをリクエストコンテキストに注入する。
// ヘッダーがない場合や検証に失敗した場合は401を返し、後続のハンドラーは実行しない。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. ヘッダーからトークンを取得
			token := r.Header.Get(AuthHeaderName)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. 署名とユーザーのトークン一覧を検証
			user, err := verifier.Verify(r.Context(), token)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					slog.Warn("token rejected",
						slog.String("path", r.URL.Path),
						slog.String("reason", apiErr.Code),
					)
				} else {
					slog.Error("failed to verify token",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 認証済みユーザーとトークンをコンテキストに注入
			ctx := ContextWithAuth(r.Context(), user, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithAuth はコンテキストに認証済みユーザーとトークンを注入する。
// テストやミドルウェア以外のコンテキスト生成でも使用する。
func ContextWithAuth(ctx context.Context, user *model.User, token string) context.Context {
	if info := requestInfoFromContext(ctx); info != nil {
		info.userID = user.ID
	}
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, tokenContextKey, token)
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// TokenFromContext はリクエストの認証に使われたトークンを取得する。
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

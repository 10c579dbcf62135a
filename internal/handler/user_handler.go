package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
)

// AuthServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	Revoke(ctx context.Context, user *model.User, token string) error
}

// UserHandler はユーザー登録・ログイン・ログアウトのHTTPハンドラー。
type UserHandler struct {
	service AuthServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service AuthServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// credentialsRequest は登録・ログインリクエストのボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュとトークン一覧は含めない。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{ID: user.ID, Email: user.Email}
}

// Register はユーザーを登録し、発行したトークンをx-authヘッダーで返す。
// POST /user
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, token, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set(middleware.AuthHeaderName, token)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Login はメールアドレスとパスワードで認証し、新しいトークンをx-authヘッダーで返す。
// POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set(middleware.AuthHeaderName, token)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Me は認証済みユーザーの情報を返す。
// GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Logout はリクエストに使われたトークンのみを失効させる。
// 同じユーザーの他のトークンは有効なまま残る。
// DELETE /users/me/token
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Revoke(r.Context(), user, token); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

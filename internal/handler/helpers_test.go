package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/todo"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn func(ctx context.Context, email, password string) (*model.User, string, error)
	loginFn    func(ctx context.Context, email, password string) (*model.User, string, error)
	revokeFn   func(ctx context.Context, user *model.User, token string) error
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*model.User, string, error) {
	return m.registerFn(ctx, email, password)
}
func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	return m.loginFn(ctx, email, password)
}
func (m *mockAuthService) Revoke(ctx context.Context, user *model.User, token string) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, user, token)
	}
	return nil
}

// mockTodoService はTodoServiceInterfaceのモック実装。
type mockTodoService struct {
	createFn func(ctx context.Context, userID, text string) (*model.Todo, error)
	listFn   func(ctx context.Context, userID string) ([]*model.Todo, error)
	getFn    func(ctx context.Context, userID, id string) (*model.Todo, error)
	updateFn func(ctx context.Context, userID, id string, input todo.UpdateInput) (*model.Todo, error)
	deleteFn func(ctx context.Context, userID, id string) (*model.Todo, error)
}

func (m *mockTodoService) Create(ctx context.Context, userID, text string) (*model.Todo, error) {
	return m.createFn(ctx, userID, text)
}
func (m *mockTodoService) List(ctx context.Context, userID string) ([]*model.Todo, error) {
	return m.listFn(ctx, userID)
}
func (m *mockTodoService) Get(ctx context.Context, userID, id string) (*model.Todo, error) {
	return m.getFn(ctx, userID, id)
}
func (m *mockTodoService) Update(ctx context.Context, userID, id string, input todo.UpdateInput) (*model.Todo, error) {
	return m.updateFn(ctx, userID, id, input)
}
func (m *mockTodoService) Delete(ctx context.Context, userID, id string) (*model.Todo, error) {
	return m.deleteFn(ctx, userID, id)
}

// --- ヘルパー ---

// withUser はテスト用に認証済みユーザーとトークンをコンテキストに注入するヘルパー。
func withUser(r *http.Request, userID, token string) *http.Request {
	user := &model.User{ID: userID, Email: userID + "@example.com"}
	ctx := middleware.ContextWithAuth(r.Context(), user, token)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func int64Ptr(v int64) *int64 { return &v }

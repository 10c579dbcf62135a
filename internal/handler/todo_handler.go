package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/todo"
)

// TodoServiceInterface はTodoハンドラーが必要とするサービスインターフェース。
type TodoServiceInterface interface {
	Create(ctx context.Context, userID, text string) (*model.Todo, error)
	List(ctx context.Context, userID string) ([]*model.Todo, error)
	Get(ctx context.Context, userID, id string) (*model.Todo, error)
	Update(ctx context.Context, userID, id string, input todo.UpdateInput) (*model.Todo, error)
	Delete(ctx context.Context, userID, id string) (*model.Todo, error)
}

// TodoHandler はTodo管理のHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface) *TodoHandler {
	return &TodoHandler{service: service}
}

// createTodoRequest はTodo作成リクエストのボディ。
type createTodoRequest struct {
	Text string `json:"text"`
}

// updateTodoRequest はTodo更新リクエストのボディ。
// textとcompleted以外のフィールドは無視する。
// completedはJSONの真偽値trueのみを完了として扱うため、生の値のまま受け取る。
type updateTodoRequest struct {
	Text      *string         `json:"text"`
	Completed json.RawMessage `json:"completed"`
}

// todoResponse はTodoのAPIレスポンス。
type todoResponse struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Completed   bool   `json:"completed"`
	CompletedAt *int64 `json:"completedAt"`
	Creator     string `json:"creator"`
}

// todoEnvelope は単一Todoを返すレスポンス。
type todoEnvelope struct {
	Todo todoResponse `json:"todo"`
}

// todoListResponse はTodo一覧のレスポンス。
type todoListResponse struct {
	Todos []todoResponse `json:"todos"`
}

var jsonTrue = []byte("true")

func toTodoResponse(t *model.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		Text:        t.Text,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		Creator:     t.UserID,
	}
}

// Create はTodoを作成する。
// POST /todos
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createTodoRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), user.ID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTodoResponse(created))
}

// List は認証済みユーザーのTodo一覧を返す。
// GET /todos
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	todos, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := todoListResponse{Todos: make([]todoResponse, len(todos))}
	for i, t := range todos {
		resp.Todos[i] = toTodoResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は指定IDのTodoを返す。
// GET /todos/{id}
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	found, err := h.service.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todoEnvelope{Todo: toTodoResponse(found)})
}

// Update はTodoのテキストと完了状態を更新する。
// completedがtrueでない場合は未完了に戻す。
// PATCH /todos/{id}
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateTodoRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	input := todo.UpdateInput{
		Text:      req.Text,
		Completed: bytes.Equal(bytes.TrimSpace(req.Completed), jsonTrue),
	}

	updated, err := h.service.Update(r.Context(), user.ID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todoEnvelope{Todo: toTodoResponse(updated)})
}

// Delete はTodoを削除し、削除したTodoを返す。
// DELETE /todos/{id}
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	deleted, err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todoEnvelope{Todo: toTodoResponse(deleted)})
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/todo"
)

const testTodoID = "5f0c2a1b-8d3e-4c7f-9b6a-1e2d3c4b5a69"

// --- POST /todos テスト ---

func TestTodoHandler_Create_Success(t *testing.T) {
	svc := &mockTodoService{
		createFn: func(ctx context.Context, userID, text string) (*model.Todo, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return &model.Todo{ID: testTodoID, UserID: userID, Text: text}, nil
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"text":"Test todo text"}`))
	req = withUser(req, "user-1", "token-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["text"] != "Test todo text" {
		t.Errorf("text = %v, want %q", resp["text"], "Test todo text")
	}
	if resp["completed"] != false {
		t.Errorf("completed = %v, want false", resp["completed"])
	}
	if v, ok := resp["completedAt"]; !ok || v != nil {
		t.Errorf("completedAt = %v (present=%v), want null", v, ok)
	}
	if resp["creator"] != "user-1" {
		t.Errorf("creator = %v, want %q", resp["creator"], "user-1")
	}
}

func TestTodoHandler_Create_ValidationError(t *testing.T) {
	svc := &mockTodoService{
		createFn: func(ctx context.Context, userID, text string) (*model.Todo, error) {
			return nil, model.NewValidationError("text", "テキストは必須です")
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{}`))
	req = withUser(req, "user-1", "token-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeValidation)
	}
}

func TestTodoHandler_Create_NoUser_ReturnsUnauthorized(t *testing.T) {
	h := NewTodoHandler(&mockTodoService{})

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"text":"x"}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- GET /todos テスト ---

func TestTodoHandler_List_WrapsInTodos(t *testing.T) {
	svc := &mockTodoService{
		listFn: func(ctx context.Context, userID string) ([]*model.Todo, error) {
			return []*model.Todo{
				{ID: "a", UserID: userID, Text: "first"},
				{ID: "b", UserID: userID, Text: "second", Completed: true, CompletedAt: int64Ptr(333)},
			}, nil
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req = withUser(req, "user-1", "token-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp todoListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Todos) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(resp.Todos))
	}
	if resp.Todos[1].CompletedAt == nil || *resp.Todos[1].CompletedAt != 333 {
		t.Errorf("completedAt = %v, want 333", resp.Todos[1].CompletedAt)
	}
}

func TestTodoHandler_List_EmptyIsArray(t *testing.T) {
	svc := &mockTodoService{
		listFn: func(ctx context.Context, userID string) ([]*model.Todo, error) {
			return []*model.Todo{}, nil
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req = withUser(req, "user-1", "token-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if got := strings.TrimSpace(w.Body.String()); got != `{"todos":[]}` {
		t.Errorf("body = %s, want %s", got, `{"todos":[]}`)
	}
}

func TestTodoHandler_List_StoreError(t *testing.T) {
	svc := &mockTodoService{
		listFn: func(ctx context.Context, userID string) ([]*model.Todo, error) {
			return nil, errors.New("query failed")
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req = withUser(req, "user-1", "token-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /todos/{id} テスト ---

func TestTodoHandler_Get_Success(t *testing.T) {
	svc := &mockTodoService{
		getFn: func(ctx context.Context, userID, id string) (*model.Todo, error) {
			if id != testTodoID {
				t.Errorf("id = %q, want %q", id, testTodoID)
			}
			return &model.Todo{ID: id, UserID: userID, Text: "found"}, nil
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/todos/"+testTodoID, nil)
	req = withUser(req, "user-1", "token-1")
	req = withChiURLParam(req, "id", testTodoID)
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp todoEnvelope
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Todo.Text != "found" {
		t.Errorf("text = %q, want %q", resp.Todo.Text, "found")
	}
}

func TestTodoHandler_Get_NotFound(t *testing.T) {
	svc := &mockTodoService{
		getFn: func(ctx context.Context, userID, id string) (*model.Todo, error) {
			return nil, model.NewTodoNotFoundError(id)
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/todos/123", nil)
	req = withUser(req, "user-1", "token-1")
	req = withChiURLParam(req, "id", "123")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeTodoNotFound {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeTodoNotFound)
	}
}

// --- PATCH /todos/{id} テスト ---

func TestTodoHandler_Update_CompletedDetection(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantCompleted bool
		wantText      *string
	}{
		{"literal true", `{"completed":true}`, true, nil},
		{"literal false", `{"completed":false}`, false, nil},
		{"absent", `{"text":"new"}`, false, strPtrForTest("new")},
		{"string true", `{"completed":"true"}`, false, nil},
		{"number", `{"completed":1}`, false, nil},
		{"null", `{"completed":null}`, false, nil},
		{"text and true", `{"text":"t","completed":true}`, true, strPtrForTest("t")},
		{"unknown fields ignored", `{"completed":true,"completedAt":5,"creator":"x"}`, true, nil},
		{"empty body", ``, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got todo.UpdateInput
			svc := &mockTodoService{
				updateFn: func(ctx context.Context, userID, id string, input todo.UpdateInput) (*model.Todo, error) {
					got = input
					return &model.Todo{ID: id, UserID: userID, Text: "t"}, nil
				},
			}
			h := NewTodoHandler(svc)

			req := httptest.NewRequest(http.MethodPatch, "/todos/"+testTodoID, strings.NewReader(tt.body))
			req = withUser(req, "user-1", "token-1")
			req = withChiURLParam(req, "id", testTodoID)
			w := httptest.NewRecorder()

			h.Update(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if got.Completed != tt.wantCompleted {
				t.Errorf("Completed = %v, want %v", got.Completed, tt.wantCompleted)
			}
			switch {
			case tt.wantText == nil && got.Text != nil:
				t.Errorf("Text = %q, want nil", *got.Text)
			case tt.wantText != nil && (got.Text == nil || *got.Text != *tt.wantText):
				t.Errorf("Text = %v, want %q", got.Text, *tt.wantText)
			}
		})
	}
}

func TestTodoHandler_Update_ReturnsEnvelope(t *testing.T) {
	svc := &mockTodoService{
		updateFn: func(ctx context.Context, userID, id string, input todo.UpdateInput) (*model.Todo, error) {
			return &model.Todo{ID: id, UserID: userID, Text: "done", Completed: true, CompletedAt: int64Ptr(1700000000000)}, nil
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/todos/"+testTodoID, strings.NewReader(`{"completed":true}`))
	req = withUser(req, "user-1", "token-1")
	req = withChiURLParam(req, "id", testTodoID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	var resp todoEnvelope
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Todo.Completed || resp.Todo.CompletedAt == nil || *resp.Todo.CompletedAt != 1700000000000 {
		t.Errorf("unexpected todo: %+v", resp.Todo)
	}
}

func TestTodoHandler_Update_InvalidTextType(t *testing.T) {
	h := NewTodoHandler(&mockTodoService{})

	req := httptest.NewRequest(http.MethodPatch, "/todos/"+testTodoID, strings.NewReader(`{"text":5}`))
	req = withUser(req, "user-1", "token-1")
	req = withChiURLParam(req, "id", testTodoID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTodoHandler_Update_NotFound(t *testing.T) {
	svc := &mockTodoService{
		updateFn: func(ctx context.Context, userID, id string, input todo.UpdateInput) (*model.Todo, error) {
			return nil, model.NewTodoNotFoundError(id)
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/todos/"+testTodoID, strings.NewReader(`{"completed":true}`))
	req = withUser(req, "user-2", "token-2")
	req = withChiURLParam(req, "id", testTodoID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- DELETE /todos/{id} テスト ---

func TestTodoHandler_Delete_ReturnsRemovedTodo(t *testing.T) {
	svc := &mockTodoService{
		deleteFn: func(ctx context.Context, userID, id string) (*model.Todo, error) {
			return &model.Todo{ID: id, UserID: userID, Text: "gone"}, nil
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/todos/"+testTodoID, nil)
	req = withUser(req, "user-1", "token-1")
	req = withChiURLParam(req, "id", testTodoID)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp todoEnvelope
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Todo.ID != testTodoID || resp.Todo.Text != "gone" {
		t.Errorf("unexpected todo: %+v", resp.Todo)
	}
}

func TestTodoHandler_Delete_NotFound(t *testing.T) {
	svc := &mockTodoService{
		deleteFn: func(ctx context.Context, userID, id string) (*model.Todo, error) {
			return nil, model.NewTodoNotFoundError(id)
		},
	}
	h := NewTodoHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/todos/"+testTodoID, nil)
	req = withUser(req, "user-1", "token-1")
	req = withChiURLParam(req, "id", testTodoID)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- エラーマッピング ---

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{model.ErrCodeValidation, http.StatusBadRequest},
		{model.ErrCodeInvalidRequest, http.StatusBadRequest},
		{model.ErrCodeAuthFailed, http.StatusBadRequest},
		{model.ErrCodeStoreError, http.StatusBadRequest},
		{model.ErrCodeUnauthorized, http.StatusUnauthorized},
		{model.ErrCodeTodoNotFound, http.StatusNotFound},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(&model.APIError{Code: tt.code}); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

// handleServiceErrorはミドルウェアと同じ統一エラーフォーマットで書き込むこと
func TestHandleServiceError_UsesSharedErrorFormat(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   middleware.ErrorResponseBody
	}{
		{
			name:       "api error",
			err:        model.NewTodoNotFoundError(testTodoID),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store error",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusBadRequest,
			wantBody: middleware.ErrorResponseBody{
				Code:     model.ErrCodeStoreError,
				Message:  "connection reset",
				Category: "system",
				Action:   "しばらく待ってから再度お試しください。",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleServiceError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			want := tt.wantBody
			var apiErr *model.APIError
			if errors.As(tt.err, &apiErr) {
				expected := httptest.NewRecorder()
				middleware.WriteErrorResponse(expected, tt.wantStatus, apiErr)
				if w.Body.String() != expected.Body.String() {
					t.Errorf("body = %s, want %s", w.Body.String(), expected.Body.String())
				}
				return
			}

			var got middleware.ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if got != want {
				t.Errorf("body = %+v, want %+v", got, want)
			}
		})
	}
}

func strPtrForTest(s string) *string { return &s }

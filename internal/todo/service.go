// Package todo はユーザーごとのTodo管理機能を提供する。
package todo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/todoman/internal/metrics"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// UpdateInput はUpdateで受け付ける変更内容。
// Textがnilの場合は既存の値を維持する。
// Completedがfalseの場合は常に未完了に戻し、完了時刻をクリアする。
type UpdateInput struct {
	Text      *string
	Completed bool
}

// TodoService はTodoの作成・取得・更新・削除を行うサービス。
// すべての操作は所有者IDで絞り込まれ、他ユーザーのTodoは存在しないものとして扱う。
type TodoService struct {
	todoRepo repository.TodoRepository
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewTodoService はTodoServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewTodoService(todoRepo repository.TodoRepository, collector metrics.MetricsCollector) *TodoService {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &TodoService{
		todoRepo: todoRepo,
		metrics:  collector,
		now:      time.Now,
	}
}

// Create は未完了のTodoを作成する。
func (s *TodoService) Create(ctx context.Context, userID, text string) (*model.Todo, error) {
	text, err := normalizeText(text)
	if err != nil {
		return nil, err
	}

	now := s.now()
	todo := &model.Todo{
		ID:        uuid.New().String(),
		UserID:    userID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	todo.MarkIncomplete()

	if err := s.todoRepo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	s.metrics.RecordTodoMutation("create")
	return todo, nil
}

// List はユーザーのTodoを作成順に返す。0件の場合も空スライスを返す。
func (s *TodoService) List(ctx context.Context, userID string) ([]*model.Todo, error) {
	todos, err := s.todoRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	if todos == nil {
		todos = []*model.Todo{}
	}
	return todos, nil
}

// Get は所有者が一致するTodoを返す。
func (s *TodoService) Get(ctx context.Context, userID, id string) (*model.Todo, error) {
	canonical, ok := canonicalID(id)
	if !ok {
		return nil, model.NewTodoNotFoundError(id)
	}

	todo, err := s.todoRepo.FindByIDAndUserID(ctx, canonical, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(id)
	}
	return todo, nil
}

// Update は所有者が一致するTodoのテキストと完了状態を更新する。
// 完了にする場合はcompletedAtに現在時刻（ミリ秒）を記録する。
func (s *TodoService) Update(ctx context.Context, userID, id string, input UpdateInput) (*model.Todo, error) {
	canonical, ok := canonicalID(id)
	if !ok {
		return nil, model.NewTodoNotFoundError(id)
	}

	update := repository.TodoUpdate{}
	if input.Text != nil {
		text, err := normalizeText(*input.Text)
		if err != nil {
			return nil, err
		}
		update.Text = &text
	}

	state := model.Todo{}
	if input.Completed {
		state.MarkCompleted(s.now())
	} else {
		state.MarkIncomplete()
	}
	update.Completed = state.Completed
	update.CompletedAt = state.CompletedAt

	todo, err := s.todoRepo.UpdateByIDAndUserID(ctx, canonical, userID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(id)
	}

	s.metrics.RecordTodoMutation("update")
	return todo, nil
}

// Delete は所有者が一致するTodoを削除し、削除したTodoを返す。
func (s *TodoService) Delete(ctx context.Context, userID, id string) (*model.Todo, error) {
	canonical, ok := canonicalID(id)
	if !ok {
		return nil, model.NewTodoNotFoundError(id)
	}

	todo, err := s.todoRepo.DeleteByIDAndUserID(ctx, canonical, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete todo: %w", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(id)
	}

	s.metrics.RecordTodoMutation("delete")
	return todo, nil
}

// normalizeText は前後の空白を除去し、空文字列を拒否する。
func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", model.NewValidationError("text", "テキストは必須です")
	}
	return text, nil
}

// canonicalID はIDが標準形式（36文字・ハイフン区切り）のUUIDであれば小文字の正規形を返す。
// urn:uuid: や波括弧付きなどの形式はDBに問い合わせず未検出として扱う。
func canonicalID(id string) (string, bool) {
	if len(id) != 36 {
		return "", false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// Package memory はリポジトリインターフェースのインメモリ実装を提供する。
// PostgreSQL実装と同じ所有者・一意性の規則に従う。テスト専用で、本番コードからは使わない。
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// Store はユーザー・トークン・Todoを保持するインメモリストア。
// UserRepo・TokenRepo・TodoRepoは同じStoreを共有する。
type Store struct {
	mu     sync.Mutex
	users  map[string]*model.User
	tokens map[string][]model.AuthToken
	todos  []*model.Todo
	now    func() time.Time
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		users:  make(map[string]*model.User),
		tokens: make(map[string][]model.AuthToken),
		now:    time.Now,
	}
}

// Users はUserRepositoryを返す。
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Tokens はTokenRepositoryを返す。
func (s *Store) Tokens() *TokenRepo { return &TokenRepo{s: s} }

// Todos はTodoRepositoryを返す。
func (s *Store) Todos() *TodoRepo { return &TodoRepo{s: s} }

// userCopy はトークン一覧を含むユーザーのコピーを返す。呼び出し側でロックを保持すること。
func (s *Store) userCopy(u *model.User) *model.User {
	c := *u
	c.Tokens = append([]model.AuthToken{}, s.tokens[u.ID]...)
	return &c
}

func todoCopy(t *model.Todo) *model.Todo {
	c := *t
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

// UserRepo はUserRepositoryのインメモリ実装。
type UserRepo struct{ s *Store }

var _ repository.UserRepository = (*UserRepo)(nil)

// FindByID は指定IDのユーザーを取得する。
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return r.s.userCopy(u), nil
}

// FindByEmail はメールアドレスでユーザーを検索する。
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return r.s.userCopy(u), nil
		}
	}
	return nil, nil
}

// FindByToken はトークンを保持しているユーザーのみを返す。
func (r *UserRepo) FindByToken(ctx context.Context, userID, token, access string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, nil
	}
	c := r.s.userCopy(u)
	if !c.HasToken(access, token) {
		return nil, nil
	}
	return c, nil
}

// CreateWithToken はユーザーと最初のトークンを保存する。
func (r *UserRepo) CreateWithToken(ctx context.Context, user *model.User, token model.AuthToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	stored := *user
	stored.Tokens = nil
	r.s.users[user.ID] = &stored
	r.s.tokens[user.ID] = []model.AuthToken{token}
	return nil
}

// TokenRepo はTokenRepositoryのインメモリ実装。
type TokenRepo struct{ s *Store }

var _ repository.TokenRepository = (*TokenRepo)(nil)

// Add はトークン一覧の末尾に追加する。
func (r *TokenRepo) Add(ctx context.Context, userID string, token model.AuthToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tokens[userID] = append(r.s.tokens[userID], token)
	return nil
}

// Remove は一致するトークンを削除する。存在しない場合は何もしない。
func (r *TokenRepo) Remove(ctx context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := make([]model.AuthToken, 0, len(r.s.tokens[userID]))
	for _, t := range r.s.tokens[userID] {
		if t.Token != token {
			kept = append(kept, t)
		}
	}
	r.s.tokens[userID] = kept
	return nil
}

// ListByUserID はトークン一覧を発行順に返す。
func (r *TokenRepo) ListByUserID(ctx context.Context, userID string) ([]model.AuthToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return append([]model.AuthToken{}, r.s.tokens[userID]...), nil
}

// TodoRepo はTodoRepositoryのインメモリ実装。
type TodoRepo struct{ s *Store }

var _ repository.TodoRepository = (*TodoRepo)(nil)

// Create はTodoを作成する。IDと作成日時が未設定の場合は補う。
func (r *TodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	if todo.CreatedAt.IsZero() {
		now := r.s.now()
		todo.CreatedAt = now
		todo.UpdatedAt = now
	}
	r.s.todos = append(r.s.todos, todoCopy(todo))
	return nil
}

// ListByUserID は所有者のTodoを作成順に返す。
func (r *TodoRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	todos := []*model.Todo{}
	for _, t := range r.s.todos {
		if t.UserID == userID {
			todos = append(todos, todoCopy(t))
		}
	}
	return todos, nil
}

// FindByIDAndUserID は所有者が一致するTodoを返す。
func (r *TodoRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if i := r.indexOf(id, userID); i >= 0 {
		return todoCopy(r.s.todos[i]), nil
	}
	return nil, nil
}

// UpdateByIDAndUserID は所有者が一致するTodoを更新する。
func (r *TodoRepo) UpdateByIDAndUserID(ctx context.Context, id, userID string, update repository.TodoUpdate) (*model.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.indexOf(id, userID)
	if i < 0 {
		return nil, nil
	}

	t := r.s.todos[i]
	if update.Text != nil {
		t.Text = *update.Text
	}
	t.Completed = update.Completed
	t.CompletedAt = nil
	if update.CompletedAt != nil {
		v := *update.CompletedAt
		t.CompletedAt = &v
	}
	t.UpdatedAt = r.s.now()
	return todoCopy(t), nil
}

// DeleteByIDAndUserID は所有者が一致するTodoを削除する。
func (r *TodoRepo) DeleteByIDAndUserID(ctx context.Context, id, userID string) (*model.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.indexOf(id, userID)
	if i < 0 {
		return nil, nil
	}

	removed := r.s.todos[i]
	r.s.todos = append(r.s.todos[:i], r.s.todos[i+1:]...)
	return removed, nil
}

// indexOf はIDと所有者が一致するTodoの位置を返す。呼び出し側でロックを保持すること。
func (r *TodoRepo) indexOf(id, userID string) int {
	for i, t := range r.s.todos {
		if t.ID == id && t.UserID == userID {
			return i
		}
	}
	return -1
}

// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/todoman/internal/model"
)

// ErrDuplicateEmail は登録済みのメールアドレスでユーザーを作成しようとした場合のエラー。
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository はユーザーデータの永続化インターフェース。
// 取得系メソッドは発行済みトークン（Tokens）も読み込んで返す。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByToken はuserIDのユーザーが指定のaccess・tokenの組を保持している場合のみ返す。
	// 失効済みトークンや他ユーザーのトークンではnilを返す。
	FindByToken(ctx context.Context, userID, token, access string) (*model.User, error)

	// CreateWithToken はユーザーと最初のトークンを同一トランザクションで作成する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	CreateWithToken(ctx context.Context, user *model.User, token model.AuthToken) error
}

// TokenRepository は発行済みトークンの永続化インターフェース。
type TokenRepository interface {
	// Add はユーザーのトークン一覧の末尾にトークンを追加する。
	Add(ctx context.Context, userID string, token model.AuthToken) error

	// Remove はユーザーのトークンを削除する。存在しない場合もエラーにしない。
	Remove(ctx context.Context, userID, token string) error

	// ListByUserID はユーザーのトークン一覧を発行順に返す。
	ListByUserID(ctx context.Context, userID string) ([]model.AuthToken, error)
}

// TodoUpdate はTodo更新時に書き込む値。
// Textがnilの場合は既存の値を維持する。
type TodoUpdate struct {
	Text        *string
	Completed   bool
	CompletedAt *int64
}

// TodoRepository はTodoデータの永続化インターフェース。
// すべての取得・更新・削除はIDと所有者IDの両方で絞り込む。
type TodoRepository interface {
	// Create はTodoを作成する。
	Create(ctx context.Context, todo *model.Todo) error

	// ListByUserID はユーザーのTodo一覧を作成順に返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Todo, error)

	// FindByIDAndUserID は所有者が一致するTodoを取得する。見つからない場合はnilを返す。
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Todo, error)

	// UpdateByIDAndUserID は所有者が一致するTodoを1文で更新し、更新後の値を返す。
	// 見つからない場合はnilを返す。
	UpdateByIDAndUserID(ctx context.Context, id, userID string, update TodoUpdate) (*model.Todo, error)

	// DeleteByIDAndUserID は所有者が一致するTodoを1文で削除し、削除した値を返す。
	// 見つからない場合はnilを返す。
	DeleteByIDAndUserID(ctx context.Context, id, userID string) (*model.Todo, error)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/todoman/internal/model"
)

// PostgresTodoRepo はPostgreSQLを使用したTodoリポジトリ。
type PostgresTodoRepo struct {
	db *sql.DB
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
func NewPostgresTodoRepo(db *sql.DB) *PostgresTodoRepo {
	return &PostgresTodoRepo{db: db}
}

const todoColumns = `id, user_id, text, completed, completed_at, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(s rowScanner) (*model.Todo, error) {
	todo := &model.Todo{}
	var completedAt sql.NullInt64
	if err := s.Scan(
		&todo.ID, &todo.UserID, &todo.Text, &todo.Completed, &completedAt,
		&todo.CreatedAt, &todo.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		ms := completedAt.Int64
		todo.CompletedAt = &ms
	}
	return todo, nil
}

// Create はTodoを作成する。
func (r *PostgresTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (id, user_id, text, completed, completed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		todo.ID, todo.UserID, todo.Text, todo.Completed, nullableInt64(todo.CompletedAt),
		todo.CreatedAt, todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのTodo一覧を作成順に返す。
func (r *PostgresTodoRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := []*model.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}

	return todos, nil
}

// FindByIDAndUserID は所有者が一致するTodoを取得する。見つからない場合はnilを返す。
func (r *PostgresTodoRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find todo: %w", err)
	}
	return todo, nil
}

// UpdateByIDAndUserID は所有者が一致するTodoを1文で更新し、更新後の値を返す。
// 見つからない場合はnilを返す。
func (r *PostgresTodoRepo) UpdateByIDAndUserID(ctx context.Context, id, userID string, update TodoUpdate) (*model.Todo, error) {
	var text sql.NullString
	if update.Text != nil {
		text = sql.NullString{String: *update.Text, Valid: true}
	}

	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`UPDATE todos
		 SET text = COALESCE($3, text), completed = $4, completed_at = $5, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+todoColumns,
		id, userID, text, update.Completed, nullableInt64(update.CompletedAt),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return todo, nil
}

// DeleteByIDAndUserID は所有者が一致するTodoを1文で削除し、削除した値を返す。
// 見つからない場合はnilを返す。
func (r *PostgresTodoRepo) DeleteByIDAndUserID(ctx context.Context, id, userID string) (*model.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2 RETURNING `+todoColumns,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete todo: %w", err)
	}
	return todo, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// compile-time interface check
var _ TodoRepository = (*PostgresTodoRepo)(nil)

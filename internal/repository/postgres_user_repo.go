package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/todoman/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db     *sql.DB
	tokens *PostgresTokenRepo
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db, tokens: NewPostgresTokenRepo(db)}
}

const selectUserColumns = `SELECT u.id, u.email, u.password_hash, u.created_at, u.updated_at FROM users u`

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE u.id = $1`, id)
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE u.email = $1`, email)
}

// FindByToken はuserIDのユーザーが指定のaccess・tokenの組を保持している場合のみ返す。
func (r *PostgresUserRepo) FindByToken(ctx context.Context, userID, token, access string) (*model.User, error) {
	return r.findOne(ctx,
		selectUserColumns+`
		 JOIN user_tokens t ON t.user_id = u.id
		 WHERE u.id = $1 AND t.token = $2 AND t.access = $3`,
		userID, token, access,
	)
}

// CreateWithToken はユーザーと最初のトークンを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithToken(ctx context.Context, user *model.User, token model.AuthToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err, "users_email_key") {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	// トークンを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_tokens (user_id, access, token) VALUES ($1, $2, $3)`,
		user.ID, token.Access, token.Token,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.Tokens = append(user.Tokens, token)
	return nil
}

// findOne は1件のユーザーを取得し、トークン一覧を読み込む。
func (r *PostgresUserRepo) findOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	tokens, err := r.tokens.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Tokens = tokens

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/todoman/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したトークンリポジトリ。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// Add はユーザーのトークン一覧の末尾にトークンを追加する。
func (r *PostgresTokenRepo) Add(ctx context.Context, userID string, token model.AuthToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_tokens (user_id, access, token) VALUES ($1, $2, $3)`,
		userID, token.Access, token.Token,
	)
	if err != nil {
		return fmt.Errorf("failed to add token: %w", err)
	}
	return nil
}

// Remove はユーザーのトークンを削除する。存在しない場合もエラーにしない。
func (r *PostgresTokenRepo) Remove(ctx context.Context, userID, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE user_id = $1 AND token = $2`,
		userID, token,
	)
	if err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのトークン一覧を発行順に返す。
func (r *PostgresTokenRepo) ListByUserID(ctx context.Context, userID string) ([]model.AuthToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT access, token FROM user_tokens WHERE user_id = $1 ORDER BY seq`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	tokens := []model.AuthToken{}
	for rows.Next() {
		var t model.AuthToken
		if err := rows.Scan(&t.Access, &t.Token); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}

	return tokens, nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)

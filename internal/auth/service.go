// Package auth はユーザー登録・ログインと認証トークンの発行・検証・失効を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/todoman/internal/metrics"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int // パスワードハッシュのコスト
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	signer    *TokenSigner
	metrics   metrics.MetricsCollector
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	signer *TokenSigner,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		signer:    signer,
		metrics:   collector,
		config:    config,
		now:       time.Now,
	}
}

// Register は新しいユーザーを作成し、最初の認証トークンを発行する。
// ユーザーとトークンは同一トランザクションで保存されるため、
// トークン発行に失敗した場合にユーザーだけが残ることはない。
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, string, error) {
	email = NormalizeEmail(email)
	if err := ValidateCredentials(email, password); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, "", model.NewValidationError("password", "パスワードが長すぎます")
		}
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	token, err := s.signer.Sign(user.ID, model.AccessAuth)
	if err != nil {
		return nil, "", err
	}
	authToken := model.AuthToken{Access: model.AccessAuth, Token: token}

	if err := s.userRepo.CreateWithToken(ctx, user, authToken); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", model.NewValidationError("email", email+" は既に登録されています")
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}
	user.Tokens = append(user.Tokens, authToken)

	s.metrics.RecordTokenIssued()
	slog.Info("user registered", slog.String("user_id", user.ID))

	return user, token, nil
}

// Login はメールアドレスとパスワードを検証し、新しい認証トークンを発行する。
// メールアドレスの不在とパスワード不一致は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.RecordAuthFailure("bad_credentials")
		return nil, "", model.NewAuthFailedError()
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		s.metrics.RecordAuthFailure("bad_credentials")
		return nil, "", model.NewAuthFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.RecordAuthFailure("bad_credentials")
		return nil, "", model.NewAuthFailedError()
	}

	token, err := s.Issue(ctx, user)
	if err != nil {
		return nil, "", err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, token, nil
}

// Issue はユーザーに新しい認証トークンを発行し、トークン一覧の末尾に追加する。
// 既存のトークンは有効なまま残る。
func (s *Service) Issue(ctx context.Context, user *model.User) (string, error) {
	token, err := s.signer.Sign(user.ID, model.AccessAuth)
	if err != nil {
		return "", err
	}

	authToken := model.AuthToken{Access: model.AccessAuth, Token: token}
	if err := s.tokenRepo.Add(ctx, user.ID, authToken); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}
	user.Tokens = append(user.Tokens, authToken)

	s.metrics.RecordTokenIssued()
	return token, nil
}

// Verify はトークンを検証し、対応するユーザーを返す。
// 署名が正しくても、ユーザーのトークン一覧に含まれない場合は無効とする。
func (s *Service) Verify(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		s.metrics.RecordAuthFailure("invalid_token")
		return nil, model.NewUnauthorizedError()
	}
	if claims.Access != model.AccessAuth {
		s.metrics.RecordAuthFailure("invalid_token")
		return nil, model.NewUnauthorizedError()
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		s.metrics.RecordAuthFailure("invalid_token")
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByToken(ctx, claims.UserID, token, model.AccessAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by token: %w", err)
	}
	if user == nil {
		s.metrics.RecordAuthFailure("revoked_token")
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// Revoke はユーザーのトークン一覧から指定のトークンを取り除く。
// 既に存在しないトークンを指定してもエラーにはならない。
func (s *Service) Revoke(ctx context.Context, user *model.User, token string) error {
	if err := s.tokenRepo.Remove(ctx, user.ID, token); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	user.RemoveToken(token)

	s.metrics.RecordTokenRevoked()
	slog.Info("token revoked", slog.String("user_id", user.ID))
	return nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken は署名・形式が不正なトークンを表す。
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims は認証トークンに埋め込むクレーム。
// idはユーザーID、accessはトークンの用途（"auth"）。
type TokenClaims struct {
	UserID string `json:"id"`
	Access string `json:"access"`
	jwt.RegisteredClaims
}

// TokenSigner はHS256で認証トークンを署名・検証する。
// 有効期限は設けず、失効はストア側のトークン一覧で管理する。
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner はTokenSignerを生成する。
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

// Sign はユーザーIDとaccessを埋め込んだトークンを生成する。
// 発行ごとにjtiを付与するため、同一ユーザーでも毎回異なる文字列になる。
func (s *TokenSigner) Sign(userID, access string) (string, error) {
	claims := TokenClaims{
		UserID: userID,
		Access: access,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Parse は署名と形式のみを検証し、クレームを返す。
// ストア上で失効していないかはここでは確認しない。
func (s *TokenSigner) Parse(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || claims.Access == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

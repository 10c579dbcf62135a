// Package model はドメインモデルを定義する。
package model

import "time"

// AccessAuth は認証トークンに付与するアクセス種別。
// 現状は "auth" のみ。
const AccessAuth = "auth"

// User はサービス利用ユーザーを表す。
// PasswordHashとTokensはクライアントに返さない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Tokens       []AuthToken
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthToken はユーザーに発行済みのトークンを表す。
// ログインごとに1件追加され、ログアウトで1件削除される。
type AuthToken struct {
	Access string
	Token  string
}

// HasToken は指定アクセス種別・トークン文字列の組を保持しているかを返す。
func (u *User) HasToken(access, token string) bool {
	for _, t := range u.Tokens {
		if t.Access == access && t.Token == token {
			return true
		}
	}
	return false
}

// RemoveToken は一致するトークンを取り除く。存在しない場合は何もしない。
func (u *User) RemoveToken(token string) {
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t.Token != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
}

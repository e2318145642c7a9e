// Package model はドメインモデルを定義する。
package model

import "time"

// Account はサービス利用ユーザーのアカウントを表す。
// PasswordHashはbcryptハッシュのみを保持し、平文パスワードは保存しない。
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicAccount はAPIレスポンスに公開するアカウント情報。
// パスワードハッシュのフィールドを持たない。
type PublicAccount struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// Public はアカウントの公開用射影を返す。
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Avatar:   a.Avatar,
	}
}

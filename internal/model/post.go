// Package model はドメインモデルを定義する。
package model

import "time"

// Post はユーザーの投稿を表す。
// Imageはdata URIまたはhttp(s)のURLで、空の場合は画像なし。
type Post struct {
	ID        string
	Title     string
	Content   string
	Image     string
	AuthorID  string
	Author    *PublicAccount // 一覧・詳細取得時に結合される
	Likes     []string       // いいねしたユーザーIDの一覧
	Comments  []Comment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment は投稿へのコメントを表す。
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Username  string // usersテーブルとJOINして取得される
	Text      string
	CreatedAt time.Time
}

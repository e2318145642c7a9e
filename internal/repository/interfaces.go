// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/miniblog/internal/model"
)

// ErrDuplicate は一意制約違反で書き込みが拒否された場合のエラー。
// usersテーブルではusername・emailのユニークインデックスが重複登録の最終判定となる。
var ErrDuplicate = errors.New("duplicate key")

// ErrAccountMissing は書き込みが参照するアカウントが存在しない場合のエラー。
// 削除済みアカウントのトークンで投稿・いいね・コメントした場合に返る。
var ErrAccountMissing = errors.New("referenced account does not exist")

// ErrPostMissing は書き込みが参照する投稿が存在しない場合のエラー。
var ErrPostMissing = errors.New("referenced post does not exist")

// UserRepository はアカウントデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByUsernameOrEmail はユーザー名またはメールアドレスが一致するアカウントを検索する。
	// 見つからない場合はnilを返す。
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.Account, error)

	// Create はアカウントを作成する。
	// username・emailの一意制約違反はErrDuplicateをラップして返す。
	Create(ctx context.Context, account *model.Account) error
}

// PostRepository は投稿データの永続化インターフェース。
// 取得系メソッドは投稿者情報・いいね・コメントを結合済みで返す。
type PostRepository interface {
	// List は全投稿をcreated_at降順で返す。
	List(ctx context.Context) ([]*model.Post, error)

	// ListByAuthor は指定ユーザーの投稿をcreated_at降順で返す。
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error)

	// ListLikedBy は指定ユーザーがいいねした投稿をcreated_at降順で返す。
	ListLikedBy(ctx context.Context, userID string) ([]*model.Post, error)

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は投稿を作成する。
	// 投稿者が存在しない場合はErrAccountMissingをラップして返す。
	Create(ctx context.Context, post *model.Post) error

	// Update は投稿のtitle、content、imageを上書き更新する。
	Update(ctx context.Context, post *model.Post) error

	// Delete は指定IDの投稿を削除する。いいねとコメントはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// ToggleLike はいいねが無ければ追加し、あれば取り消す。
	// 操作後にいいね済みかどうかと、いいね総数を返す。
	// 参照先が存在しない場合はErrAccountMissingまたはErrPostMissingをラップして返す。
	ToggleLike(ctx context.Context, postID, userID string) (liked bool, count int, err error)

	// AddComment はコメントを追加し、ユーザー名を結合したコメントを返す。
	// 参照先が存在しない場合はErrAccountMissingまたはErrPostMissingをラップして返す。
	AddComment(ctx context.Context, comment *model.Comment) (*model.Comment, error)
}

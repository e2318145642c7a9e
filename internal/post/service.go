// Package post は投稿・いいね・コメントのドメインロジックを提供する。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/repository"
	"github.com/hitoshi/miniblog/internal/security"
)

// CreateInput は投稿作成の入力。
type CreateInput struct {
	Title   string
	Content string
	Image   string
}

// UpdateInput は投稿更新の入力。
// Title・Contentが空の場合は既存の値を維持する。Imageはnilの場合のみ維持する。
type UpdateInput struct {
	Title   string
	Content string
	Image   *string
}

// CreatedRecorder は投稿作成の記録先。metrics.Collectorが実装する。
type CreatedRecorder interface {
	RecordPostCreated()
}

// LikeResult はいいね切り替え後の状態。
type LikeResult struct {
	Liked bool
	Likes int
}

// Service は投稿のサービス層。
type Service struct {
	postRepo  repository.PostRepository
	sanitizer security.Sanitizer
	recorder  CreatedRecorder
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(postRepo repository.PostRepository, sanitizer security.Sanitizer, recorder CreatedRecorder) *Service {
	return &Service{
		postRepo:  postRepo,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// List は全投稿を新しい順に返す。
func (s *Service) List(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return nonNil(posts), nil
}

// ListByAuthor は指定ユーザーの投稿を新しい順に返す。
func (s *Service) ListByAuthor(ctx context.Context, userID string) ([]*model.Post, error) {
	posts, err := s.postRepo.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの投稿一覧の取得に失敗しました: %w", err)
	}
	return nonNil(posts), nil
}

// ListLikedBy は指定ユーザーがいいねした投稿を新しい順に返す。
func (s *Service) ListLikedBy(ctx context.Context, userID string) ([]*model.Post, error) {
	posts, err := s.postRepo.ListLikedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("いいねした投稿一覧の取得に失敗しました: %w", err)
	}
	return nonNil(posts), nil
}

// Get は指定IDの投稿を返す。存在しない場合はPostNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, postID string) (*model.Post, error) {
	return s.find(ctx, postID)
}

// Create は投稿を作成し、投稿者情報を結合した投稿を返す。
func (s *Service) Create(ctx context.Context, authorID string, in CreateInput) (*model.Post, error) {
	title := s.sanitizer.Text(in.Title)
	content := s.sanitizer.Content(in.Content)
	if title == "" || content == "" {
		return nil, model.NewInvalidRequestError("title and content are required")
	}
	if !security.ValidImage(in.Image) {
		return nil, model.NewInvalidRequestError("image must be a data:image URI or an http(s) URL")
	}

	now := s.now().UTC()
	p := &model.Post{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		Image:     in.Image,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.postRepo.Create(ctx, p); err != nil {
		return nil, writeError(err, p.ID, "投稿の作成に失敗しました")
	}

	if s.recorder != nil {
		s.recorder.RecordPostCreated()
	}
	slog.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("user_id", authorID),
	)

	return s.find(ctx, p.ID)
}

// Update は投稿者本人の投稿を更新する。
// 投稿が存在しない場合はPostNotFound、投稿者以外の場合はForbiddenエラーを返す。
func (s *Service) Update(ctx context.Context, userID, postID string, in UpdateInput) (*model.Post, error) {
	p, err := s.findOwned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if title := s.sanitizer.Text(in.Title); title != "" {
		p.Title = title
	}
	if content := s.sanitizer.Content(in.Content); content != "" {
		p.Content = content
	}
	if in.Image != nil {
		if !security.ValidImage(*in.Image) {
			return nil, model.NewInvalidRequestError("image must be a data:image URI or an http(s) URL")
		}
		p.Image = *in.Image
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.postRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}
	return s.find(ctx, postID)
}

// Delete は投稿者本人の投稿を削除する。
func (s *Service) Delete(ctx context.Context, userID, postID string) error {
	if _, err := s.findOwned(ctx, userID, postID); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	slog.Info("post deleted",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
	)
	return nil
}

// ToggleLike はいいねが無ければ追加し、あれば取り消す。
func (s *Service) ToggleLike(ctx context.Context, userID, postID string) (*LikeResult, error) {
	if _, err := s.find(ctx, postID); err != nil {
		return nil, err
	}
	liked, count, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, writeError(err, postID, "いいねの切り替えに失敗しました")
	}
	return &LikeResult{Liked: liked, Likes: count}, nil
}

// AddComment は投稿にコメントを追加する。空のコメントはInvalidRequestエラーを返す。
func (s *Service) AddComment(ctx context.Context, userID, postID, text string) (*model.Comment, error) {
	text = s.sanitizer.Text(text)
	if text == "" {
		return nil, model.NewInvalidRequestError("comment text is required")
	}
	if _, err := s.find(ctx, postID); err != nil {
		return nil, err
	}

	c, err := s.postRepo.AddComment(ctx, &model.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, writeError(err, postID, "コメントの追加に失敗しました")
	}
	return c, nil
}

// find は投稿を取得する。UUID形式でないIDも存在しない投稿として扱う。
func (s *Service) find(ctx context.Context, postID string) (*model.Post, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	p, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return p, nil
}

func (s *Service) findOwned(ctx context.Context, userID, postID string) (*model.Post, error) {
	p, err := s.find(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != userID {
		return nil, model.NewForbiddenError()
	}
	return p, nil
}

// writeError は書き込み時の参照先欠落をAPIErrorに変換し、それ以外はmsgでラップする。
// 有効なトークンのままアカウントが削除された場合はUSER_NOT_FOUNDになる。
func writeError(err error, postID, msg string) error {
	switch {
	case errors.Is(err, repository.ErrAccountMissing):
		return model.NewUserNotFoundError()
	case errors.Is(err, repository.ErrPostMissing):
		return model.NewPostNotFoundError(postID)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func nonNil(posts []*model.Post) []*model.Post {
	if posts == nil {
		return []*model.Post{}
	}
	return posts
}

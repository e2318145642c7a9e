package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/miniblog/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
// いいねはpost_likes、コメントはcommentsテーブルに正規化して保持する。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// selectPostWithAuthor は投稿と投稿者の公開情報を結合して取得するクエリ。
const selectPostWithAuthor = `SELECT p.id, p.title, p.content, p.image, p.author_id, p.created_at, p.updated_at,
        u.id, u.username, u.email, u.avatar
 FROM posts p
 JOIN users u ON u.id = p.author_id`

// List は全投稿をcreated_at降順で返す。
func (r *PostgresPostRepo) List(ctx context.Context) ([]*model.Post, error) {
	return r.queryPosts(ctx, selectPostWithAuthor+` ORDER BY p.created_at DESC`)
}

// ListByAuthor は指定ユーザーの投稿をcreated_at降順で返す。
func (r *PostgresPostRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	return r.queryPosts(ctx,
		selectPostWithAuthor+` WHERE p.author_id = $1 ORDER BY p.created_at DESC`,
		authorID,
	)
}

// ListLikedBy は指定ユーザーがいいねした投稿をcreated_at降順で返す。
func (r *PostgresPostRepo) ListLikedBy(ctx context.Context, userID string) ([]*model.Post, error) {
	return r.queryPosts(ctx,
		selectPostWithAuthor+`
 WHERE EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $1)
 ORDER BY p.created_at DESC`,
		userID,
	)
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	posts, err := r.queryPosts(ctx, selectPostWithAuthor+` WHERE p.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return posts[0], nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, title, content, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID, post.AuthorID, post.Title, post.Content, post.Image, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		if missing := missingReference(err); missing != nil {
			return fmt.Errorf("failed to insert post: %w", missing)
		}
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// Update は投稿のtitle、content、imageを上書き更新する。
func (r *PostgresPostRepo) Update(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title = $2, content = $3, image = $4, updated_at = $5 WHERE id = $1`,
		post.ID, post.Title, post.Content, post.Image, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// Delete は指定IDの投稿を削除する。いいねとコメントはCASCADE削除される。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// ToggleLike はいいねが無ければ追加し、あれば取り消す。
// 削除と追加、件数取得を同一トランザクションで行う。
func (r *PostgresPostRepo) ToggleLike(ctx context.Context, postID, userID string) (bool, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
		postID, userID,
	)
	if err != nil {
		return false, 0, fmt.Errorf("failed to delete like: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	liked := removed == 0
	if liked {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO post_likes (post_id, user_id, created_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (post_id, user_id) DO NOTHING`,
			postID, userID, time.Now().UTC(),
		)
		if err != nil {
			if missing := missingReference(err); missing != nil {
				return false, 0, fmt.Errorf("failed to insert like: %w", missing)
			}
			return false, 0, fmt.Errorf("failed to insert like: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_likes WHERE post_id = $1`,
		postID,
	).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("failed to count likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return liked, count, nil
}

// AddComment はコメントを追加し、ユーザー名を結合したコメントを返す。
func (r *PostgresPostRepo) AddComment(ctx context.Context, comment *model.Comment) (*model.Comment, error) {
	c := &model.Comment{}
	err := r.db.QueryRowContext(ctx,
		`WITH inserted AS (
		   INSERT INTO comments (id, post_id, user_id, text, created_at)
		   VALUES ($1, $2, $3, $4, $5)
		   RETURNING id, post_id, user_id, text, created_at
		 )
		 SELECT i.id, i.post_id, i.user_id, u.username, i.text, i.created_at
		 FROM inserted i
		 JOIN users u ON u.id = i.user_id`,
		comment.ID, comment.PostID, comment.UserID, comment.Text, comment.CreatedAt,
	).Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt)
	if err != nil {
		if missing := missingReference(err); missing != nil {
			return nil, fmt.Errorf("failed to insert comment: %w", missing)
		}
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return c, nil
}

// queryPosts は投稿一覧を取得し、いいねとコメントを結合して返す。
func (r *PostgresPostRepo) queryPosts(ctx context.Context, query string, args ...any) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		p := &model.Post{Author: &model.PublicAccount{}}
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &p.Image, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
			&p.Author.ID, &p.Author.Username, &p.Author.Email, &p.Author.Avatar,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Likes = []string{}
		p.Comments = []model.Comment{}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	if len(posts) == 0 {
		return posts, nil
	}
	if err := r.attachLikesAndComments(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachLikesAndComments は投稿IDの集合に対するいいねとコメントを一括取得して各投稿に割り当てる。
func (r *PostgresPostRepo) attachLikesAndComments(ctx context.Context, posts []*model.Post) error {
	ids := make([]string, len(posts))
	byID := make(map[string]*model.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	likeRows, err := r.db.QueryContext(ctx,
		`SELECT post_id, user_id FROM post_likes
		 WHERE post_id = ANY($1::uuid[])
		 ORDER BY created_at`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query likes: %w", err)
	}
	defer likeRows.Close()

	for likeRows.Next() {
		var postID, userID string
		if err := likeRows.Scan(&postID, &userID); err != nil {
			return fmt.Errorf("failed to scan like: %w", err)
		}
		if p, ok := byID[postID]; ok {
			p.Likes = append(p.Likes, userID)
		}
	}
	if err := likeRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate likes: %w", err)
	}

	commentRows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.user_id, u.username, c.text, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.post_id = ANY($1::uuid[])
		 ORDER BY c.created_at`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query comments: %w", err)
	}
	defer commentRows.Close()

	for commentRows.Next() {
		var c model.Comment
		if err := commentRows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		if p, ok := byID[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	if err := commentRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate comments: %w", err)
	}

	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/post"
)

// --- モック定義 ---

type mockPostService struct {
	listFn         func(ctx context.Context) ([]*model.Post, error)
	listByAuthorFn func(ctx context.Context, userID string) ([]*model.Post, error)
	listLikedByFn  func(ctx context.Context, userID string) ([]*model.Post, error)
	getFn          func(ctx context.Context, postID string) (*model.Post, error)
	createFn       func(ctx context.Context, authorID string, in post.CreateInput) (*model.Post, error)
	updateFn       func(ctx context.Context, userID, postID string, in post.UpdateInput) (*model.Post, error)
	deleteFn       func(ctx context.Context, userID, postID string) error
	toggleLikeFn   func(ctx context.Context, userID, postID string) (*post.LikeResult, error)
	addCommentFn   func(ctx context.Context, userID, postID, text string) (*model.Comment, error)
}

func (m *mockPostService) List(ctx context.Context) ([]*model.Post, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPostService) ListByAuthor(ctx context.Context, userID string) ([]*model.Post, error) {
	if m.listByAuthorFn != nil {
		return m.listByAuthorFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockPostService) ListLikedBy(ctx context.Context, userID string) ([]*model.Post, error) {
	if m.listLikedByFn != nil {
		return m.listLikedByFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockPostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	if m.getFn != nil {
		return m.getFn(ctx, postID)
	}
	return nil, nil
}

func (m *mockPostService) Create(ctx context.Context, authorID string, in post.CreateInput) (*model.Post, error) {
	if m.createFn != nil {
		return m.createFn(ctx, authorID, in)
	}
	return nil, nil
}

func (m *mockPostService) Update(ctx context.Context, userID, postID string, in post.UpdateInput) (*model.Post, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, postID, in)
	}
	return nil, nil
}

func (m *mockPostService) Delete(ctx context.Context, userID, postID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, postID)
	}
	return nil
}

func (m *mockPostService) ToggleLike(ctx context.Context, userID, postID string) (*post.LikeResult, error) {
	if m.toggleLikeFn != nil {
		return m.toggleLikeFn(ctx, userID, postID)
	}
	return nil, nil
}

func (m *mockPostService) AddComment(ctx context.Context, userID, postID, text string) (*model.Comment, error) {
	if m.addCommentFn != nil {
		return m.addCommentFn(ctx, userID, postID, text)
	}
	return nil, nil
}

// --- ヘルパー ---

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func samplePost() *model.Post {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.Post{
		ID:       "post-1",
		Title:    "Hello",
		Content:  "<p>world</p>",
		AuthorID: "user-1",
		Author: &model.PublicAccount{
			ID:       "user-1",
			Username: "alice",
			Email:    "alice@x.com",
			Avatar:   "https://example.com/a.svg",
		},
		Likes: []string{"user-2"},
		Comments: []model.Comment{
			{ID: "c-1", PostID: "post-1", UserID: "user-2", Username: "bob", Text: "nice", CreatedAt: created},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// --- テスト ---

func TestPostHandler_List_ReturnsPosts(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context) ([]*model.Post, error) {
			return []*model.Post{samplePost()}, nil
		},
	}
	h := NewPostHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp postListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(resp.Posts))
	}
	p := resp.Posts[0]
	if p.Author == nil || p.Author.Username != "alice" {
		t.Errorf("expected author 'alice', got %+v", p.Author)
	}
	if len(p.Comments) != 1 || p.Comments[0].Username != "bob" {
		t.Errorf("expected comment by 'bob', got %+v", p.Comments)
	}
}

func TestPostHandler_List_AuthorEmailNotExposed(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context) ([]*model.Post, error) {
			return []*model.Post{samplePost()}, nil
		},
	}
	h := NewPostHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	if strings.Contains(rec.Body.String(), "alice@x.com") {
		t.Errorf("author email must not be exposed: %s", rec.Body.String())
	}
}

func TestPostHandler_List_EmptyIsJSONArray(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context) ([]*model.Post, error) {
			return []*model.Post{}, nil
		},
	}
	h := NewPostHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != `{"posts":[]}` {
		t.Errorf("expected empty posts array, got %s", got)
	}
}

func TestPostHandler_Get_NotFound_Returns404(t *testing.T) {
	svc := &mockPostService{
		getFn: func(ctx context.Context, postID string) (*model.Post, error) {
			return nil, model.NewPostNotFoundError(postID)
		},
	}
	h := NewPostHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if body := decodeAPIError(t, rec); body.Code != model.ErrCodePostNotFound {
		t.Errorf("expected code %s, got %s", model.ErrCodePostNotFound, body.Code)
	}
}

func TestPostHandler_Create_Returns201(t *testing.T) {
	var gotAuthor string
	var gotInput post.CreateInput
	svc := &mockPostService{
		createFn: func(ctx context.Context, authorID string, in post.CreateInput) (*model.Post, error) {
			gotAuthor = authorID
			gotInput = in
			return samplePost(), nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/posts",
		strings.NewReader(`{"title":"Hello","content":"<p>world</p>","image":""}`))
	req = withIdentity(req, "user-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if gotAuthor != "user-1" {
		t.Errorf("expected author 'user-1', got %q", gotAuthor)
	}
	if gotInput.Title != "Hello" {
		t.Errorf("expected title 'Hello', got %q", gotInput.Title)
	}
	var resp postEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Post.ID != "post-1" {
		t.Errorf("expected post id 'post-1', got %q", resp.Post.ID)
	}
}

func TestPostHandler_Create_WithoutIdentity_Returns401(t *testing.T) {
	h := NewPostHandler(&mockPostService{})

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"title":"a","content":"b"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestPostHandler_Update_ImageOmittedIsNil(t *testing.T) {
	var gotInput post.UpdateInput
	svc := &mockPostService{
		updateFn: func(ctx context.Context, userID, postID string, in post.UpdateInput) (*model.Post, error) {
			gotInput = in
			return samplePost(), nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/posts/post-1", strings.NewReader(`{"title":"new"}`))
	req = withURLParam(withIdentity(req, "user-1"), "id", "post-1")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotInput.Image != nil {
		t.Errorf("expected nil image when key is omitted, got %q", *gotInput.Image)
	}
}

func TestPostHandler_Update_ImageClearedIsEmptyString(t *testing.T) {
	var gotInput post.UpdateInput
	svc := &mockPostService{
		updateFn: func(ctx context.Context, userID, postID string, in post.UpdateInput) (*model.Post, error) {
			gotInput = in
			return samplePost(), nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/posts/post-1", strings.NewReader(`{"image":""}`))
	req = withURLParam(withIdentity(req, "user-1"), "id", "post-1")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if gotInput.Image == nil || *gotInput.Image != "" {
		t.Errorf("expected empty image pointer, got %v", gotInput.Image)
	}
}

func TestPostHandler_Update_NotAuthor_Returns403(t *testing.T) {
	svc := &mockPostService{
		updateFn: func(ctx context.Context, userID, postID string, in post.UpdateInput) (*model.Post, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/posts/post-1", strings.NewReader(`{"title":"x"}`))
	req = withURLParam(withIdentity(req, "user-2"), "id", "post-1")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestPostHandler_Delete_ReturnsMessage(t *testing.T) {
	var gotUser, gotPost string
	svc := &mockPostService{
		deleteFn: func(ctx context.Context, userID, postID string) error {
			gotUser, gotPost = userID, postID
			return nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/post-1", nil)
	req = withURLParam(withIdentity(req, "user-1"), "id", "post-1")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotUser != "user-1" || gotPost != "post-1" {
		t.Errorf("unexpected args: user=%q post=%q", gotUser, gotPost)
	}
	var resp messageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message == "" {
		t.Error("expected non-empty message")
	}
}

func TestPostHandler_ToggleLike_ReturnsState(t *testing.T) {
	svc := &mockPostService{
		toggleLikeFn: func(ctx context.Context, userID, postID string) (*post.LikeResult, error) {
			return &post.LikeResult{Liked: true, Likes: 3}, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/post-1/like", nil)
	req = withURLParam(withIdentity(req, "user-1"), "id", "post-1")
	rec := httptest.NewRecorder()
	h.ToggleLike(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp likeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Liked || resp.Likes != 3 {
		t.Errorf("unexpected like response: %+v", resp)
	}
}

func TestPostHandler_AddComment_Returns201(t *testing.T) {
	svc := &mockPostService{
		addCommentFn: func(ctx context.Context, userID, postID, text string) (*model.Comment, error) {
			return &model.Comment{ID: "c-9", PostID: postID, UserID: userID, Username: "alice", Text: text}, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/post-1/comment", strings.NewReader(`{"text":"hi"}`))
	req = withURLParam(withIdentity(req, "user-1"), "id", "post-1")
	rec := httptest.NewRecorder()
	h.AddComment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	var resp commentEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Comment.Text != "hi" || resp.Comment.Username != "alice" {
		t.Errorf("unexpected comment: %+v", resp.Comment)
	}
}

func TestPostHandler_AddComment_EmptyText_Returns400(t *testing.T) {
	svc := &mockPostService{
		addCommentFn: func(ctx context.Context, userID, postID, text string) (*model.Comment, error) {
			return nil, model.NewInvalidRequestError("comment text is required")
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/post-1/comment", strings.NewReader(`{"text":""}`))
	req = withURLParam(withIdentity(req, "user-1"), "id", "post-1")
	rec := httptest.NewRecorder()
	h.AddComment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

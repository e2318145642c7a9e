// Package auth はアカウント登録・ログイン・トークン発行と検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/repository"
)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare は不一致の場合にErrPasswordMismatchを返す。
	Compare(hash, password string) error
}

// TokenSigner はトークン発行のインターフェース。
type TokenSigner interface {
	Issue(userID, username string) (string, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	AvatarURLTemplate string // 空の場合はDefaultAvatarURLTemplate
}

// RegisterInput はアカウント登録の入力。
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Avatar   string // 空の場合はユーザー名から生成する
}

// Result は登録・ログイン成功時に返すトークンと公開アカウント情報。
type Result struct {
	Token   string              `json:"token"`
	Account model.PublicAccount `json:"user"`
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenSigner
	recorder EventRecorder
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenSigner,
	recorder EventRecorder,
	config ServiceConfig,
) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		config:   config,
		now:      time.Now,
	}
}

// Register はアカウントを作成し、トークンを発行する。
// ユーザー名またはメールアドレスが既存アカウントと重複する場合はDuplicateAccountエラーを返す。
// 事前検索をすり抜けた並行登録もユニークインデックス違反として同じエラーになる。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		s.recorder.RecordAuthEvent(EventRegister, OutcomeInvalidRequest)
		return nil, model.NewInvalidRequestError("username, email and password are required")
	}

	existing, err := s.userRepo.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		s.recorder.RecordAuthEvent(EventRegister, OutcomeError)
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		s.recorder.RecordAuthEvent(EventRegister, OutcomeDuplicate)
		return nil, model.NewDuplicateAccountError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			s.recorder.RecordAuthEvent(EventRegister, OutcomeInvalidRequest)
			return nil, model.NewInvalidRequestError("password must be at most 72 bytes")
		}
		s.recorder.RecordAuthEvent(EventRegister, OutcomeError)
		return nil, err
	}

	avatar := in.Avatar
	if avatar == "" {
		avatar = AvatarURL(s.config.AvatarURLTemplate, in.Username)
	}

	now := s.now().UTC()
	account := &model.Account{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Avatar:       avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.recorder.RecordAuthEvent(EventRegister, OutcomeDuplicate)
			return nil, model.NewDuplicateAccountError()
		}
		s.recorder.RecordAuthEvent(EventRegister, OutcomeError)
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	result, err := s.issue(account)
	if err != nil {
		s.recorder.RecordAuthEvent(EventRegister, OutcomeError)
		return nil, err
	}

	s.recorder.RecordAuthEvent(EventRegister, OutcomeSuccess)
	slog.Info("account registered",
		slog.String("user_id", account.ID),
		slog.String("username", account.Username),
	)
	return result, nil
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
// メールアドレス未登録とパスワード不一致は同じInvalidCredentialsエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" {
		s.recorder.RecordAuthEvent(EventLogin, OutcomeInvalidCredentials)
		return nil, model.NewInvalidCredentialsError()
	}

	account, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.recorder.RecordAuthEvent(EventLogin, OutcomeError)
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		s.recorder.RecordAuthEvent(EventLogin, OutcomeInvalidCredentials)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			s.recorder.RecordAuthEvent(EventLogin, OutcomeInvalidCredentials)
			return nil, model.NewInvalidCredentialsError()
		}
		s.recorder.RecordAuthEvent(EventLogin, OutcomeError)
		return nil, err
	}

	result, err := s.issue(account)
	if err != nil {
		s.recorder.RecordAuthEvent(EventLogin, OutcomeError)
		return nil, err
	}

	s.recorder.RecordAuthEvent(EventLogin, OutcomeSuccess)
	slog.Info("account logged in", slog.String("user_id", account.ID))
	return result, nil
}

// GetProfile は指定IDのアカウントの公開情報を返す。
// アカウントが存在しない場合はUserNotFoundエラーを返す。
func (s *Service) GetProfile(ctx context.Context, accountID string) (*model.PublicAccount, error) {
	account, err := s.userRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewUserNotFoundError()
	}

	public := account.Public()
	return &public, nil
}

func (s *Service) issue(account *model.Account) (*Result, error) {
	token, err := s.tokens.Issue(account.ID, account.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Result{Token: token, Account: account.Public()}, nil
}

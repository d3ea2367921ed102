package service

import (
	"context"

	"workhive/internal/cache"
	"workhive/internal/middleware"
	"workhive/internal/models"
	"workhive/internal/repository"
	"workhive/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService provides account and profile business logic.
type UserService struct {
	userRepo repository.UserRepository
}

// SignupInput carries the signup form fields. Pic and CV are already-uploaded
// object store URLs.
type SignupInput struct {
	Email    string
	Password string
	FullName string
	Place    string
	Skills   string
	Pic      string
	CV       string
}

// UpdateProfileInput carries a profile edit. Empty fields keep their current
// values; Pic and CV are replacement URLs when new files were uploaded.
type UpdateProfileInput struct {
	UserID   uint
	FullName string
	Place    string
	Skills   string
	Pic      string
	CV       string
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Signup validates the form, hashes the password and creates the account.
// A duplicate email surfaces as a conflict from the store's unique index.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if in.Place == "" || in.Skills == "" {
		return nil, models.NewValidationError("email, password, full name, place and skills are required")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateName("full name", in.FullName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    in.Email,
		Password: string(hash),
		FullName: in.FullName,
		Place:    in.Place,
		Skills:   in.Skills,
		Pic:      in.Pic,
		CV:       in.CV,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and returns the account. Invalid email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewAuthError("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewAuthError("invalid email or password")
	}
	return user, nil
}

// GetUserByID returns a user's profile.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile merges the non-empty fields over the stored profile.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.FullName != "" {
		user.FullName = in.FullName
	}
	if in.Place != "" {
		user.Place = in.Place
	}
	if in.Skills != "" {
		user.Skills = in.Skills
	}
	if in.Pic != "" {
		user.Pic = in.Pic
	}
	if in.CV != "" {
		user.CV = in.CV
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IsAdmin reports whether a user holds the admin flag.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// RequestPasswordReset issues a one-time reset token held in redis. It always
// succeeds from the caller's perspective so account emails cannot be probed.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return "", nil
	}

	rdb := cache.GetClient()
	if rdb == nil {
		return "", nil
	}

	token := uuid.NewString()
	if err := rdb.Set(ctx, cache.ResetTokenKey(token), user.ID, cache.ResetTTL).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to store password reset token", "error", err)
		return "", nil
	}
	return token, nil
}

// ResetPassword consumes a reset token and replaces the account password.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	rdb := cache.GetClient()
	if rdb == nil {
		return models.NewAuthError("invalid or expired reset token")
	}

	key := cache.ResetTokenKey(token)
	userID, err := rdb.Get(ctx, key).Uint64()
	if err != nil {
		return models.NewAuthError("invalid or expired reset token")
	}
	rdb.Del(ctx, key)

	user, err := s.userRepo.GetByID(ctx, uint(userID))
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = string(hash)
	return s.userRepo.Update(ctx, user)
}

// EnsureAdmin creates or promotes the bootstrap admin account from config.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsAdmin {
			return nil
		}
		existing.IsAdmin = true
		return s.userRepo.Update(ctx, existing)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	admin := &models.User{
		Email:    email,
		Password: string(hash),
		FullName: "Administrator",
		IsAdmin:  true,
	}
	return s.userRepo.Create(ctx, admin)
}

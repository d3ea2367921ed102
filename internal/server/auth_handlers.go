package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"workhive/internal/cache"
	"workhive/internal/middleware"
	"workhive/internal/models"
	"workhive/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "workhive-api"
	tokenAudience = "workhive-client"
	tokenTTL      = 7 * 24 * time.Hour
)

// Signup handles POST /api/auth/signup. The request is multipart: profile
// scalars plus a profile picture and a CV, both required. Storage keys embed
// the user ID, so the account row is created before the files are uploaded.
func (s *Server) Signup(c *fiber.Ctx) error {
	ctx := c.UserContext()

	in := service.SignupInput{
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
		FullName: c.FormValue("full_name"),
		Place:    c.FormValue("place"),
		Skills:   c.FormValue("skills"),
	}

	picHeader, picErr := c.FormFile("pic")
	cvHeader, cvErr := c.FormFile("cv")
	if picErr != nil || cvErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("profile picture and CV are required"))
	}
	if err := checkUploadSize(picHeader); err != nil {
		return respondError(c, err)
	}
	if err := checkUploadSize(cvHeader); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.Signup(ctx, in)
	if err != nil {
		return respondError(c, err)
	}

	picURL, err := uploadFormFile(picHeader, func(body io.Reader) (string, error) {
		return s.uploadService.UploadProfilePic(ctx, user.ID, picHeader.Filename, body)
	})
	if err != nil {
		return respondError(c, err)
	}
	cvURL, err := uploadFormFile(cvHeader, func(body io.Reader) (string, error) {
		return s.uploadService.UploadCV(ctx, user.ID, cvHeader.Filename, body)
	})
	if err != nil {
		return respondError(c, err)
	}

	user, err = s.userService.UpdateProfile(ctx, service.UpdateProfileInput{
		UserID: user.ID,
		Pic:    picURL,
		CV:     cvURL,
	})
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("invalid request body"))
	}

	user, err := s.userService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout. The token's jti is blacklisted in
// Redis until the token would have expired, so a stolen copy dies with it.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("jwtClaims").(jwt.MapClaims)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewAuthError("authentication required"))
	}

	jti, _ := claims["jti"].(string)
	exp, _ := claims["exp"].(float64)
	if jti != "" && s.redis != nil {
		ttl := time.Until(time.Unix(int64(exp), 0))
		if ttl > 0 {
			if err := s.redis.Set(c.Context(), cache.TokenDenyKey(jti), "1", ttl).Err(); err != nil {
				middleware.Logger.ErrorContext(c.UserContext(), "token blacklist failed", "error", err)
				return models.RespondWithError(c, fiber.StatusInternalServerError,
					models.NewInternalError(err))
			}
		}
	}

	return c.JSON(fiber.Map{"message": "logged out"})
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// RequestPasswordReset handles POST /api/auth/password-reset. The response is
// identical whether or not the email exists.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("email is required"))
	}

	if _, err := s.userService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "password reset request failed", "error", err)
	}

	return c.JSON(fiber.Map{"message": "if the account exists, a reset link has been sent"})
}

// ConfirmPasswordReset handles POST /api/auth/password-reset/confirm
func (s *Server) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("token and new password are required"))
	}

	if err := s.userService.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "password updated"})
}

// generateToken creates a signed JWT for the given user ID.
func (s *Server) generateToken(userID uint) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(tokenTTL).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID so individual tokens can be revoked.
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

// checkUploadSize rejects files over the upload limit before reading them.
func checkUploadSize(header *multipart.FileHeader) error {
	if header.Size > service.MaxUploadSizeMB*1024*1024 {
		return models.NewValidationError(
			fmt.Sprintf("file %q exceeds the %d MB limit", header.Filename, service.MaxUploadSizeMB))
	}
	return nil
}

// uploadFormFile opens a multipart file, hands it to fn and closes it.
func uploadFormFile(header *multipart.FileHeader, fn func(io.Reader) (string, error)) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", models.NewValidationError("could not read uploaded file")
	}
	defer func() { _ = f.Close() }()
	return fn(f)
}

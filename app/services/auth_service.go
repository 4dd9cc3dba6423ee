package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/besteffort"
	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/mail"
)

type AuthService struct {
	users     UserStore
	mailer    mail.Sender
	clientURL string
	now       func() time.Time
}

func NewAuthService(users UserStore, mailer mail.Sender, clientURL string) *AuthService {
	return &AuthService{
		users:     users,
		mailer:    mailer,
		clientURL: strings.TrimRight(clientURL, "/"),
		now:       time.Now,
	}
}

// Session is a user together with a freshly signed token.
type Session struct {
	User  *models.User
	Token string
}

type RegisterInput struct {
	Name     string          `json:"name"     validate:"required,max=50"`
	Email    string          `json:"email"    validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     string          `json:"role"     validate:"nullable,in=user|admin"`
	Phone    string          `json:"phone"`
	Address  *models.Address `json:"address"`
}

// Register creates a user account. The public role field is accepted but
// always stored as "user"; admins are created with seed:admin.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := check(in); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  hashed,
		Role:      models.RoleUser,
		Phone:     in.Phone,
		Address:   in.Address,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Invalid(map[string]string{"email": "Email is already registered"})
		}
		return nil, err
	}
	logger.WithCtx(ctx).Info("user registered", "user_id", u.ID.Hex())
	return s.session(u)
}

// CreateAdmin creates, or promotes, an administrator account.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	if existing, err := s.users.FindByEmail(ctx, email); err == nil {
		existing.Role = models.RoleAdmin
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	if err := check(RegisterInput{Name: name, Email: email, Password: password}); err != nil {
		return nil, err
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Name: name, Email: email, Password: hashed, Role: models.RoleAdmin, CreatedAt: s.now()}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login returns the same error for an unknown email as for a wrong
// password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.Validation("Please provide an email and password")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Auth("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, apperr.Auth("Invalid credentials")
	}
	return s.session(u)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.user(ctx, userID)
}

// UpdateDetailsInput holds the optional profile fields; nil means keep.
type UpdateDetailsInput struct {
	Name    *string         `json:"name"  validate:"nullable,max=50"`
	Email   *string         `json:"email" validate:"nullable,email"`
	Phone   *string         `json:"phone"`
	Address *models.Address `json:"address"`
}

func (s *AuthService) UpdateDetails(ctx context.Context, userID string, in UpdateDetailsInput) (*models.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.Address != nil {
		u.Address = mergeAddress(u.Address, in.Address)
	}

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Invalid(map[string]string{"email": "Email is already registered"})
		}
		return nil, err
	}
	return u, nil
}

func mergeAddress(cur, in *models.Address) *models.Address {
	out := models.Address{}
	if cur != nil {
		out = *cur
	}
	for dst, src := range map[*string]string{
		&out.Street: in.Street, &out.City: in.City, &out.State: in.State,
		&out.PostalCode: in.PostalCode, &out.Country: in.Country,
	} {
		if src != "" {
			*dst = src
		}
	}
	return &out
}

type UpdatePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6"`
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID string, in UpdatePasswordInput) (*Session, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.Password, in.CurrentPassword) {
		return nil, apperr.Auth("Password is incorrect")
	}
	if u.Password, err = auth.HashPassword(in.NewPassword); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// ForgotPassword stores a reset token digest and mails the raw token. When
// the mail cannot be sent the token is withdrawn.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("There is no user with that email")
	}
	if err != nil {
		return err
	}

	raw, digest, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	exp := s.now().Add(auth.ResetTokenTTL)
	u.ResetPasswordToken, u.ResetPasswordExpire = digest, &exp
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	link := s.clientURL + "/reset-password/" + raw
	msg := mail.Message{
		To:      []string{u.Email},
		Subject: "Password reset token",
		Text: "You are receiving this email because you (or someone else) requested a password reset.\n\n" +
			"Reset your password here: " + link + "\n\nThis link expires in 10 minutes.",
	}
	if err := s.send(ctx, msg); err != nil {
		logger.WithCtx(ctx).Error("reset email failed", "error", err, "user_id", u.ID.Hex())
		u.ResetPasswordToken, u.ResetPasswordExpire = "", nil
		besteffort.Run(ctx, "auth.clear_reset_token", func(ctx context.Context) error {
			return s.users.Update(ctx, u)
		}, "user_id", u.ID.Hex())
		return apperr.Integration("Email could not be sent").Wrap(err)
	}
	return nil
}

func (s *AuthService) send(ctx context.Context, msg mail.Message) error {
	if s.mailer == nil {
		return mail.ErrNotConfigured
	}
	return s.mailer.Send(ctx, msg)
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*Session, error) {
	if err := check(struct {
		Password string `json:"password" validate:"required,min=6"`
	}{password}); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, apperr.Validation("Invalid token")
	}
	u, err := s.users.FindByResetToken(ctx, auth.HashResetToken(token), s.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Validation("Invalid token")
	}
	if err != nil {
		return nil, err
	}

	if u.Password, err = auth.HashPassword(password); err != nil {
		return nil, err
	}
	u.ResetPasswordToken, u.ResetPasswordExpire = "", nil
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// SetPhotographer grants or revokes the photographer capability.
func (s *AuthService) SetPhotographer(ctx context.Context, userID string, enabled bool) (*models.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.IsPhotographer = enabled
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Resolve loads the identity behind a token subject; it returns (nil, nil)
// for a user that no longer exists.
func (s *AuthService) Resolve(ctx context.Context, userID string) (*auth.Identity, error) {
	u, err := s.user(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &auth.Identity{
		ID:             u.ID.Hex(),
		Role:           u.Role,
		Name:           u.Name,
		Email:          u.Email,
		IsPhotographer: u.IsPhotographer,
	}, nil
}

func (s *AuthService) user(ctx context.Context, userID string) (*models.User, error) {
	id, err := objectID(userID, "User")
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User", userID)
	}
	return u, nil
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, err := auth.GenerateToken(u.ID.Hex(), u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

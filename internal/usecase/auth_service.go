package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"bakery-backend/internal/domain"
)

type UserRepo interface {
	Insert(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	List(ctx context.Context) ([]domain.User, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

const (
	tokenTTL     = 7 * 24 * time.Hour
	verifyOTPTTL = 24 * time.Hour
	resetOTPTTL  = 15 * time.Minute
)

type AuthService struct {
	Users     UserRepo
	Mail      Mailer
	JWTSecret string
}

// Register creates a user with a bcrypt-hashed password and returns it with a
// signed session token. The welcome email is best effort.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = domain.RoleCustomer
	}
	if !role.Valid() {
		return nil, "", ErrBadRequest(fmt.Sprintf("invalid role '%s'", role))
	}
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrConflict("User already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	u := &domain.User{
		Name:      name,
		Email:     email,
		Password:  string(hash),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Users.Insert(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, "", ErrConflict("User already exists")
		}
		return nil, "", err
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	if err := s.Mail.Send(ctx, u.Email, "Welcome to our bakery",
		fmt.Sprintf("Welcome! Your account has been created with email: %s", u.Email)); err != nil {
		log.WithError(err).WithField("email", u.Email).Warn("welcome email failed")
	}
	return u, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrUnauthorized("Invalid email")
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, "", ErrUnauthorized("Invalid password")
	}
	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *AuthService) issueToken(u *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": u.ID.Hex(),
		"role":    string(u.Role),
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.JWTSecret))
}

// Verify parses a session token and resolves the acting identity.
func (s *AuthService) Verify(token string) (domain.Actor, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return domain.Actor{}, ErrUnauthorized("authentication invalid")
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, ErrUnauthorized("authentication invalid")
	}
	uid, _ := m["user_id"].(string)
	role, _ := m["role"].(string)
	id, err := primitive.ObjectIDFromHex(uid)
	if err != nil || !domain.Role(role).Valid() {
		return domain.Actor{}, ErrUnauthorized("authentication invalid")
	}
	return domain.Actor{UserID: id, Role: domain.Role(role)}, nil
}

// SendVerifyOTP issues a 6-digit account verification code, valid for 24h.
func (s *AuthService) SendVerifyOTP(ctx context.Context, userID primitive.ObjectID) error {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsAccountVerified {
		return ErrBadRequest("Account already verified")
	}
	otp := generateOTP()
	u.VerifyOTP = otp
	u.VerifyOTPExpireAt = time.Now().UTC().Add(verifyOTPTTL)
	u.UpdatedAt = time.Now().UTC()
	if err := s.Users.Update(ctx, u); err != nil {
		return err
	}
	return s.Mail.Send(ctx, u.Email, "Account Verification OTP",
		fmt.Sprintf("Your OTP is %s. Verify your account using this OTP.", otp))
}

func (s *AuthService) VerifyEmail(ctx context.Context, userID primitive.ObjectID, otp string) error {
	if otp == "" {
		return ErrBadRequest("OTP is required")
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.VerifyOTP == "" || u.VerifyOTP != otp {
		return ErrBadRequest("Invalid OTP")
	}
	if time.Now().UTC().After(u.VerifyOTPExpireAt) {
		return ErrBadRequest("OTP expired")
	}
	u.IsAccountVerified = true
	u.VerifyOTP = ""
	u.VerifyOTPExpireAt = time.Time{}
	u.UpdatedAt = time.Now().UTC()
	return s.Users.Update(ctx, u)
}

// SendResetOTP issues a 6-digit password reset code, valid for 15 minutes.
func (s *AuthService) SendResetOTP(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrNotFound("User")
		}
		return err
	}
	otp := generateOTP()
	u.ResetOTP = otp
	u.ResetOTPExpireAt = time.Now().UTC().Add(resetOTPTTL)
	u.UpdatedAt = time.Now().UTC()
	if err := s.Users.Update(ctx, u); err != nil {
		return err
	}
	return s.Mail.Send(ctx, u.Email, "Password Reset OTP",
		fmt.Sprintf("Your OTP for resetting your password is %s.", otp))
}

func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if email == "" || otp == "" || newPassword == "" {
		return ErrBadRequest("Email, OTP, and new password are required")
	}
	u, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrNotFound("User")
		}
		return err
	}
	if u.ResetOTP == "" || u.ResetOTP != otp {
		return ErrBadRequest("Invalid OTP")
	}
	if time.Now().UTC().After(u.ResetOTPExpireAt) {
		return ErrBadRequest("OTP expired")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	u.ResetOTP = ""
	u.ResetOTPExpireAt = time.Time{}
	u.UpdatedAt = time.Now().UTC()
	return s.Users.Update(ctx, u)
}

func (s *AuthService) loadUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNotFound("User")
		}
		return nil, err
	}
	return u, nil
}

func generateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000)
}

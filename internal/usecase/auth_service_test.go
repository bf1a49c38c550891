package usecase

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakery-backend/internal/domain"
	"bakery-backend/internal/infrastructure/repo"
)

type recordingMailer struct {
	sent []struct{ to, subject, body string }
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.sent = append(m.sent, struct{ to, subject, body string }{to, subject, body})
	return nil
}

func (m *recordingMailer) last(t *testing.T) struct{ to, subject, body string } {
	t.Helper()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

func newAuthService() (*AuthService, *recordingMailer) {
	mailer := &recordingMailer{}
	return &AuthService{
		Users:     repo.NewMemoryUserRepo(),
		Mail:      mailer,
		JWTSecret: "test-secret",
	}, mailer
}

func TestRegisterAndLogin(t *testing.T) {
	svc, mailer := newAuthService()
	ctx := context.Background()

	u, token, err := svc.Register(ctx, "Jane", "Jane@Example.com ", "secret123", "")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, domain.RoleCustomer, u.Role)
	assert.NotEqual(t, "secret123", u.Password)
	assert.NotEmpty(t, token)
	assert.Len(t, mailer.sent, 1)

	actor, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, actor.UserID)
	assert.Equal(t, domain.RoleCustomer, actor.Role)

	_, _, err = svc.Login(ctx, "jane@example.com", "secret123")
	assert.NoError(t, err)

	_, _, err = svc.Login(ctx, "jane@example.com", "wrong")
	assert.EqualError(t, err, "Invalid password")

	_, _, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.EqualError(t, err, "Invalid email")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Jane", "jane@example.com", "secret123", "")
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, "Other Jane", "jane@example.com", "different", "")
	assert.EqualError(t, err, "User already exists")
	assert.IsType(t, ErrConflict(""), err)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc, _ := newAuthService()
	_, token, err := svc.Register(context.Background(), "Jane", "jane@example.com", "secret123", "")
	require.NoError(t, err)

	other := &AuthService{Users: svc.Users, Mail: svc.Mail, JWTSecret: "other-secret"}
	_, err = other.Verify(token)
	assert.IsType(t, ErrUnauthorized(""), err)

	_, err = svc.Verify("not-a-token")
	assert.IsType(t, ErrUnauthorized(""), err)
}

func TestAccountVerificationFlow(t *testing.T) {
	svc, mailer := newAuthService()
	ctx := context.Background()

	u, _, err := svc.Register(ctx, "Jane", "jane@example.com", "secret123", "")
	require.NoError(t, err)

	require.NoError(t, svc.SendVerifyOTP(ctx, u.ID))
	otp := otpPattern.FindString(mailer.last(t).body)
	require.NotEmpty(t, otp)

	assert.EqualError(t, svc.VerifyEmail(ctx, u.ID, "000000"), "Invalid OTP")
	require.NoError(t, svc.VerifyEmail(ctx, u.ID, otp))

	got, err := svc.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAccountVerified)
	assert.Empty(t, got.VerifyOTP)

	// a second send is rejected once verified
	assert.EqualError(t, svc.SendVerifyOTP(ctx, u.ID), "Account already verified")
}

func TestVerifyEmailExpiredOTP(t *testing.T) {
	svc, mailer := newAuthService()
	ctx := context.Background()

	u, _, err := svc.Register(ctx, "Jane", "jane@example.com", "secret123", "")
	require.NoError(t, err)
	require.NoError(t, svc.SendVerifyOTP(ctx, u.ID))
	otp := otpPattern.FindString(mailer.last(t).body)

	stored, err := svc.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	stored.VerifyOTPExpireAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, svc.Users.Update(ctx, stored))

	assert.EqualError(t, svc.VerifyEmail(ctx, u.ID, otp), "OTP expired")
}

func TestPasswordResetFlow(t *testing.T) {
	svc, mailer := newAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Jane", "jane@example.com", "secret123", "")
	require.NoError(t, err)

	assert.EqualError(t, svc.SendResetOTP(ctx, "nobody@example.com"), "User not found")

	require.NoError(t, svc.SendResetOTP(ctx, "jane@example.com"))
	otp := otpPattern.FindString(mailer.last(t).body)
	require.NotEmpty(t, otp)

	err = svc.ResetPassword(ctx, "jane@example.com", "000000", "newpass456")
	assert.EqualError(t, err, "Invalid OTP")

	require.NoError(t, svc.ResetPassword(ctx, "jane@example.com", otp, "newpass456"))

	_, _, err = svc.Login(ctx, "jane@example.com", "secret123")
	assert.Error(t, err)
	_, _, err = svc.Login(ctx, "jane@example.com", "newpass456")
	assert.NoError(t, err)

	// the OTP is single use
	err = svc.ResetPassword(ctx, "jane@example.com", otp, "again789")
	assert.EqualError(t, err, "Invalid OTP")
}

func TestGenerateOTPShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp := generateOTP()
		assert.Len(t, otp, 6)
		assert.Regexp(t, `^\d{6}$`, otp)
	}
}

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/filevault-labs/filevault/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestMFAEnrollmentAndLogin(t *testing.T) {
	ctx := context.Background()
	client := startServer(t)

	_, err := client.Register(ctx, "alice", "s3cret", "")
	require.NoError(t, err)

	session, err := client.Login(ctx, "alice", "s3cret", nil, "")
	require.NoError(t, err)

	enroll, err := session.EnrollMFA(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, enroll.Secret)
	require.Contains(t, enroll.QRCode, "otpauth://")

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, session.ActivateMFA(ctx, code))

	// Password alone is no longer enough.
	_, err = client.Login(ctx, "alice", "s3cret", nil, "")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "mfa_required", apiErr.Code)

	code, err = totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	mfaSession, err := client.Login(ctx, "alice", "s3cret", nil, code)
	require.NoError(t, err)

	_, err = mfaSession.Me(ctx)
	require.NoError(t, err)
}

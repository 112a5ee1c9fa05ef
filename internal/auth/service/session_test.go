package service_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/internal/auth/store"
	"github.com/filevault-labs/filevault/internal/auth/store/drivers/sqlite"
	"github.com/filevault-labs/filevault/pkg/cryptox"
	"github.com/filevault-labs/filevault/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

const testIssuer = "filevault-auth"

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "filevault-pepper-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type fixture struct {
	store    store.Store
	sessions *service.SessionService
	users    *service.UserService
	mfa      *service.MFAService
	verifier jwtx.Verifier
}

func newFixture(t *testing.T) *fixture {
	return newFixtureAt(t, ":memory:")
}

// newFixtureAt builds the service stack over a store at the given DSN so
// tests that need real cross-connection locking can use a file-backed
// database with the same pragmas the server runs with.
func newFixtureAt(t *testing.T, dsn string) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewSignerHS256(testKey)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testKey, testIssuer)
	require.NoError(t, err)

	return &fixture{
		store: st,
		sessions: &service.SessionService{
			Signer:    signer,
			Verifier:  verifier,
			Store:     st,
			Issuer:    testIssuer,
			AccessTTL: time.Minute,
		},
		users:    &service.UserService{Store: st},
		mfa:      &service.MFAService{Store: st, Issuer: "FileVault"},
		verifier: verifier,
	}
}

func (f *fixture) register(t *testing.T, username, password string) {
	t.Helper()
	_, err := f.users.Register(context.Background(), username, password, username+"@example.com")
	require.NoError(t, err)
}

func TestLoginThenAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	token, err := f.sessions.Login(ctx, "alice", "s3cret", []string{"vault.read"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := f.sessions.Authorize(ctx, token, nil)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, []string{"vault.read"}, claims.Scopes)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	// Unknown username and wrong password are the same error value.
	_, err := f.sessions.Login(ctx, "nobody", "s3cret", nil, "")
	require.ErrorIs(t, err, service.ErrAuthenticationFailed)

	_, err = f.sessions.Login(ctx, "alice", "wrong", nil, "")
	require.ErrorIs(t, err, service.ErrAuthenticationFailed)
}

func TestAuthorizeAfterLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	token, err := f.sessions.Login(ctx, "alice", "s3cret", nil, "")
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, token))

	// The token still decodes fine; only liveness is gone.
	_, err = f.verifier.Verify(token)
	require.NoError(t, err)

	_, err = f.sessions.Authorize(ctx, token, nil)
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	token, err := f.sessions.Login(ctx, "alice", "s3cret", nil, "")
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, token))
	require.NoError(t, f.sessions.Logout(ctx, token))

	// Garbage tokens are accepted silently too.
	require.NoError(t, f.sessions.Logout(ctx, "not-a-token"))
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	oldToken, err := f.sessions.Login(ctx, "alice", "s3cret", []string{"vault.read"}, "")
	require.NoError(t, err)

	newToken, err := f.sessions.Refresh(ctx, oldToken)
	require.NoError(t, err)
	require.NotEqual(t, oldToken, newToken)

	// Subject and scopes carry over; the token id does not.
	oldClaims, err := f.verifier.Verify(oldToken)
	require.NoError(t, err)
	newClaims, err := f.verifier.Verify(newToken)
	require.NoError(t, err)
	require.Equal(t, oldClaims.Subject, newClaims.Subject)
	require.Equal(t, oldClaims.Scopes, newClaims.Scopes)
	require.NotEqual(t, oldClaims.TokenID(), newClaims.TokenID())

	// The new token works, the rotated one is dead.
	_, err = f.sessions.Authorize(ctx, newToken, []string{"vault.read"})
	require.NoError(t, err)

	_, err = f.sessions.Authorize(ctx, oldToken, nil)
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestRefreshIsSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	token, err := f.sessions.Login(ctx, "alice", "s3cret", nil, "")
	require.NoError(t, err)

	_, err = f.sessions.Refresh(ctx, token)
	require.NoError(t, err)

	// Replaying the consumed token must not mint a second session.
	_, err = f.sessions.Refresh(ctx, token)
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	ctx := context.Background()

	// A file-backed store with the server's pragmas: busy_timeout makes the
	// losing writer wait for the winner's commit instead of erroring, so it
	// observes the consumed token id and gets the uniform rejection.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(t.TempDir(), "auth.db"))
	f := newFixtureAt(t, dsn)
	f.register(t, "alice", "s3cret")

	for round := 0; round < 20; round++ {
		token, err := f.sessions.Login(ctx, "alice", "s3cret", nil, "")
		require.NoError(t, err)

		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  [2]error
		)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = f.sessions.Refresh(ctx, token)
			}(i)
		}
		close(start)
		wg.Wait()

		winners := 0
		for i, err := range errs {
			if err == nil {
				winners++
				continue
			}
			require.ErrorIs(t, err, service.ErrUnauthorized, "round %d: caller %d", round, i)
		}
		require.Equal(t, 1, winners, "round %d: exactly one refresh may succeed", round)
	}
}

func TestRefreshRejectsForgedAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	t.Run("garbage", func(t *testing.T) {
		_, err := f.sessions.Refresh(ctx, "garbage")
		require.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("wrong key", func(t *testing.T) {
		otherSigner, err := jwtx.NewSignerHS256([]byte("ffffffffffffffffffffffffffffffff"))
		require.NoError(t, err)
		forged, err := otherSigner.Sign(jwtx.NewSessionClaims("alice", nil, time.Minute, testIssuer, time.Now()))
		require.NoError(t, err)

		_, err = f.sessions.Refresh(ctx, forged)
		require.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		signer, err := jwtx.NewSignerHS256(testKey)
		require.NoError(t, err)
		expired, err := signer.Sign(jwtx.NewSessionClaims("alice", nil, time.Minute, testIssuer, time.Now().Add(-time.Hour)))
		require.NoError(t, err)

		_, err = f.sessions.Refresh(ctx, expired)
		require.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestAuthorizeScopeEnforcement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	token, err := f.sessions.Login(ctx, "alice", "s3cret", []string{"vault.read"}, "")
	require.NoError(t, err)

	// Missing scope is the same uniform error as a dead token.
	_, err = f.sessions.Authorize(ctx, token, []string{"vault.read", "vault.write"})
	require.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.sessions.Authorize(ctx, token, []string{"vault.read"})
	require.NoError(t, err)
}

func TestStorageFailureIsDistinct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	token, err := f.sessions.Login(ctx, "alice", "s3cret", nil, "")
	require.NoError(t, err)

	// Kill the store out from under the service: every guarded operation
	// must fail closed with the storage error, not look like a bad token.
	require.NoError(t, f.store.Close())

	_, err = f.sessions.Authorize(ctx, token, nil)
	require.ErrorIs(t, err, service.ErrStorageUnavailable)

	_, err = f.sessions.Refresh(ctx, token)
	require.ErrorIs(t, err, service.ErrStorageUnavailable)

	_, err = f.sessions.Login(ctx, "alice", "s3cret", nil, "")
	require.ErrorIs(t, err, service.ErrStorageUnavailable)

	err = f.sessions.Logout(ctx, token)
	require.ErrorIs(t, err, service.ErrStorageUnavailable)
}

func TestLoginWithMFA(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.users.Register(ctx, "alice", "s3cret", "alice@example.com")
	require.NoError(t, err)

	enroll, err := f.mfa.EnrollTOTP(ctx, user.ID, user.Username)
	require.NoError(t, err)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.mfa.ActivateTOTP(ctx, user.ID, code))

	// No code supplied: the caller is told MFA is required.
	_, err = f.sessions.Login(ctx, "alice", "s3cret", nil, "")
	require.ErrorIs(t, err, service.ErrMFARequired)

	// Wrong code collapses into the uniform failure.
	_, err = f.sessions.Login(ctx, "alice", "s3cret", nil, "000000")
	require.ErrorIs(t, err, service.ErrAuthenticationFailed)

	code, err = totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	token, err := f.sessions.Login(ctx, "alice", "s3cret", nil, code)
	require.NoError(t, err)

	_, err = f.sessions.Authorize(ctx, token, nil)
	require.NoError(t, err)
}

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	// Login with read scope only.
	token, err := f.sessions.Login(ctx, "alice", "s3cret", []string{"vault.read"}, "")
	require.NoError(t, err)

	// Write access is denied, read access works.
	_, err = f.sessions.Authorize(ctx, token, []string{"vault.write"})
	require.ErrorIs(t, err, service.ErrUnauthorized)

	claims, err := f.sessions.Authorize(ctx, token, []string{"vault.read"})
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)

	// Rotate. The old token is retired, the new one inherits the scopes.
	rotated, err := f.sessions.Refresh(ctx, token)
	require.NoError(t, err)

	_, err = f.sessions.Authorize(ctx, token, []string{"vault.read"})
	require.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.sessions.Authorize(ctx, rotated, []string{"vault.read"})
	require.NoError(t, err)

	// Logout kills the rotated token; nothing about the session survives.
	require.NoError(t, f.sessions.Logout(ctx, rotated))

	_, err = f.sessions.Authorize(ctx, rotated, nil)
	require.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.sessions.Refresh(ctx, rotated)
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthorizeExpiredTokenWithLiveRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "s3cret")

	user, err := f.users.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)

	// Sign an already-expired token but keep its liveness record fresh:
	// claims-level expiry must be authoritative regardless of store state.
	signer, err := jwtx.NewSignerHS256(testKey)
	require.NoError(t, err)
	claims := jwtx.NewSessionClaims("alice", nil, -time.Minute, testIssuer, time.Now())
	expired, err := signer.Sign(claims)
	require.NoError(t, err)

	require.NoError(t, f.store.Liveness().Put(ctx, claims.TokenID(), user.ID, time.Hour))

	_, err = f.sessions.Authorize(ctx, expired, nil)
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

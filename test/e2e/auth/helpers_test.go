package auth_test

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	authhttp "github.com/filevault-labs/filevault/internal/auth/http"
	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/internal/auth/store/drivers/sqlite"
	"github.com/filevault-labs/filevault/pkg/authsdk"
	"github.com/filevault-labs/filevault/pkg/cryptox"
	"github.com/filevault-labs/filevault/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"log/slog"
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

// startServer brings up the full HTTP stack against a fresh database and
// returns an SDK client pointed at it.
func startServer(t *testing.T) *authsdk.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(t.TempDir(), "auth.db"))
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewSignerHS256(testKey)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testKey, testIssuer)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	router := authhttp.NewRouter("test", time.Minute, st, logger)
	router.SessionService = &service.SessionService{
		Signer:    signer,
		Verifier:  verifier,
		Store:     st,
		Issuer:    testIssuer,
		AccessTTL: time.Minute,
	}
	router.UserService = &service.UserService{Store: st}
	router.MFAService = &service.MFAService{Store: st, Issuer: "FileVault"}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return authsdk.NewClient(server.URL)
}

package e2e

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ruralshare/authflow/internal/authflow"
	"github.com/ruralshare/authflow/internal/identitytest"
	"github.com/ruralshare/authflow/internal/infrastructure/auth"
	"github.com/ruralshare/authflow/internal/infrastructure/channels/sms"
	"github.com/ruralshare/authflow/internal/infrastructure/identity"
	"github.com/ruralshare/authflow/internal/infrastructure/session"
)

// TestSuite wires the real client-side stack against the in-memory backend:
// the identity stub over HTTP, the SMS provider in mock-delivery mode backed
// by miniredis, and a bbolt session file in a temp dir.
type TestSuite struct {
	Backend *identitytest.Server
	Redis   *miniredis.Miniredis
	Store   *session.BoltStore
	Flow    *authflow.Controller
}

func NewTestSuite(t *testing.T) *TestSuite {
	t.Helper()

	backend := identitytest.NewServer()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err, "miniredis should start")
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store, err := session.NewBoltStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err, "session store should open")
	t.Cleanup(func() { store.Close() })

	smsProvider := sms.NewProvider("", "", "", rdb, sms.Config{
		CodeLength:   6,
		TTL:          5 * time.Minute,
		MaxAttempts:  3,
		ResendWindow: 30 * time.Second,
	})

	flow := authflow.New(
		identity.NewClient(srv.URL, srv.Client()),
		smsProvider,
		nil,
		authflow.Config{
			Sessions: store,
			Tokens:   auth.NewJWTInspector(),
		},
	)
	t.Cleanup(flow.Close)

	return &TestSuite{
		Backend: backend,
		Redis:   mr,
		Store:   store,
		Flow:    flow,
	}
}

// SMSCode reads the code the provider stored for the phone, standing in for
// the user reading their messages.
func (s *TestSuite) SMSCode(t *testing.T, e164Phone string) string {
	t.Helper()
	code, err := s.Redis.Get("otp:sms:" + e164Phone)
	require.NoError(t, err, "an OTP should be stored for %s", e164Phone)
	return code
}

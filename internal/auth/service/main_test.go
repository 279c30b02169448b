package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/patchnotes/internal/auth/cache/drivers/redis"
	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/notify"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/patchnotes/pkg/cryptox"
	"github.com/aussiebroadwan/patchnotes/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	store    *sqlite.Store
	cache    *redis.Cache
	redis    *miniredis.Miniredis
	bus      *notify.Bus
	clock    *clock
	sessions *service.SessionService
	qr       *service.QRService
	users    *service.UserService
}

func newHarness(t *testing.T, scope service.RevocationScope) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	c, err := redis.New(context.Background(), "redis://"+mr.Addr()+"/0", redis.DefaultPrefix)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	bus := notify.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	clk := &clock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}

	return &harness{
		store: st,
		cache: c,
		redis: mr,
		bus:   bus,
		clock: clk,
		sessions: &service.SessionService{
			Store:         st,
			Cache:         c,
			Codec:         &jwtx.Codec{Now: clk.Now},
			AccessSecret:  []byte("access-secret"),
			RefreshSecret: []byte("refresh-secret"),
			Revocation:    scope,
			Now:           clk.Now,
		},
		qr:    &service.QRService{Store: st, Notifier: bus, Now: clk.Now},
		users: &service.UserService{Store: st},
	}
}

func (h *harness) createUser(t *testing.T, id string) domain.User {
	t.Helper()

	u, err := h.users.CreateUser(context.Background(), service.UserInput{
		ID:        id,
		FirstName: "User " + id,
		Username:  "user-" + id,
		Password:  "correct horse",
	})
	require.NoError(t, err)
	return u
}

func requireKind(t *testing.T, err error, kind service.Kind) {
	t.Helper()

	require.Error(t, err)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, kind, se.Kind, "error: %v", err)
}

var scopes = []service.RevocationScope{service.RevocationPerToken, service.RevocationPerUser}

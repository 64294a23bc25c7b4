package stores

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/chamsedd0/neighbor/internal/blob"
	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/events"
	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/internal/testutil"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/chamsedd0/neighbor/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{JWTSecret: "test-secret", Env: "test"}
	logger.InitWithWriter("test", os.Stderr)
	os.Exit(m.Run())
}

type fixture struct {
	gw     *gateway.GormGateway
	blobs  *blob.MemoryStore
	events *events.Recorder
	toasts *ToastRecorder
	users  *UserDirectory
	strict bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := gateway.NewGorm(testutil.NewSQLite(t), gateway.NewLocalFeed())
	users := NewUserDirectory(gw, time.Minute)
	t.Cleanup(users.Close)
	return &fixture{
		gw:     gw,
		blobs:  blob.NewMemory("http://blobs.test"),
		events: &events.Recorder{},
		toasts: &ToastRecorder{},
		users:  users,
	}
}

func (f *fixture) session(t *testing.T) *Session {
	t.Helper()
	s := NewSession(context.Background(), Deps{
		Gateway:                  f.gw,
		Blobs:                    f.blobs,
		Events:                   f.events,
		Notifier:                 f.toasts,
		Users:                    f.users,
		StrictBookingTransitions: f.strict,
	})
	t.Cleanup(s.Close)
	return s
}

// signedIn returns a session restored for a freshly created user.
func (f *fixture) signedIn(t *testing.T, uid string, role models.Role) *Session {
	t.Helper()
	now := time.Now()
	u := models.User{
		ID:          uid,
		Email:       uid + "@example.com",
		DisplayName: uid,
		Role:        role,
		Provider:    "password",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.gw.Create(context.Background(), models.CollectionUsers, &u))

	token, err := utils.GenerateToken(uid, string(role))
	require.NoError(t, err)
	claims, err := utils.ValidateToken(token)
	require.NoError(t, err)

	s := f.session(t)
	s.Auth.Restore(context.Background(), token, claims)
	return s
}

func sampleInput(title string, price float64, bedrooms int) PropertyInput {
	return PropertyInput{
		Title:        title,
		Description:  "A place",
		Price:        price,
		PriceUnit:    models.PriceUnitMonth,
		Bedrooms:     bedrooms,
		Bathrooms:    1,
		SquareFeet:   900,
		PropertyType: "apartment",
		Location:     models.Location{City: "Austin", State: "TX", Country: "US"},
		Availability: models.Availability{IsAvailable: true},
	}
}

func seedProperty(t *testing.T, gw gateway.Gateway, p models.Property) models.Property {
	t.Helper()
	if p.OwnerID == "" {
		p.OwnerID = "owner_1"
	}
	if p.Title == "" {
		p.Title = "Listing " + p.ID
	}
	if p.PriceUnit == "" {
		p.PriceUnit = models.PriceUnitMonth
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.Version = 1
	require.NoError(t, gw.Create(context.Background(), models.CollectionProperties, &p))
	return p
}

func propertyIDs(items []models.Property) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

// blockingGateway holds the first Find call until released or cancelled.
type blockingGateway struct {
	gateway.Gateway

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingGateway(inner gateway.Gateway) *blockingGateway {
	return &blockingGateway{Gateway: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *blockingGateway) Find(ctx context.Context, q gateway.Query, dest any) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			<-g.release
			return ctx.Err()
		}
	}
	return g.Gateway.Find(ctx, q, dest)
}

type recordingRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (r *recordingRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = map[string]time.Duration{}
	}
	r.revoked[jti] = ttl
	return nil
}

package stores

import (
	"context"
	"time"

	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/karlseguin/ccache/v3"
)

const defaultUserTTL = 5 * time.Minute

// UserDirectory is a read-through cache over the users collection. One
// directory is shared by every session of the process.
type UserDirectory struct {
	gw    gateway.Gateway
	cache *ccache.Cache[*models.User]
	ttl   time.Duration
}

func NewUserDirectory(gw gateway.Gateway, ttl time.Duration) *UserDirectory {
	if ttl <= 0 {
		ttl = defaultUserTTL
	}
	return &UserDirectory{
		gw:    gw,
		cache: ccache.New(ccache.Configure[*models.User]().MaxSize(10000)),
		ttl:   ttl,
	}
}

// Lookup returns the profile for uid. Returns ErrUserNotFound when absent.
func (d *UserDirectory) Lookup(ctx context.Context, uid string) (models.User, error) {
	if item := d.cache.Get(uid); item != nil && !item.Expired() {
		return *item.Value(), nil
	}

	u, err := gateway.Fetch[models.User](ctx, d.gw, models.CollectionUsers, uid)
	if err != nil {
		return models.User{}, notFound(err, ErrUserNotFound)
	}
	d.Put(u)
	return u, nil
}

// FindByEmail reads through to the backend; email lookups are not cached.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (models.User, error) {
	page, err := gateway.List[models.User](ctx, d.gw, gateway.Query{
		Collection: models.CollectionUsers,
		Filters:    []gateway.Filter{gateway.Where(models.FieldEmail, gateway.OpEq, email)},
		Limit:      1,
	})
	if err != nil {
		return models.User{}, err
	}
	if len(page.Items) == 0 {
		return models.User{}, ErrUserNotFound
	}
	d.Put(page.Items[0])
	return page.Items[0], nil
}

func (d *UserDirectory) Put(u models.User) {
	d.cache.Set(u.ID, &u, d.ttl)
}

func (d *UserDirectory) Invalidate(uid string) {
	d.cache.Delete(uid)
}

func (d *UserDirectory) Close() {
	d.cache.Stop()
}

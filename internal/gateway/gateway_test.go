package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestGateway(t *testing.T) *GormGateway {
	t.Helper()
	return NewGorm(testutil.NewSQLite(t), NewLocalFeed())
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}

func seedProperty(t *testing.T, gw Gateway, id string, price float64, bedrooms int, kind string, created time.Time) models.Property {
	t.Helper()
	p := models.Property{
		ID:           id,
		OwnerID:      "owner_1",
		Title:        "Listing " + id,
		Price:        price,
		PriceUnit:    models.PriceUnitMonth,
		Bedrooms:     bedrooms,
		Bathrooms:    1,
		PropertyType: kind,
		Location:     models.Location{City: "Austin", State: "TX", Country: "US"},
		Availability: models.Availability{IsAvailable: true},
		Version:      1,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	require.NoError(t, gw.Create(context.Background(), models.CollectionProperties, &p))
	return p
}

func ids[T Document](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.DocID()
	}
	return out
}

func TestFind_FiltersAndOrdering(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	seedProperty(t, gw, "p1", 900, 1, "apartment", base)
	seedProperty(t, gw, "p2", 1500, 2, "apartment", base.Add(time.Hour))
	seedProperty(t, gw, "p3", 2500, 3, "house", base.Add(2*time.Hour))

	page, err := List[models.Property](ctx, gw, Query{
		Collection: models.CollectionProperties,
		Filters: []Filter{
			Where(models.FieldPrice, OpGte, 1000.0),
			Where(models.FieldPrice, OpLte, 3000.0),
		},
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2"}, ids(page.Items))
	require.NotNil(t, page.Next)
	assert.Equal(t, "p2", page.Next.ID)

	page, err = List[models.Property](ctx, gw, Query{
		Collection: models.CollectionProperties,
		Filters:    []Filter{Where(models.FieldPropertyType, OpEq, "apartment")},
		OrderBy:    models.FieldCreatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids(page.Items))
	assert.Equal(t, "Austin, TX, US", page.Items[0].Location.String())
	assert.Equal(t, time.UTC, page.Items[0].CreatedAt.Location())
}

func TestFind_CursorPaginationWithTies(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Three pairs share a timestamp so only the id tie-break keeps pages disjoint.
	for i := 0; i < 7; i++ {
		seedProperty(t, gw, fmt.Sprintf("p%02d", i), 1000, 1, "apartment", base.Add(time.Duration(i/2)*time.Minute))
	}

	all, err := List[models.Property](ctx, gw, Query{
		Collection: models.CollectionProperties,
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
	})
	require.NoError(t, err)
	require.Len(t, all.Items, 7)

	var got []string
	var after *Cursor
	for {
		page, err := List[models.Property](ctx, gw, Query{
			Collection: models.CollectionProperties,
			OrderBy:    models.FieldCreatedAt,
			Descending: true,
			After:      after,
			Limit:      3,
		})
		require.NoError(t, err)
		if len(page.Items) == 0 {
			assert.Nil(t, page.Next)
			break
		}
		got = append(got, ids(page.Items)...)
		after = page.Next
	}
	assert.Equal(t, ids(all.Items), got)
}

func TestFind_DescendingPagesNewestFirst(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		seedProperty(t, gw, id, 1000, 1, "apartment", base.Add(time.Duration(i)*time.Hour))
	}

	q := Query{
		Collection: models.CollectionProperties,
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
		Limit:      2,
	}
	page, err := List[models.Property](ctx, gw, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d"}, ids(page.Items))

	q.After = page.Next
	page, err = List[models.Property](ctx, gw, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(page.Items))
}

func TestFind_ArrayContains(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	now := time.Now()

	for _, c := range []models.Conversation{
		{ID: "c1", Participants: []string{"user_1", "user_2"}, ParticipantKey: "user_1|user_2", CreatedAt: now, UpdatedAt: now},
		{ID: "c2", Participants: []string{"user_10", "user_3"}, ParticipantKey: "user_10|user_3", CreatedAt: now, UpdatedAt: now.Add(time.Second)},
		{ID: "c3", Participants: []string{"user_1", "user_3"}, ParticipantKey: "user_1|user_3", CreatedAt: now, UpdatedAt: now.Add(2 * time.Second)},
	} {
		c := c
		require.NoError(t, gw.Create(ctx, models.CollectionConversations, &c))
	}

	page, err := List[models.Conversation](ctx, gw, Query{
		Collection: models.CollectionConversations,
		Filters:    []Filter{Where(models.FieldParticipants, OpArrayContains, "user_1")},
		OrderBy:    models.FieldUpdatedAt,
		Descending: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1"}, ids(page.Items))
}

func TestGet_NotFound(t *testing.T) {
	gw := newTestGateway(t)

	var p models.Property
	err := gw.Get(context.Background(), models.CollectionProperties, "missing", &p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_MissingRecord(t *testing.T) {
	gw := newTestGateway(t)

	err := gw.Update(context.Background(), models.CollectionBookings, "missing", map[string]any{models.FieldStatus: "approved"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, gw.Delete(context.Background(), models.CollectionBookings, "missing"), ErrNotFound)
}

func TestUpdateIf_DetectsConcurrentWrite(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	seedProperty(t, gw, "p1", 1000, 1, "house", time.Now())

	first := datatypes.JSONSlice[models.PropertyImage]{{ID: "a", URL: "u/a"}}
	require.NoError(t, gw.UpdateIf(ctx, models.CollectionProperties, "p1", 1, map[string]any{models.FieldImages: first}))

	// A writer still holding version 1 loses.
	stale := datatypes.JSONSlice[models.PropertyImage]{{ID: "b", URL: "u/b"}}
	err := gw.UpdateIf(ctx, models.CollectionProperties, "p1", 1, map[string]any{models.FieldImages: stale})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := Fetch[models.Property](ctx, gw, models.CollectionProperties, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "a", got.Images[0].ID)

	err = gw.UpdateIf(ctx, models.CollectionProperties, "nope", 1, map[string]any{models.FieldImages: stale})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrement_IsAtomic(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	now := time.Now()
	c := models.Conversation{ID: "c1", Participants: []string{"a", "b"}, ParticipantKey: "a|b", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, gw.Create(ctx, models.CollectionConversations, &c))

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			done <- gw.Increment(ctx, models.CollectionConversations, "c1", models.FieldUnreadCount, 1,
				map[string]any{models.FieldUpdatedAt: time.Now()})
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, receive(t, done))
	}

	got, err := Fetch[models.Conversation](ctx, gw, models.CollectionConversations, "c1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.UnreadCount)
}

func TestQueryValidation(t *testing.T) {
	gw := newTestGateway(t)
	var out []models.Property

	err := gw.Find(context.Background(), Query{Collection: models.CollectionProperties, OrderBy: "created_at; drop table"}, &out)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	err = gw.Find(context.Background(), Query{
		Collection: models.CollectionProperties,
		Filters:    []Filter{{Field: "price", Op: "!=", Value: 1}},
	}, &out)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	err = gw.Find(context.Background(), Query{Collection: models.CollectionProperties, After: &Cursor{ID: "x"}}, &out)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{Value: time.Date(2024, 5, 1, 10, 30, 0, 123000, time.UTC), ID: "p1"}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, c.Value.Equal(decoded.Value))
	assert.Equal(t, "p1", decoded.ID)

	_, err = DecodeCursor("not a cursor")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestNormalizeTimes_Nested(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	from := time.Date(2024, 1, 1, 15, 0, 0, 1500, loc)
	p := models.Property{
		CreatedAt:    time.Date(2024, 1, 1, 12, 0, 0, 999, loc),
		Availability: models.Availability{AvailableFrom: &from},
	}

	normalizeTimes(&p, time.Microsecond)

	assert.Equal(t, time.UTC, p.CreatedAt.Location())
	assert.Equal(t, 9, p.CreatedAt.Hour())
	assert.Equal(t, 0, p.CreatedAt.Nanosecond())
	assert.Equal(t, time.UTC, p.Availability.AvailableFrom.Location())
	assert.Equal(t, 1000, p.Availability.AvailableFrom.Nanosecond())
}

package gateway

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Runs against a live server only when TEST_MONGO_URI is set.
func newMongoGateway(t *testing.T) *MongoGateway {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database("neighbor_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewMongo(db, NewLocalFeed())
}

func TestMongo_FindUpdateIfIncrement(t *testing.T) {
	gw := newMongoGateway(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	seedProperty(t, gw, "p1", 900, 1, "apartment", base)
	seedProperty(t, gw, "p2", 1500, 2, "apartment", base)
	seedProperty(t, gw, "p3", 2500, 3, "house", base.Add(time.Hour))

	page, err := List[models.Property](ctx, gw, Query{
		Collection: models.CollectionProperties,
		Filters:    []Filter{Where(models.FieldPrice, OpGte, 1000.0)},
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
		Limit:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, ids(page.Items))

	page, err = List[models.Property](ctx, gw, Query{
		Collection: models.CollectionProperties,
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
		After:      page.Next,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids(page.Items))

	require.NoError(t, gw.UpdateIf(ctx, models.CollectionProperties, "p1", 1, map[string]any{models.FieldTitle: "renamed"}))
	assert.ErrorIs(t, gw.UpdateIf(ctx, models.CollectionProperties, "p1", 1, map[string]any{models.FieldTitle: "lost"}), ErrConflict)

	c := models.Conversation{ID: "c1", Participants: []string{"a", "b"}, ParticipantKey: "a|b", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, gw.Create(ctx, models.CollectionConversations, &c))
	require.NoError(t, gw.Increment(ctx, models.CollectionConversations, "c1", models.FieldUnreadCount, 2, nil))

	convs, err := List[models.Conversation](ctx, gw, Query{
		Collection: models.CollectionConversations,
		Filters:    []Filter{Where(models.FieldParticipants, OpArrayContains, "b")},
	})
	require.NoError(t, err)
	require.Len(t, convs.Items, 1)
	assert.Equal(t, 2, convs.Items[0].UnreadCount)

	var missing models.Property
	assert.ErrorIs(t, gw.Get(ctx, models.CollectionProperties, "nope", &missing), ErrNotFound)
}

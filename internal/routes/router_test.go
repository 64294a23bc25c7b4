package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chamsedd0/neighbor/internal/blob"
	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/events"
	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/chamsedd0/neighbor/internal/testutil"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/chamsedd0/neighbor/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{
		JWTSecret:   "test-secret",
		Env:         "test",
		FrontendURL: "http://localhost:3000",
	}
	logger.InitWithWriter("test", os.Stderr)
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// revocations serves both sides of sign-out: the store revokes, the
// middleware checks.
type revocations struct {
	mu  sync.Mutex
	ids map[string]bool
}

func (r *revocations) Revoke(_ context.Context, jti string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[jti] = true
	return nil
}

func (r *revocations) IsRevoked(_ context.Context, jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[jti]
}

type api struct {
	t      *testing.T
	router *gin.Engine
	gw     gateway.Gateway
	blobs  *blob.MemoryStore
	events *events.Recorder
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gw := gateway.NewGorm(testutil.NewSQLite(t), gateway.NewLocalFeed())
	users := stores.NewUserDirectory(gw, time.Minute)
	t.Cleanup(users.Close)
	revoked := &revocations{ids: map[string]bool{}}
	mem := blob.NewMemory("http://test/blobs")
	rec := &events.Recorder{}

	router := NewRouter(Options{
		Config: config.AppConfig,
		Stores: stores.Deps{
			Gateway: gw,
			Blobs:   mem,
			Events:  rec,
			Users:   users,
			Revoker: revoked,
		},
		Revoked:     revoked,
		MemoryBlobs: mem,
	})
	return &api{t: t, router: router, gw: gw, blobs: mem, events: rec}
}

func (a *api) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) call(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, token)
}

// user inserts a profile directly and returns a token for it.
func (a *api) user(id string, role models.Role) string {
	a.t.Helper()
	now := time.Now()
	u := models.User{ID: id, Email: id + "@example.com", DisplayName: id, Role: role, CreatedAt: now, UpdatedAt: now}
	require.NoError(a.t, a.gw.Create(context.Background(), models.CollectionUsers, &u))
	token, err := utils.GenerateToken(id, string(role))
	require.NoError(a.t, err)
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func (a *api) createProperty(token, title string, price float64) string {
	a.t.Helper()
	w := a.call(http.MethodPost, "/api/properties", token, gin.H{
		"title":     title,
		"price":     price,
		"priceUnit": "month",
		"bedrooms":  2,
		"location":  gin.H{"city": "Lisbon", "country": "PT"},
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(a.t, w)["property"].(map[string]any)["id"].(string)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	w := a.call(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "Owner@Example.com", "password": "secret1", "role": "owner", "displayName": "Olga",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	token := body["token"].(string)
	assert.Equal(t, "owner@example.com", body["user"].(map[string]any)["email"])
	assert.NotEmpty(t, body["toasts"])

	w = a.call(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "owner@example.com", "password": "secret1", "role": "owner",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already in use")

	w = a.call(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "x@example.com", "password": "secret1", "role": "landlord",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.call(http.MethodPost, "/api/auth/login", "", gin.H{"email": "owner@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.call(http.MethodPost, "/api/auth/login", "", gin.H{"email": "owner@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.call(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Olga", decode(t, w)["user"].(map[string]any)["displayName"])

	w = a.call(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.call(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token has been revoked")
}

func TestPropertyRoutes(t *testing.T) {
	a := newAPI(t)
	owner := a.user("owner_1", models.RoleOwner)
	other := a.user("owner_2", models.RoleOwner)
	tenant := a.user("tenant_1", models.RoleTenant)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ids = append(ids, a.createProperty(owner, fmt.Sprintf("Flat %d", i), float64(1000+i*500)))
		time.Sleep(2 * time.Millisecond)
	}

	w := a.call(http.MethodPost, "/api/properties", tenant, gin.H{"title": "x", "price": 1, "priceUnit": "day"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.call(http.MethodPost, "/api/properties", owner, gin.H{"title": "x", "price": 1, "priceUnit": "year"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// newest first, two per page
	w = a.call(http.MethodGet, "/api/properties?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	items := page["properties"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, ids[2], items[0].(map[string]any)["id"])
	assert.Equal(t, ids[1], items[1].(map[string]any)["id"])
	cursor, ok := page["nextCursor"].(string)
	require.True(t, ok)

	w = a.call(http.MethodGet, "/api/properties?limit=2&cursor="+cursor, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode(t, w)
	items = page["properties"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, ids[0], items[0].(map[string]any)["id"])
	assert.Nil(t, page["nextCursor"])

	w = a.call(http.MethodGet, "/api/properties?cursor=not-a-cursor", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.call(http.MethodGet, "/api/properties?minPrice=1200&bedrooms=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["properties"], 2)

	w = a.call(http.MethodGet, "/api/properties/mine", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["properties"], 3)

	w = a.call(http.MethodGet, "/api/properties/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Property not found")

	w = a.call(http.MethodPatch, "/api/properties/"+ids[0], other, gin.H{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.call(http.MethodPatch, "/api/properties/"+ids[0], owner, gin.H{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)["property"].(map[string]any)
	assert.Equal(t, "Renamed", updated["title"])
	assert.Equal(t, float64(2), updated["version"])

	w = a.call(http.MethodDelete, "/api/properties/"+ids[0], owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.call(http.MethodGet, "/api/properties/"+ids[0], "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var actions []events.Action
	for _, e := range a.events.Events() {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, events.ActionCreate)
	assert.Contains(t, actions, events.ActionUpdate)
	assert.Contains(t, actions, events.ActionDelete)
}

func imageRequest(t *testing.T, path, contentType string, featured bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="front door.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("isFeatured", fmt.Sprint(featured)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPropertyImageRoutes(t *testing.T) {
	a := newAPI(t)
	owner := a.user("owner_1", models.RoleOwner)
	id := a.createProperty(owner, "Loft", 900)
	path := "/api/properties/" + id + "/images"

	w := a.do(imageRequest(t, path, "text/plain", false), owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(imageRequest(t, path, "image/png", true), owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)["image"].(map[string]any)
	assert.Equal(t, true, first["isFeatured"])

	w = a.do(imageRequest(t, path, "image/png", true), owner)
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode(t, w)["image"].(map[string]any)
	assert.Equal(t, 2, a.blobs.Len())

	w = a.call(http.MethodGet, strings.TrimPrefix(second["url"].(string), "http://test"), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = a.call(http.MethodGet, "/api/properties/"+id, "", nil)
	images := decode(t, w)["property"].(map[string]any)["images"].([]any)
	require.Len(t, images, 2)
	featured := 0
	for _, img := range images {
		if img.(map[string]any)["isFeatured"] == true {
			featured++
			assert.Equal(t, second["id"], img.(map[string]any)["id"])
		}
	}
	assert.Equal(t, 1, featured)

	w = a.call(http.MethodDelete, path+"/"+first["id"].(string), owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, a.blobs.Len())
}

func TestBookingRoutes(t *testing.T) {
	a := newAPI(t)
	owner := a.user("owner_1", models.RoleOwner)
	tenant := a.user("tenant_1", models.RoleTenant)
	stranger := a.user("tenant_2", models.RoleTenant)
	propertyID := a.createProperty(owner, "Flat", 1500)

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	w := a.call(http.MethodPost, "/api/bookings", tenant, gin.H{
		"propertyId": propertyID, "startDate": start, "endDate": start.AddDate(0, 0, 30),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode(t, w)["booking"].(map[string]any)
	id := booking["id"].(string)
	assert.Equal(t, "owner_1", booking["ownerId"])
	assert.Equal(t, float64(1500), booking["totalPrice"])
	assert.Equal(t, "pending", booking["status"])

	w = a.call(http.MethodPost, "/api/bookings", tenant, gin.H{
		"propertyId": propertyID, "startDate": start, "endDate": start,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.call(http.MethodPost, "/api/bookings", owner, gin.H{
		"propertyId": propertyID, "startDate": start, "endDate": start.AddDate(0, 0, 1),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.call(http.MethodGet, "/api/bookings", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["bookings"], 1)

	w = a.call(http.MethodGet, "/api/bookings?scope=tenant", stranger, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["bookings"], 0)

	w = a.call(http.MethodGet, "/api/bookings?scope=property&propertyId="+propertyID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["bookings"], 1)

	w = a.call(http.MethodGet, "/api/bookings?scope=property&propertyId="+propertyID, tenant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.call(http.MethodGet, "/api/bookings?scope=everything", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.call(http.MethodGet, "/api/bookings/"+id, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.call(http.MethodPatch, "/api/bookings/"+id+"/status", owner, gin.H{"status": "on-hold"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.call(http.MethodPatch, "/api/bookings/"+id+"/status", owner, gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "approved", decode(t, w)["booking"].(map[string]any)["status"])

	w = a.call(http.MethodDelete, "/api/bookings/"+id, tenant, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.call(http.MethodGet, "/api/bookings/"+id, tenant, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingAuthority(t *testing.T) {
	a := newAPI(t)
	owner := a.user("owner_7", models.RoleOwner)
	tenant := a.user("tenant_7", models.RoleTenant)
	propertyID := a.createProperty(owner, "Loft", 1500)

	start := time.Date(2031, 3, 1, 0, 0, 0, 0, time.UTC)
	w := a.call(http.MethodPost, "/api/bookings", tenant, gin.H{
		"propertyId": propertyID, "startDate": start, "endDate": start.AddDate(0, 0, 30),
		"ownerId": "tenant_7", "totalPrice": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode(t, w)["booking"].(map[string]any)
	id := booking["id"].(string)
	assert.Equal(t, "owner_7", booking["ownerId"])
	assert.Equal(t, float64(1500), booking["totalPrice"])

	statusPath := "/api/bookings/" + id + "/status"
	w = a.call(http.MethodPatch, statusPath, tenant, gin.H{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.call(http.MethodGet, "/api/bookings/"+id, tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode(t, w)["booking"].(map[string]any)["status"])

	w = a.call(http.MethodPatch, statusPath, tenant, gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decode(t, w)["booking"].(map[string]any)["status"])

	// a valid token whose profile is gone has no role
	ghost, err := utils.GenerateToken("ghost_7", string(models.RoleAdmin))
	require.NoError(t, err)
	w = a.call(http.MethodGet, "/api/bookings", ghost, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := a.user("admin_7", models.RoleAdmin)
	w = a.call(http.MethodGet, "/api/bookings", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["bookings"], 1)
}

func TestConversationRoutes(t *testing.T) {
	a := newAPI(t)
	owner := a.user("owner_1", models.RoleOwner)
	tenant := a.user("tenant_1", models.RoleTenant)
	stranger := a.user("tenant_2", models.RoleTenant)

	w := a.call(http.MethodPost, "/api/conversations", tenant, gin.H{"participantId": "nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.call(http.MethodPost, "/api/conversations", tenant, gin.H{"participantId": "owner_1", "propertyId": "p1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	convID := decode(t, w)["conversation"].(map[string]any)["id"].(string)

	w = a.call(http.MethodPost, "/api/conversations", owner, gin.H{"participantId": "tenant_1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, convID, decode(t, w)["conversation"].(map[string]any)["id"])

	msgPath := "/api/conversations/" + convID + "/messages"
	w = a.call(http.MethodPost, msgPath, tenant, gin.H{"content": "Is it <b>free</b>?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decode(t, w)["message"].(map[string]any)
	assert.Equal(t, "owner_1", msg["receiverId"])
	assert.Equal(t, "Is it &lt;b&gt;free&lt;/b&gt;?", msg["content"])

	w = a.call(http.MethodPost, msgPath, tenant, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.call(http.MethodGet, msgPath, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.call(http.MethodGet, "/api/conversations", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	convs := decode(t, w)["conversations"].([]any)
	require.Len(t, convs, 1)
	assert.Equal(t, float64(1), convs[0].(map[string]any)["unreadCount"])

	w = a.call(http.MethodPost, "/api/conversations/"+convID+"/read", owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.call(http.MethodGet, msgPath, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode(t, w)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, true, msgs[0].(map[string]any)["read"])

	w = a.call(http.MethodGet, "/api/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := a.call(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "up", body["database"])
	assert.Equal(t, "disabled", body["redis"])
}

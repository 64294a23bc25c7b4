package blob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutServeDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemory("http://localhost:8080/blobs/")
	ctx := context.Background()

	key := PropertyImageKey("p1", "img1")
	assert.Equal(t, "properties/p1/img1", key)

	url, err := store.Put(ctx, key, strings.NewReader("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/blobs/properties/p1/img1", url)

	r := gin.New()
	r.GET("/blobs/*key", store.Handler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/blobs/properties/p1/img1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg bytes", w.Body.String())

	require.NoError(t, store.Delete(ctx, key))
	assert.ErrorIs(t, store.Delete(ctx, key), ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

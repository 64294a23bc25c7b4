package handlers

import (
	"net/http"
	"strconv"

	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/gin-gonic/gin"
)

const maxPageSize = 50

// ListProperties serves one page of the feed. A client pages forward by
// passing back nextCursor; it is null once the feed is exhausted.
func ListProperties(c *gin.Context) {
	var filters stores.PropertyFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		badRequest(c, "Invalid filters")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxPageSize)
	}

	s := session(c)
	ctx := c.Request.Context()
	var err error
	if token := c.Query("cursor"); token != "" {
		cursor, derr := gateway.DecodeCursor(token)
		if derr != nil {
			fail(c, derr)
			return
		}
		s.Properties.SetFilters(filters)
		s.Properties.SetPageSize(limit)
		s.Properties.SetCursor(cursor)
		err = s.Properties.FetchMoreProperties(ctx)
	} else {
		err = s.Properties.FetchProperties(ctx, filters, limit)
	}
	if err != nil {
		fail(c, err)
		return
	}

	st := s.Properties.State()
	var next *string
	if st.Cursor != nil && len(st.Properties) >= st.PageSize {
		token := st.Cursor.Encode()
		next = &token
	}
	respond(c, http.StatusOK, gin.H{
		"properties": list(st.Properties),
		"nextCursor": next,
		"filters":    st.Filters,
	})
}

func GetProperty(c *gin.Context) {
	p, err := session(c).Properties.FetchPropertyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"property": p})
}

// MyProperties lists the signed-in owner's listings.
func MyProperties(c *gin.Context) {
	s := session(c)
	if err := s.Properties.FetchOwnerProperties(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"properties": list(s.Properties.State().UserProperties)})
}

func CreateProperty(c *gin.Context) {
	var input stores.PropertyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !input.PriceUnit.Valid() {
		badRequest(c, "priceUnit must be day, week or month")
		return
	}

	s := session(c)
	ctx := c.Request.Context()
	id, err := s.Properties.CreateProperty(ctx, input)
	if err != nil {
		fail(c, err)
		return
	}
	p, err := s.Properties.FetchPropertyByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"property": p})
}

func UpdateProperty(c *gin.Context) {
	var input stores.PropertyUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	if input.PriceUnit != nil && !input.PriceUnit.Valid() {
		badRequest(c, "priceUnit must be day, week or month")
		return
	}

	s := session(c)
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := s.Properties.UpdateProperty(ctx, id, input); err != nil {
		fail(c, err)
		return
	}
	p, err := s.Properties.FetchPropertyByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"property": p})
}

func DeleteProperty(c *gin.Context) {
	if err := session(c).Properties.DeleteProperty(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Property deleted"})
}

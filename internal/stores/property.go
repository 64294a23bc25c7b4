package stores

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chamsedd0/neighbor/internal/blob"
	"github.com/chamsedd0/neighbor/internal/events"
	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/pkg/utils"
	"gorm.io/datatypes"
)

const (
	DefaultPageSize = 10
	// imageWriteAttempts bounds the optimistic retries of an image list update.
	imageWriteAttempts = 5
)

// identity is the part of the auth store other stores consume.
type identity interface {
	CurrentUserID() string
	Role() models.Role
}

// PropertyFilters narrow a listing query. Zero values are not applied.
type PropertyFilters struct {
	MinPrice     float64 `json:"minPrice,omitempty" form:"minPrice"`
	MaxPrice     float64 `json:"maxPrice,omitempty" form:"maxPrice"`
	Bedrooms     int     `json:"bedrooms,omitempty" form:"bedrooms"`
	Bathrooms    int     `json:"bathrooms,omitempty" form:"bathrooms"`
	PropertyType string  `json:"propertyType,omitempty" form:"propertyType"`
}

func (f PropertyFilters) predicates() []gateway.Filter {
	var out []gateway.Filter
	if f.MinPrice > 0 {
		out = append(out, gateway.Where(models.FieldPrice, gateway.OpGte, f.MinPrice))
	}
	if f.MaxPrice > 0 {
		out = append(out, gateway.Where(models.FieldPrice, gateway.OpLte, f.MaxPrice))
	}
	if f.Bedrooms > 0 {
		out = append(out, gateway.Where(models.FieldBedrooms, gateway.OpGte, f.Bedrooms))
	}
	if f.Bathrooms > 0 {
		out = append(out, gateway.Where(models.FieldBathrooms, gateway.OpGte, f.Bathrooms))
	}
	if f.PropertyType != "" {
		out = append(out, gateway.Where(models.FieldPropertyType, gateway.OpEq, f.PropertyType))
	}
	return out
}

// Matches reports whether p satisfies every supplied filter.
func (f PropertyFilters) Matches(p models.Property) bool {
	return (f.MinPrice <= 0 || p.Price >= f.MinPrice) &&
		(f.MaxPrice <= 0 || p.Price <= f.MaxPrice) &&
		(f.Bedrooms <= 0 || p.Bedrooms >= f.Bedrooms) &&
		(f.Bathrooms <= 0 || p.Bathrooms >= f.Bathrooms) &&
		(f.PropertyType == "" || p.PropertyType == f.PropertyType)
}

// PropertyInput is the caller-supplied part of a new listing.
type PropertyInput struct {
	Title        string                 `json:"title" binding:"required"`
	Description  string                 `json:"description"`
	Price        float64                `json:"price" binding:"required,gt=0"`
	PriceUnit    models.PriceUnit       `json:"priceUnit" binding:"required"`
	Bedrooms     int                    `json:"bedrooms"`
	Bathrooms    int                    `json:"bathrooms"`
	SquareFeet   int                    `json:"squareFeet"`
	PropertyType string                 `json:"propertyType"`
	Location     models.Location        `json:"location"`
	Amenities    []models.Amenity       `json:"amenities"`
	Images       []models.PropertyImage `json:"images"`
	Availability models.Availability    `json:"availability"`
}

// PropertyUpdate is a partial edit. Nil fields are left unchanged. Images are
// edited through the image operations only.
type PropertyUpdate struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Price        *float64             `json:"price"`
	PriceUnit    *models.PriceUnit    `json:"priceUnit"`
	Bedrooms     *int                 `json:"bedrooms"`
	Bathrooms    *int                 `json:"bathrooms"`
	SquareFeet   *int                 `json:"squareFeet"`
	PropertyType *string              `json:"propertyType"`
	Location     *models.Location     `json:"location"`
	Amenities    []models.Amenity     `json:"amenities"`
	Availability *models.Availability `json:"availability"`
}

func (u PropertyUpdate) fields() map[string]any {
	fields := map[string]any{}
	if u.Title != nil {
		fields[models.FieldTitle] = *u.Title
	}
	if u.Description != nil {
		fields[models.FieldDescription] = *u.Description
	}
	if u.Price != nil {
		fields[models.FieldPrice] = *u.Price
	}
	if u.PriceUnit != nil {
		fields[models.FieldPriceUnit] = *u.PriceUnit
	}
	if u.Bedrooms != nil {
		fields[models.FieldBedrooms] = *u.Bedrooms
	}
	if u.Bathrooms != nil {
		fields[models.FieldBathrooms] = *u.Bathrooms
	}
	if u.SquareFeet != nil {
		fields[models.FieldSquareFeet] = *u.SquareFeet
	}
	if u.PropertyType != nil {
		fields[models.FieldPropertyType] = *u.PropertyType
	}
	if u.Location != nil {
		loc := *u.Location
		fields[models.FieldLocation] = &loc
	}
	if u.Amenities != nil {
		fields[models.FieldAmenities] = datatypes.JSONSlice[models.Amenity](u.Amenities)
	}
	if u.Availability != nil {
		avail := *u.Availability
		fields[models.FieldAvailability] = &avail
	}
	return fields
}

type PropertyState struct {
	Properties       []models.Property `json:"properties"`
	UserProperties   []models.Property `json:"userProperties"`
	SelectedProperty *models.Property  `json:"selectedProperty"`
	IsLoading        bool              `json:"isLoading"`
	Error            string            `json:"error,omitempty"`
	Filters          PropertyFilters   `json:"filters"`
	Cursor           *gateway.Cursor   `json:"-"`
	PageSize         int               `json:"pageSize"`
}

// PropertyStore holds the listing views of one session.
type PropertyStore struct {
	storeBase
	gw     gateway.Gateway
	blobs  blob.Store
	events events.Publisher
	auth   identity

	properties     []models.Property
	userProperties []models.Property
	selected       *models.Property
	filters        PropertyFilters
	cursor         *gateway.Cursor
	pageSize       int

	listGen generation
	userGen generation
}

func newPropertyStore(gw gateway.Gateway, blobs blob.Store, pub events.Publisher, auth identity, notifier Notifier, pageSize int) *PropertyStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s := &PropertyStore{gw: gw, blobs: blobs, events: pub, auth: auth, pageSize: pageSize}
	s.setup("properties", notifier)
	return s
}

func (s *PropertyStore) State() PropertyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := PropertyState{
		Properties:     append([]models.Property(nil), s.properties...),
		UserProperties: append([]models.Property(nil), s.userProperties...),
		IsLoading:      s.loading(),
		Error:          s.err,
		Filters:        s.filters,
		Cursor:         s.cursor,
		PageSize:       s.pageSize,
	}
	if s.selected != nil {
		p := *s.selected
		st.SelectedProperty = &p
	}
	return st
}

func (s *PropertyStore) SetFilters(f PropertyFilters) {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
}

func (s *PropertyStore) ClearFilters() {
	s.SetFilters(PropertyFilters{})
}

func (s *PropertyStore) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.pageSize = n
	s.mu.Unlock()
}

// SetCursor resumes pagination from a cursor issued to a client earlier.
func (s *PropertyStore) SetCursor(c *gateway.Cursor) {
	s.mu.Lock()
	s.cursor = c
	s.mu.Unlock()
}

// FetchProperties stores filters and replaces the listing with the first page,
// newest first. pageSize <= 0 keeps the current page size.
func (s *PropertyStore) FetchProperties(ctx context.Context, filters PropertyFilters, pageSize int) error {
	s.mu.Lock()
	s.filters = filters
	if pageSize > 0 {
		s.pageSize = pageSize
	}
	s.mu.Unlock()
	err := s.fetchPage(ctx, false)
	s.failure("Error", err)
	return err
}

// FetchMoreProperties appends the page after the cursor, with the same filters
// and page size. It is a no-op when no cursor is held.
func (s *PropertyStore) FetchMoreProperties(ctx context.Context) error {
	err := s.fetchPage(ctx, true)
	s.failure("Error", err)
	return err
}

func (s *PropertyStore) refresh(ctx context.Context) error {
	return s.fetchPage(ctx, false)
}

func (s *PropertyStore) fetchPage(ctx context.Context, more bool) error {
	s.mu.Lock()
	if more && s.cursor == nil {
		s.mu.Unlock()
		return nil
	}
	q := gateway.Query{
		Collection: models.CollectionProperties,
		Filters:    s.filters.predicates(),
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
		Limit:      s.pageSize,
	}
	if more {
		q.After = s.cursor
	}
	ctx, gen, cancel := s.listGen.next(ctx)
	s.mu.Unlock()
	defer cancel()

	op := "fetchProperties"
	if more {
		op = "fetchMoreProperties"
	}
	return s.track(op, func() error {
		page, err := gateway.List[models.Property](ctx, s.gw, q)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.listGen.stale(gen) {
			return ErrSuperseded
		}
		if err != nil {
			return err
		}
		if more {
			s.properties = append(s.properties, page.Items...)
		} else {
			s.properties = page.Items
		}
		s.cursor = page.Next
		return nil
	})
}

// FetchUserProperties replaces the owner view with userID's listings.
func (s *PropertyStore) FetchUserProperties(ctx context.Context, userID string) error {
	err := s.fetchUserProperties(ctx, "fetchUserProperties", userID)
	s.failure("Error", err)
	return err
}

// FetchOwnerProperties is FetchUserProperties for the signed-in user.
func (s *PropertyStore) FetchOwnerProperties(ctx context.Context) error {
	uid := s.auth.CurrentUserID()
	if uid == "" {
		err := s.track("fetchOwnerProperties", func() error { return ErrViewNotLoggedIn })
		s.failure("Error", err)
		return err
	}
	err := s.fetchUserProperties(ctx, "fetchOwnerProperties", uid)
	s.failure("Error", err)
	return err
}

func (s *PropertyStore) fetchUserProperties(ctx context.Context, op, userID string) error {
	s.mu.Lock()
	ctx, gen, cancel := s.userGen.next(ctx)
	s.mu.Unlock()
	defer cancel()

	return s.track(op, func() error {
		page, err := gateway.List[models.Property](ctx, s.gw, gateway.Query{
			Collection: models.CollectionProperties,
			Filters:    []gateway.Filter{gateway.Where(models.FieldOwnerID, gateway.OpEq, userID)},
			OrderBy:    models.FieldCreatedAt,
			Descending: true,
		})

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.userGen.stale(gen) {
			return ErrSuperseded
		}
		if err != nil {
			return err
		}
		s.userProperties = page.Items
		return nil
	})
}

// FetchPropertyByID loads one listing by key into SelectedProperty.
func (s *PropertyStore) FetchPropertyByID(ctx context.Context, id string) (models.Property, error) {
	var p models.Property
	err := s.track("fetchPropertyById", func() error {
		var err error
		p, err = gateway.Fetch[models.Property](ctx, s.gw, models.CollectionProperties, id)
		if err != nil {
			return notFound(err, ErrPropertyNotFound)
		}
		s.mu.Lock()
		s.selected = &p
		s.mu.Unlock()
		return nil
	})
	s.failure("Error", err)
	return p, err
}

// CreateProperty persists a listing owned by the signed-in user and refreshes
// the owner view. Returns the new id.
func (s *PropertyStore) CreateProperty(ctx context.Context, in PropertyInput) (string, error) {
	var id string
	err := s.track("createProperty", func() error {
		uid := s.auth.CurrentUserID()
		if uid == "" {
			return ErrCreateNotLoggedIn
		}

		now := time.Now()
		p := models.Property{
			ID:           utils.GenerateID(),
			OwnerID:      uid,
			Title:        in.Title,
			Description:  in.Description,
			Price:        in.Price,
			PriceUnit:    in.PriceUnit,
			Bedrooms:     in.Bedrooms,
			Bathrooms:    in.Bathrooms,
			SquareFeet:   in.SquareFeet,
			PropertyType: in.PropertyType,
			Location:     in.Location,
			Amenities:    datatypes.JSONSlice[models.Amenity](in.Amenities),
			Images:       datatypes.JSONSlice[models.PropertyImage](singleFeatured(append([]models.PropertyImage(nil), in.Images...), "")),
			Availability: in.Availability,
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.gw.Create(ctx, models.CollectionProperties, &p); err != nil {
			return err
		}
		id = p.ID
		s.publish(ctx, events.ActionCreate, p.ID)

		err := s.fetchUserProperties(ctx, "fetchOwnerProperties", uid)
		if errors.Is(err, ErrSuperseded) {
			return nil
		}
		return err
	})
	if err != nil {
		s.failure("Error", err)
		return id, err
	}
	s.success("Property added successfully")
	return id, nil
}

// authorize loads the property and checks the session may modify it.
func (s *PropertyStore) authorize(ctx context.Context, id string) (models.Property, error) {
	uid := s.auth.CurrentUserID()
	if uid == "" {
		return models.Property{}, ErrNotLoggedIn
	}
	p, err := gateway.Fetch[models.Property](ctx, s.gw, models.CollectionProperties, id)
	if err != nil {
		return p, notFound(err, ErrPropertyNotFound)
	}
	if p.OwnerID != uid && s.auth.Role() != models.RoleAdmin {
		return p, ErrNotOwner
	}
	return p, nil
}

// UpdateProperty applies a partial edit and refreshes the general listing.
func (s *PropertyStore) UpdateProperty(ctx context.Context, id string, u PropertyUpdate) error {
	err := s.track("updateProperty", func() error {
		if _, err := s.authorize(ctx, id); err != nil {
			return err
		}
		fields := u.fields()
		fields[models.FieldUpdatedAt] = time.Now()
		// Every property write moves the version so pending image edits notice.
		if err := s.gw.Increment(ctx, models.CollectionProperties, id, models.FieldVersion, 1, fields); err != nil {
			return notFound(err, ErrPropertyNotFound)
		}
		s.publish(ctx, events.ActionUpdate, id)
		return ignoreSuperseded(s.refresh(ctx))
	})
	if err != nil {
		s.failure("Error", err)
		return err
	}
	s.success("Property updated successfully")
	return nil
}

// DeleteProperty removes a listing and refreshes the general listing. Bookings
// referencing it are left in place.
func (s *PropertyStore) DeleteProperty(ctx context.Context, id string) error {
	err := s.track("deleteProperty", func() error {
		if _, err := s.authorize(ctx, id); err != nil {
			return err
		}
		if err := s.gw.Delete(ctx, models.CollectionProperties, id); err != nil {
			return notFound(err, ErrPropertyNotFound)
		}
		s.mu.Lock()
		if s.selected != nil && s.selected.ID == id {
			s.selected = nil
		}
		s.mu.Unlock()
		s.publish(ctx, events.ActionDelete, id)
		return ignoreSuperseded(s.refresh(ctx))
	})
	if err != nil {
		s.failure("Error", err)
		return err
	}
	s.success("Property deleted successfully")
	return nil
}

// UploadPropertyImage stores the image blob and appends it to the property's
// image list. With isFeatured the new image becomes the only featured one.
func (s *PropertyStore) UploadPropertyImage(ctx context.Context, propertyID string, body io.Reader, filename, contentType string, isFeatured bool) (models.PropertyImage, error) {
	var img models.PropertyImage
	err := s.track("uploadPropertyImage", func() error {
		if _, err := s.authorize(ctx, propertyID); err != nil {
			return err
		}

		imageID := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), utils.ShortID(), utils.SanitizeFilename(filename))
		key := blob.PropertyImageKey(propertyID, imageID)
		url, err := s.blobs.Put(ctx, key, body, contentType)
		if err != nil {
			return err
		}
		img = models.PropertyImage{ID: imageID, URL: url, IsFeatured: isFeatured}

		err = s.editImages(ctx, propertyID, func(images []models.PropertyImage) []models.PropertyImage {
			return singleFeatured(append(images, img), imageID)
		})
		if err != nil {
			if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
				s.log.Warn().Err(derr).Str("key", key).Msg("Failed to remove orphaned image")
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.failure("Error", err)
		return img, err
	}
	s.success("Property image uploaded successfully")
	return img, nil
}

// DeletePropertyImage removes the blob, then the image entry.
func (s *PropertyStore) DeletePropertyImage(ctx context.Context, propertyID, imageID string) error {
	err := s.track("deletePropertyImage", func() error {
		if _, err := s.authorize(ctx, propertyID); err != nil {
			return err
		}
		err := s.blobs.Delete(ctx, blob.PropertyImageKey(propertyID, imageID))
		if err != nil && !errors.Is(err, blob.ErrNotFound) {
			return err
		}
		return s.editImages(ctx, propertyID, func(images []models.PropertyImage) []models.PropertyImage {
			out := images[:0]
			for _, img := range images {
				if img.ID != imageID {
					out = append(out, img)
				}
			}
			return out
		})
	})
	if err != nil {
		s.failure("Error", err)
		return err
	}
	s.success("Property image deleted successfully")
	return nil
}

// editImages rewrites the image list from a fresh read under the version
// token, retrying when another writer got in first. The selected property is
// updated with the written list.
func (s *PropertyStore) editImages(ctx context.Context, propertyID string, edit func([]models.PropertyImage) []models.PropertyImage) error {
	for attempt := 0; attempt < imageWriteAttempts; attempt++ {
		p, err := gateway.Fetch[models.Property](ctx, s.gw, models.CollectionProperties, propertyID)
		if err != nil {
			return notFound(err, ErrPropertyNotFound)
		}

		images := edit(append([]models.PropertyImage(nil), p.Images...))
		now := time.Now()
		err = s.gw.UpdateIf(ctx, models.CollectionProperties, propertyID, p.Version, map[string]any{
			models.FieldImages:    datatypes.JSONSlice[models.PropertyImage](images),
			models.FieldUpdatedAt: now,
		})
		if errors.Is(err, gateway.ErrConflict) {
			continue
		}
		if err != nil {
			return notFound(err, ErrPropertyNotFound)
		}

		p.Images = images
		p.Version++
		p.UpdatedAt = now
		s.mu.Lock()
		if s.selected != nil && s.selected.ID == propertyID {
			s.selected = &p
		}
		s.mu.Unlock()
		s.publish(ctx, events.ActionUpdate, propertyID)
		return nil
	}
	return ErrTooManyConflicts
}

func (s *PropertyStore) publish(ctx context.Context, action events.Action, id string) {
	e := events.Event{Entity: models.CollectionProperties, Action: action, ID: id, At: time.Now().UTC()}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("Failed to publish property event")
	}
}

// singleFeatured clears every featured flag except one. winner names the image
// that keeps it; with no winner (or a winner that is not featured) the last
// featured image keeps it.
func singleFeatured(images []models.PropertyImage, winner string) []models.PropertyImage {
	keep := -1
	for i, img := range images {
		if img.IsFeatured {
			keep = i
			if img.ID == winner {
				break
			}
		}
	}
	for i := range images {
		images[i].IsFeatured = i == keep
	}
	return images
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}

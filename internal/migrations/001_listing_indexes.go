package migrations

import "gorm.io/gorm"

// Migration001ListingIndexes adds the composite indexes behind the listing and
// booking feeds. Every feed orders by created_at with id as tie-breaker.
func Migration001ListingIndexes() Migration {
	return Migration{
		ID:   "001_listing_indexes",
		Name: "Add listing and booking feed indexes",
		Up: func(db *gorm.DB) error {
			return execAll(db,
				// WHERE ... ORDER BY created_at DESC, id DESC
				`CREATE INDEX IF NOT EXISTS idx_properties_feed ON properties (created_at DESC, id DESC)`,
				// WHERE owner_id = ? ORDER BY created_at DESC
				`CREATE INDEX IF NOT EXISTS idx_properties_owner_feed ON properties (owner_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_bookings_tenant_feed ON bookings (tenant_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_bookings_owner_feed ON bookings (owner_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_bookings_property_feed ON bookings (property_id, created_at DESC)`,
			)
		},
		Down: func(db *gorm.DB) error {
			return execAll(db,
				`DROP INDEX IF EXISTS idx_bookings_property_feed`,
				`DROP INDEX IF EXISTS idx_bookings_owner_feed`,
				`DROP INDEX IF EXISTS idx_bookings_tenant_feed`,
				`DROP INDEX IF EXISTS idx_properties_owner_feed`,
				`DROP INDEX IF EXISTS idx_properties_feed`,
			)
		},
	}
}

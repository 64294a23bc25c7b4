package migrations

import (
	"fmt"
	"time"

	"github.com/chamsedd0/neighbor/pkg/logger"
	"gorm.io/gorm"
)

// Migration is one schema change applied on top of AutoMigrate.
type Migration struct {
	ID        string // Unique identifier (e.g., "001_listing_indexes")
	Name      string
	Up        func(db *gorm.DB) error
	Down      func(db *gorm.DB) error
	DependsOn []string
}

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"type:text"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// Migrator handles database migrations
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: GetMigrations(),
	}
}

func (m *Migrator) applied() (map[string]bool, error) {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var records []MigrationRecord
	if err := m.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	out := make(map[string]bool, len(records))
	for _, r := range records {
		out[r.ID] = true
	}
	return out, nil
}

// Run executes all pending migrations
func (m *Migrator) Run() error {
	appliedMap, err := m.applied()
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if appliedMap[migration.ID] {
			continue
		}

		logger.Info().Str("migration", migration.ID).Str("name", migration.Name).Msg("Running migration")

		for _, dep := range migration.DependsOn {
			if !appliedMap[dep] {
				return fmt.Errorf("migration %s depends on %s which is not applied", migration.ID, dep)
			}
		}

		if err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{ID: migration.ID, Name: migration.Name}).Error
		}); err != nil {
			logger.Error().Err(err).Str("migration", migration.ID).Msg("Migration failed")
			return fmt.Errorf("migration %s failed: %w", migration.ID, err)
		}

		appliedMap[migration.ID] = true
		logger.Info().Str("migration", migration.ID).Msg("Migration completed")
	}

	return nil
}

// Rollback reverts the most recently applied migration.
func (m *Migrator) Rollback() error {
	appliedMap, err := m.applied()
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if !appliedMap[migration.ID] {
			continue
		}
		return m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Down(tx); err != nil {
				return fmt.Errorf("rollback %s failed: %w", migration.ID, err)
			}
			logger.Info().Str("migration", migration.ID).Msg("Migration rolled back")
			return tx.Delete(&MigrationRecord{ID: migration.ID}).Error
		})
	}
	return nil
}

// Status lists every known migration with whether it has been applied.
func (m *Migrator) Status() ([]MigrationStatus, error) {
	appliedMap, err := m.applied()
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, len(m.migrations))
	for i, migration := range m.migrations {
		out[i] = MigrationStatus{ID: migration.ID, Name: migration.Name, Applied: appliedMap[migration.ID]}
	}
	return out, nil
}

type MigrationStatus struct {
	ID      string
	Name    string
	Applied bool
}

// GetMigrations returns all registered migrations in order
func GetMigrations() []Migration {
	return []Migration{
		Migration001ListingIndexes(),
		Migration002MessagingIndexes(),
		Migration003ParticipantsGinIndex(),
	}
}

func execAll(db *gorm.DB, statements ...string) error {
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

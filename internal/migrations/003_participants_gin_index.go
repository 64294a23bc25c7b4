package migrations

import "gorm.io/gorm"

// Migration003ParticipantsGinIndex backs the participants @> lookup on
// PostgreSQL. Other dialects scan with LIKE and get no index.
func Migration003ParticipantsGinIndex() Migration {
	return Migration{
		ID:   "003_participants_gin_index",
		Name: "Add GIN index on conversation participants",
		Up: func(db *gorm.DB) error {
			if db.Dialector.Name() != "postgres" {
				return nil
			}
			return execAll(db, `CREATE INDEX IF NOT EXISTS idx_conversations_participants ON conversations USING GIN (participants)`)
		},
		Down: func(db *gorm.DB) error {
			if db.Dialector.Name() != "postgres" {
				return nil
			}
			return execAll(db, `DROP INDEX IF EXISTS idx_conversations_participants`)
		},
	}
}

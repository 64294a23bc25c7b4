package migrations

import "gorm.io/gorm"

// Migration002MessagingIndexes makes the participant key unique, so two
// concurrent first messages cannot open duplicate conversations, and indexes
// the message thread and unread lookups.
func Migration002MessagingIndexes() Migration {
	return Migration{
		ID:        "002_messaging_indexes",
		Name:      "Add conversation and message indexes",
		DependsOn: []string{"001_listing_indexes"},
		Up: func(db *gorm.DB) error {
			return execAll(db,
				`CREATE UNIQUE INDEX IF NOT EXISTS uniq_conversations_participant_key ON conversations (participant_key)`,
				`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages (conversation_id, created_at)`,
				// WHERE conversation_id = ? AND receiver_id = ? AND read = false
				`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (conversation_id, receiver_id, read)`,
			)
		},
		Down: func(db *gorm.DB) error {
			return execAll(db,
				`DROP INDEX IF EXISTS idx_messages_unread`,
				`DROP INDEX IF EXISTS idx_messages_thread`,
				`DROP INDEX IF EXISTS uniq_conversations_participant_key`,
			)
		},
	}
}

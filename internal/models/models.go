package models

// All lists every table for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Channel{},
		&Message{},
		&Comment{},
		&Like{},
		&Follow{},
		&DirectMessage{},
		&Sticker{},
		&UserSticker{},
	}
}

package models

import "gorm.io/gorm"

// Track is a catalog entry. Users reference tracks by id through the
// user_liked_tracks join table; they never own them.
type Track struct {
	gorm.Model
	Title  string `gorm:"not null"`
	Artist string
}

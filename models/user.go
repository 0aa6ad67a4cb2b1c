package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Name        string  `gorm:"not null"`
	Email       string  `gorm:"uniqueIndex;not null"`
	Password    string  `gorm:"not null" json:"-"` // Don't expose password hash
	Role        string  `gorm:"size:32;default:'user'"`
	Birthdate   string  `gorm:"size:32"`
	AvatarURL   string
	LikedTracks []Track `gorm:"many2many:user_liked_tracks;"` // Many-to-Many relationship with Track
}

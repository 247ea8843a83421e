package models

import "gorm.io/gorm"

type Course struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	Category    string // programming, design, business, language, other
	ImageURL    string
	Materials   []Material
}

// Material is one unit of course content. SequenceIndex is assigned
// monotonically at creation and is the canonical unlock order.
type Material struct {
	gorm.Model
	CourseID      uint `gorm:"index;not null"`
	Title         string
	Description   string
	VideoURL      string
	SequenceIndex int `gorm:"not null"`
}

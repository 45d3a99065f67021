package models

import "time"

// MaxDescriptionLength bounds a trophy description in characters so it fits
// in a single Discord embed field.
const MaxDescriptionLength = 1000

// Trophy is an awardable achievement definition. Rows are never updated or deleted.
type Trophy struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:text;not null;default:''"`
	Emoji       string    `json:"emoji" gorm:"type:varchar(64);not null;default:''"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
	CreatedBy   string    `json:"created_by" gorm:"type:varchar(32);not null"`
}

func (Trophy) TableName() string { return "trophies" }

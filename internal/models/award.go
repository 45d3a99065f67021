package models

import "time"

// Award records that a user holds a trophy. The (UserID, TrophyID) pair is
// the primary key, so a trophy can be held at most once per user.
//
// Trophy is only populated by queries that join it; AwardedBy is nil when
// the granting actor is unknown.
type Award struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(32)"`
	TrophyID  uint      `json:"trophy_id" gorm:"primaryKey;autoIncrement:false;index"`
	AwardedAt time.Time `json:"awarded_at" gorm:"not null;index"`
	AwardedBy *string   `json:"awarded_by,omitempty" gorm:"type:varchar(32)"`

	Trophy *Trophy `json:"trophy,omitempty" gorm:"foreignKey:TrophyID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (Award) TableName() string { return "awards" }

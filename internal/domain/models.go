package domain

import "time"

// Post only exists in demo seed data and dashboard counters.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   *string   `json:"content"`
	Published bool      `gorm:"not null;default:false" json:"published"`
	AuthorID  *uint     `gorm:"index" json:"authorId"`
	Author    *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Post) TableName() string { return "posts" }

// Stats feeds the analytics dashboard page.
type Stats struct {
	Users     int64
	Admins    int64
	Posts     int64
	Published int64
}

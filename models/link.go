package models

import "time"

// Link is a stored short link.
type Link struct {
	ID          int64     `db:"id" gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	ShortID     string    `db:"short_id" gorm:"size:16;uniqueIndex;not null" json:"shortId"`
	OriginalURL string    `db:"original_url" gorm:"not null" json:"originalUrl"`
	Clicks      int64     `db:"clicks" gorm:"not null;default:0" json:"clicks"`
	CreatedAt   time.Time `db:"created_at" gorm:"index" json:"createdAt"`
	ExpiresAt   time.Time `db:"expires_at" gorm:"not null" json:"expiresAt"`
}

// IsExpired reports whether the link can no longer be resolved at t.
func (l *Link) IsExpired(t time.Time) bool {
	return t.After(l.ExpiresAt)
}

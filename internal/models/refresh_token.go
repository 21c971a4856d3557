package models

import "time"

// RefreshToken is the server-side record of one outstanding refresh-token grant.
// ID equals the "tid" claim embedded in the signed token. Revoked only moves false -> true.
type RefreshToken struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"index;size:36;not null" json:"userId"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expiresAt"`
	Revoked   bool       `gorm:"index;not null;default:false" json:"revoked"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

// IsLive reports whether the record can still be used for rotation or logout.
func (t *RefreshToken) IsLive(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

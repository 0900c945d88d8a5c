package models

import "time"

// RoleName enumerates the RBAC roles.
type RoleName string

const (
	RoleAdmin  RoleName = "admin"
	RoleMember RoleName = "member"
)

// User represents an authenticated account.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Password  string    `json:"-"`
	Role      RoleName  `gorm:"type:varchar(16)" json:"role"`
	Suspended bool      `gorm:"not null;default:false" json:"suspended"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Household is the tenant boundary. Every speaker, rule, and token is
// scoped to exactly one household.
type Household struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex" json:"name"`
	VendorID  string    `gorm:"index" json:"vendor_id"` // household id in the vendor cloud
	Timezone  string    `gorm:"type:varchar(32)" json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Speaker is a single player device known to the vendor cloud.
type Speaker struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	HouseholdID   string    `gorm:"type:uuid;index" json:"household_id"`
	VendorID      string    `gorm:"index" json:"vendor_id"` // player id in the vendor cloud
	Name          string    `json:"name"`
	DefaultVolume int       `json:"default_volume"` // 0 means "leave volume alone"
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DeviceToken stores the OAuth2 grant for one control device.
type DeviceToken struct {
	DeviceID     string    `gorm:"primaryKey;type:varchar(128)" json:"device_id"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	TokenType    string    `gorm:"type:varchar(32)" json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token is past its expiry, with a
// small safety margin so callers refresh before the vendor rejects it.
func (t DeviceToken) Expired() bool {
	return time.Now().After(t.ExpiresAt.Add(-30 * time.Second))
}

// VibeTag maps a vendor favorite to a vibe. Favorites themselves live
// in the vendor cloud; only the tagging is ours.
type VibeTag struct {
	HouseholdID string    `gorm:"type:uuid;primaryKey" json:"household_id"`
	FavoriteID  string    `gorm:"primaryKey;type:varchar(128)" json:"favorite_id"`
	Vibe        Vibe      `gorm:"type:varchar(16)" json:"vibe"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// APIKey is a long-lived credential for automation clients.
type APIKey struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string     `gorm:"type:uuid;index" json:"user_id"`
	Name       string     `json:"name"`
	KeyHash    string     `gorm:"uniqueIndex;type:varchar(64)" json:"-"`
	KeyPrefix  string     `gorm:"type:varchar(16)" json:"key_prefix"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsExpired reports whether the key is past its expiry.
func (k APIKey) IsExpired() bool {
	return !k.ExpiresAt.IsZero() && time.Now().After(k.ExpiresAt)
}

// IsRevoked reports whether the key has been revoked.
func (k APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

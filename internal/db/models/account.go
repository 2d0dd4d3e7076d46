package models

import "time"

// Account stores the credential material for one upstream ChatGPT identity.
type Account struct {
	ID    uint   `gorm:"primaryKey"`
	Email string `gorm:"uniqueIndex;size:64"`

	// Reversibly encrypted upstream password (internal/secret), not a hash.
	// Empty when the account was imported with tokens only.
	EncryptedPassword string `gorm:"size:1024"`

	AccessToken  string `gorm:"size:4096"`
	SessionToken string `gorm:"size:4096"`
	PUID         string `gorm:"size:1024"` // Plus-tier CDN identifier, meaningless when IsPlus is false

	// Set only when the corresponding field actually changed.
	AccessTokenRefreshTime  *time.Time
	SessionTokenRefreshTime *time.Time
	PUIDRefreshTime         *time.Time

	IsPlus   bool `gorm:"default:false"`
	IsActive bool `gorm:"default:true"`

	CreateTime time.Time `gorm:"autoCreateTime"`
}

// HasCredentials reports whether the account can be re-authenticated at all.
// Active accounts without a password or access token are unrefreshable and
// must be skipped by rotation.
func (a *Account) HasCredentials() bool {
	return a.EncryptedPassword != "" || a.AccessToken != ""
}

package models

import "time"

// Keys of the durable token table. They match the key names the browser
// build kept in local storage so an exported profile reads the same.
const (
	TokenKey        = "token"
	RefreshTokenKey = "refresh_token"
)

// Credential is the active bearer/refresh pair.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

// TokenRecord is one key/value row of the session database.
type TokenRecord struct {
	Key       string `gorm:"primaryKey;type:varchar(64)"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (TokenRecord) TableName() string { return "session_tokens" }

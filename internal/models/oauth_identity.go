package models

// OAuthIdentity links a (provider, subject) pair from a federated identity
// provider to exactly one local user. Rows are created on first federated
// login and are immutable afterwards.
type OAuthIdentity struct {
	BaseModel

	Provider string `gorm:"not null;uniqueIndex:idx_provider_subject" json:"provider"`
	Subject  string `gorm:"not null;uniqueIndex:idx_provider_subject" json:"subject"`
	Email    string `json:"email"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

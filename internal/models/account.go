package models

// Account represents a registered user of the store.
type Account struct {
	ID       int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Username string `json:"username" gorm:"type:text;not null" validate:"required"`
	Email    string `json:"email" gorm:"type:text;not null;uniqueIndex:idx_email" validate:"required"`
	Password string `json:"-" gorm:"type:text;not null" validate:"required"` // bcrypt hash, never serialized
}

// TableName keeps the accounts in the users table.
func (Account) TableName() string {
	return "users"
}

package models

import (
	"time"
)

// SocialAccount is a connected platform account. AccessToken and
// TokenSecret are stored encrypted.
type SocialAccount struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"userId"`
	Platform        string    `db:"platform" json:"platform"`
	AccountID       string    `db:"account_id" json:"accountId"`
	AccountName     string    `db:"account_name" json:"accountName"`
	AccountUsername string    `db:"account_username" json:"accountUsername"`
	ProfilePicture  string    `db:"profile_picture_url" json:"profilePicture"`
	AccessToken     string    `db:"access_token" json:"-"`
	TokenSecret     string    `db:"token_secret" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

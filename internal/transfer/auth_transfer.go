package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type LinkedInUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

type TwitterRequestToken struct {
	Token             string
	TokenSecret       string
	CallbackConfirmed bool
}

type TwitterAccessToken struct {
	Token       string
	TokenSecret string
	UserID      string
	ScreenName  string
}

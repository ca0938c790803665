package transfer

type TwitterRelayRequest struct {
	Content          string `json:"content" validate:"required"`
	OAuthToken       string `json:"oauthToken" validate:"required"`
	OAuthTokenSecret string `json:"oauthTokenSecret" validate:"required"`
	MediaURL         string `json:"mediaUrl,omitempty"`
}

type TwitterRelayResponse struct {
	Success  bool   `json:"success"`
	TweetID  string `json:"tweetId"`
	HasMedia bool   `json:"hasMedia"`
}

type LinkedInRelayRequest struct {
	Content     string `json:"content" validate:"required"`
	AccessToken string `json:"accessToken" validate:"required"`
	UserID      string `json:"userId"`
	MediaURL    string `json:"mediaUrl,omitempty"`
}

type LinkedInRelayResponse struct {
	Success  bool   `json:"success"`
	PostID   string `json:"postId"`
	HasMedia bool   `json:"hasMedia"`
}

type RelayErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

package domain

// TokenPair is what a successful login returns: a short-lived access token
// and a long-lived refresh token, both JWTs bound to the user identity.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // seconds until access expiry
}

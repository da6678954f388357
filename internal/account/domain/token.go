package domain

// TokenPair is what a successful login or refresh returns. Both tokens are
// JWTs minted in the same instant: they share a session id and issued-at, so
// blacklisting the session or revoking by issued-at invalidates the pair as a
// unit.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expiresIn"`           // seconds until access token expiry
}

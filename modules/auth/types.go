package auth

// TokenPair holds an access/refresh token pair returned on login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// Claims is the authenticated identity extracted from a validated token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// GoogleProfile is the identity payload received from Google sign-in.
type GoogleProfile struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

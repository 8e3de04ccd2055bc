package identity

// PasswordRequest is the body sent to accounts:signInWithPassword and
// accounts:signUp.
type PasswordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// SignInResponse is the subset of the accounts:signInWithPassword payload the
// session store consumes.
type SignInResponse struct {
	IDToken      string `json:"idToken"`      // Bearer credential, a Firebase ID token (JWT)
	Email        string `json:"email"`        // Email of the signed in account
	LocalID      string `json:"localId"`      // User id
	RefreshToken string `json:"refreshToken"` // Opaque token used for renewal
	ExpiresIn    string `json:"expiresIn"`    // Token lifetime in seconds, as a string
	Registered   bool   `json:"registered,omitempty"`
}

// SignUpResponse is the accounts:signUp payload. Callers only rely on its
// presence.
type SignUpResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	LocalID      string `json:"localId"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// RefreshResponse is the result of exchanging a refresh token at the secure
// token endpoint.
type RefreshResponse struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    string
	UserID       string
}

// errorBody is the failure envelope shared by all identity endpoints:
//
//	{"error": {"code": 400, "message": "EMAIL_NOT_FOUND", "errors": [...]}}
type errorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

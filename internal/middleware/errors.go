package middleware

// ErrorResponse mirrors api.ErrorResponse; it is redeclared here to avoid an
// import cycle.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

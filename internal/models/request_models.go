package models

// SignInRequest is the body of POST /api/auth/signin.
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember,omitempty"`
}

// SignUpRequest is the body of POST /api/auth/signup.
type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DisplayName     string `json:"displayName"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// UpdateProfileRequest is the body of PUT /api/users/me/profile.
// Pointers distinguish fields not provided from fields cleared.
type UpdateProfileRequest struct {
	DisplayName *string   `json:"displayName,omitempty"`
	FarmName    *string   `json:"farmName,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Size        *string   `json:"size,omitempty"`
	Crops       *[]string `json:"crops,omitempty"`
	Bio         *string   `json:"bio,omitempty" binding:"omitempty,max=1000"`
}

// CreateCheckoutSessionRequest is the body of POST /api/create-checkout-session.
type CreateCheckoutSessionRequest struct {
	PriceID string `json:"priceId" binding:"required"`
	UserID  string `json:"userId" binding:"required"`
}

// Empty reports whether the request carries no field to update.
func (r UpdateProfileRequest) Empty() bool {
	return r.DisplayName == nil && r.FarmName == nil && r.Location == nil &&
		r.Size == nil && r.Crops == nil && r.Bio == nil
}

// Apply merges the request into u.
func (r UpdateProfileRequest) Apply(u *User) {
	if r.DisplayName != nil {
		u.DisplayName = *r.DisplayName
	}
	if u.Profile == nil {
		u.Profile = &Profile{}
	}
	if r.FarmName != nil {
		u.Profile.FarmName = *r.FarmName
	}
	if r.Location != nil {
		u.Profile.Location = *r.Location
	}
	if r.Size != nil {
		u.Profile.Size = *r.Size
	}
	if r.Crops != nil {
		u.Profile.Crops = *r.Crops
	}
	if r.Bio != nil {
		u.Profile.Bio = *r.Bio
	}
}

// Fields returns the request as a Firestore merge document.
func (r UpdateProfileRequest) Fields() map[string]interface{} {
	profile := map[string]interface{}{}
	if r.FarmName != nil {
		profile["farmName"] = *r.FarmName
	}
	if r.Location != nil {
		profile["location"] = *r.Location
	}
	if r.Size != nil {
		profile["size"] = *r.Size
	}
	if r.Crops != nil {
		profile["crops"] = *r.Crops
	}
	if r.Bio != nil {
		profile["bio"] = *r.Bio
	}
	fields := map[string]interface{}{}
	if len(profile) > 0 {
		fields["profile"] = profile
	}
	if r.DisplayName != nil {
		fields["displayName"] = *r.DisplayName
	}
	return fields
}

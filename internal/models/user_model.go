package models

import "time"

// Role is the application role stored on a user document.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleAdmin  Role = "admin"
)

// Plan is the subscription tier stored on a user document.
type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// ParsePlan returns the plan named by s, or false when s names no plan.
func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(s); p {
	case PlanBasic, PlanPro, PlanEnterprise:
		return p, true
	}
	return "", false
}

// Profile is the farm profile sub-record of a user.
type Profile struct {
	FarmName string   `json:"farmName,omitempty" firestore:"farmName,omitempty"`
	Location string   `json:"location,omitempty" firestore:"location,omitempty"`
	Size     string   `json:"size,omitempty" firestore:"size,omitempty"`
	Crops    []string `json:"crops,omitempty" firestore:"crops,omitempty"`
	Bio      string   `json:"bio,omitempty" firestore:"bio,omitempty"`
}

// User represents a user in the system.
type User struct {
	ID           string        `json:"id" firestore:"-"` // Firebase Auth UID, will be the document ID
	Email        string        `json:"email" firestore:"email"`
	DisplayName  string        `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	Role         Role          `json:"role" firestore:"role"`
	Plan         Plan          `json:"plan" firestore:"plan"`
	Profile      *Profile      `json:"profile,omitempty" firestore:"profile,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty" firestore:"subscription,omitempty"`
	CreatedAt    time.Time     `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt" firestore:"updatedAt"`
}

// NewUser returns a user record with the creation defaults applied.
func NewUser(id, email, displayName string, now time.Time) *User {
	return &User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		Role:        RoleFarmer,
		Plan:        PlanBasic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyDefaults fills role and plan when a stored record lacks them.
func (u *User) ApplyDefaults() {
	if u.Role == "" {
		u.Role = RoleFarmer
	}
	if u.Plan == "" {
		u.Plan = PlanBasic
	}
}

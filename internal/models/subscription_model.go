package models

import "time"

// Subscription status values mirrored from Stripe.
const (
	SubscriptionActive            = "active"
	SubscriptionPastDue           = "past_due"
	SubscriptionCanceled          = "canceled"
	SubscriptionIncomplete        = "incomplete"
	SubscriptionIncompleteExpired = "incomplete_expired"
	SubscriptionTrialing          = "trialing"
	SubscriptionUnpaid            = "unpaid"
	SubscriptionPaused            = "paused"
)

// Subscription is the billing sub-record embedded in a user document.
type Subscription struct {
	CustomerID       string    `json:"customerId,omitempty" firestore:"customerId,omitempty"`
	SubscriptionID   string    `json:"subscriptionId,omitempty" firestore:"subscriptionId,omitempty"`
	Status           string    `json:"status,omitempty" firestore:"status,omitempty"`
	Plan             string    `json:"plan,omitempty" firestore:"plan,omitempty"`
	CurrentPeriodEnd time.Time `json:"currentPeriodEnd,omitempty" firestore:"currentPeriodEnd,omitempty"`
}

// SubscriptionPatch describes a partial write onto a user's subscription.
// Nil fields are left untouched. UserPlan, when set, also rewrites the
// user-level plan.
type SubscriptionPatch struct {
	CustomerID       *string
	SubscriptionID   *string
	Status           *string
	Plan             *string
	CurrentPeriodEnd *time.Time
	UserPlan         *Plan
}

// Apply merges the patch into sub, allocating it when nil.
func (p SubscriptionPatch) Apply(sub *Subscription) *Subscription {
	if sub == nil {
		sub = &Subscription{}
	}
	if p.CustomerID != nil {
		sub.CustomerID = *p.CustomerID
	}
	if p.SubscriptionID != nil {
		sub.SubscriptionID = *p.SubscriptionID
	}
	if p.Status != nil {
		sub.Status = *p.Status
	}
	if p.Plan != nil {
		sub.Plan = *p.Plan
	}
	if p.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = *p.CurrentPeriodEnd
	}
	return sub
}

// Fields returns the patch as a Firestore merge document.
func (p SubscriptionPatch) Fields() map[string]interface{} {
	sub := map[string]interface{}{}
	if p.CustomerID != nil {
		sub["customerId"] = *p.CustomerID
	}
	if p.SubscriptionID != nil {
		sub["subscriptionId"] = *p.SubscriptionID
	}
	if p.Status != nil {
		sub["status"] = *p.Status
	}
	if p.Plan != nil {
		sub["plan"] = *p.Plan
	}
	if p.CurrentPeriodEnd != nil {
		sub["currentPeriodEnd"] = *p.CurrentPeriodEnd
	}
	fields := map[string]interface{}{}
	if len(sub) > 0 {
		fields["subscription"] = sub
	}
	if p.UserPlan != nil {
		fields["plan"] = string(*p.UserPlan)
	}
	return fields
}

// Empty reports whether the patch would write nothing.
func (p SubscriptionPatch) Empty() bool {
	return len(p.Fields()) == 0
}

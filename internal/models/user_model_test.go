package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewUserDefaults(t *testing.T) {
	u := NewUser("u1", "a@farm.io", "Ana", time.Unix(0, 0))
	assert.Equal(t, RoleFarmer, u.Role)
	assert.Equal(t, PlanBasic, u.Plan)
	assert.Nil(t, u.Subscription)
}

func TestSubscriptionPatchFieldsOnlyCarriesSetValues(t *testing.T) {
	status := SubscriptionCanceled
	fields := SubscriptionPatch{Status: &status}.Fields()
	assert.Equal(t, map[string]interface{}{
		"subscription": map[string]interface{}{"status": "canceled"},
	}, fields)

	assert.True(t, SubscriptionPatch{}.Empty())
}

func TestSubscriptionPatchApplyKeepsUnrelatedFields(t *testing.T) {
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{CustomerID: "cus_1", Plan: "pro", Status: SubscriptionActive}
	status := SubscriptionPastDue

	got := SubscriptionPatch{Status: &status, CurrentPeriodEnd: &end}.Apply(sub)

	assert.Equal(t, "cus_1", got.CustomerID)
	assert.Equal(t, "pro", got.Plan)
	assert.Equal(t, SubscriptionPastDue, got.Status)
	assert.Equal(t, end, got.CurrentPeriodEnd)
}

func TestParsePlan(t *testing.T) {
	p, ok := ParsePlan("enterprise")
	assert.True(t, ok)
	assert.Equal(t, PlanEnterprise, p)

	_, ok = ParsePlan("gold")
	assert.False(t, ok)
}

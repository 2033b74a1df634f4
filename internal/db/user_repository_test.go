package db

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmsense-backend-go/internal/models"
)

// openTestClient connects to the Firestore emulator when one is configured.
func openTestClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "farmsense-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFirestoreUserRepositoryRoundTrip(t *testing.T) {
	client := openTestClient(t)
	repo := NewFirestoreUserRepository(client)
	ctx := context.Background()

	id := uuid.NewString()
	require.NoError(t, repo.Create(ctx, models.NewUser(id, "grower@farm.io", "Grower", time.Now().UTC())))

	err := repo.Create(ctx, models.NewUser(id, "grower@farm.io", "Grower", time.Now().UTC()))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	customer := "cus_" + id
	status := models.SubscriptionActive
	plan := models.PlanPro
	require.NoError(t, repo.UpdateSubscription(ctx, id, models.SubscriptionPatch{
		CustomerID: &customer,
		Status:     &status,
		UserPlan:   &plan,
	}))

	farm := "North Field"
	require.NoError(t, repo.UpdateProfile(ctx, id, models.UpdateProfileRequest{FarmName: &farm}))

	got, err := repo.FindByCustomerID(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.PlanPro, got.Plan)
	assert.Equal(t, models.RoleFarmer, got.Role)
	assert.Equal(t, "grower@farm.io", got.Email)
	require.NotNil(t, got.Profile)
	assert.Equal(t, farm, got.Profile.FarmName)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

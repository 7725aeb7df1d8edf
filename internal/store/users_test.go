package store

import (
	"context"
	"testing"

	"github.com/piloted/finsync/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestUserDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	users, err := OpenUserDirectory(dir)
	assert.NoError(t, err)
	defer users.Close()

	missing, err := users.GetUserByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	user := &models.User{Email: "alice@example.com", Name: "Alice", Password: "hash"}
	assert.NoError(t, users.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID, "id generated when absent")

	byEmail, err := users.GetUserByEmail(ctx, "alice@example.com")
	assert.NoError(t, err)
	assert.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := users.GetUserByID(ctx, user.ID)
	assert.NoError(t, err)
	assert.NotNil(t, byID)
	assert.Equal(t, "Alice", byID.Name)

	// Email is unique.
	dup := &models.User{Email: "alice@example.com", Name: "Other", Password: "hash"}
	assert.Error(t, users.CreateUser(ctx, dup))
}

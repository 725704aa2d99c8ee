package model_test

import (
	"context"
	"testing"

	"github.com/gatherly/gatherly/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	id := uint(1000)
	email := "some@thing.dk"
	user := &model.User{
		ID:    id,
		Email: email,
	}

	ctx := context.Background()

	got, ok := model.GetUserFromContext(ctx)
	assert.Nil(t, got, "want nil when no user is in the context")
	assert.False(t, ok, "want an error when no user is in the context")

	ctx = model.NewContextWithUser(ctx, user)

	got, ok = model.GetUserFromContext(ctx)
	assert.True(t, ok)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, email, got.Email)
}

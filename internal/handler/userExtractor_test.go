package handler

import (
	"testing"

	"github.com/gatherly/gatherly/pkg/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetUserFromContext(t *testing.T) {
	id := uint(1000)
	email := "some@thing.dk"
	user := &model.User{
		ID:    id,
		Email: email,
	}

	c := &gin.Context{}

	c.Set("user", user)

	u, err := GetUserFromContext(c)
	assert.NoError(t, err)

	assert.Equal(t, id, u.ID)
	assert.Equal(t, email, u.Email)
}

func TestGetUserFromContext_NoUser(t *testing.T) {
	c := &gin.Context{}

	_, err := GetUserFromContext(c)
	assert.EqualError(t, err, "user not found on context")
}

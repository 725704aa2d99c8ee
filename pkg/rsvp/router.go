package rsvp

import (
	"github.com/gin-gonic/gin"
)

type authenticator interface {
	TokenAuthentication(c *gin.Context)
}

func Routes(r gin.IRouter, authenticator authenticator, handler Handler) {
	tokenAuthenticationRouter := r.Group("")
	tokenAuthenticationRouter.Use(authenticator.TokenAuthentication)
	tokenAuthenticationRouter.POST("/events/:id/rsvp", handler.Join)
	tokenAuthenticationRouter.DELETE("/events/:id/rsvp", handler.Leave)
}

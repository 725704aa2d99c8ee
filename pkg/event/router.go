package event

import (
	"github.com/gin-gonic/gin"
)

type authenticator interface {
	TokenAuthentication(c *gin.Context)
}

func Routes(r gin.IRouter, authenticator authenticator, handler Handler) {
	r.GET("/events", handler.FindAll)
	r.GET("/events/:id", handler.FindById)
	r.GET("/events/slug/:slug", handler.FindBySlug)

	tokenAuthenticationRouter := r.Group("")
	tokenAuthenticationRouter.Use(authenticator.TokenAuthentication)
	tokenAuthenticationRouter.POST("/events", handler.Create)
	tokenAuthenticationRouter.PUT("/events/:id", handler.Update)
	tokenAuthenticationRouter.DELETE("/events/:id", handler.Delete)
	tokenAuthenticationRouter.GET("/events-mine", handler.Mine)
	tokenAuthenticationRouter.GET("/rsvps-mine", handler.Joined)
}

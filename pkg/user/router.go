package user

import (
	"github.com/gin-gonic/gin"
)

type authenticator interface {
	BasicAuthentication(c *gin.Context)
	TokenAuthentication(c *gin.Context)
}

func Routes(r gin.IRouter, authenticator authenticator, handler Handler) {
	r.POST("/users", handler.SignUp)
	r.GET("/users/validate/:token", handler.ValidateEmail)
	r.POST("/refresh", handler.RefreshToken)

	basicAuthenticationRouter := r.Group("")
	basicAuthenticationRouter.Use(authenticator.BasicAuthentication)
	basicAuthenticationRouter.POST("/tokens", handler.SignIn)

	tokenAuthenticationRouter := r.Group("")
	tokenAuthenticationRouter.Use(authenticator.TokenAuthentication)
	tokenAuthenticationRouter.GET("/me", handler.Me)
	tokenAuthenticationRouter.DELETE("/users", handler.SignOut)
}

package user

import (
	"context"
	"net/http"

	"github.com/gatherly/gatherly/internal/errdef"
	"github.com/gatherly/gatherly/internal/handler"
	"github.com/gatherly/gatherly/internal/util"
	"github.com/gatherly/gatherly/pkg/config"
	"github.com/gatherly/gatherly/pkg/model"
	"github.com/gatherly/gatherly/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func NewHandler(config config.Config, userService userService, tokenService tokenService) Handler {
	return Handler{
		config,
		userService,
		tokenService,
	}
}

type Handler struct {
	config       config.Config
	userService  userService
	tokenService tokenService
}

type userService interface {
	SignUp(ctx context.Context, email string, password string) (*model.User, error)
	SignIn(ctx context.Context, email string, password string) (*model.User, error)
	ValidateEmail(ctx context.Context, token uuid.UUID) error
	FindById(ctx context.Context, id uint) (*model.User, error)
	Delete(ctx context.Context, id uint) error
}

type tokenService interface {
	GetTokens(user *model.User, previousTokenId string, rememberMe bool) (*token.Tokens, error)
	ValidateRefreshToken(ctx context.Context, tokenString string) (*token.RefreshTokenData, error)
	SignOut(userId uint) error
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,gte=16,lte=128"`
}

// SignUp user
func (h Handler) SignUp(c *gin.Context) {
	// swagger:route POST /users signUp
	//
	// SignUp user
	//
	// Sign up a user. This endpoint is publicly accessible. A validation email is sent and the
	// account can't sign in before it is validated.
	//
	// responses:
	//   201: User
	//   400: Error
	//   415: Error
	var request SignUpRequest

	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.userService.SignUp(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ValidateEmail user
func (h Handler) ValidateEmail(c *gin.Context) {
	// swagger:route GET /users/validate/{token} validateEmail
	//
	// Validate email
	//
	// Validate the email address a sign up was requested for
	//
	// responses:
	//   200:
	//   400: Error
	//   404: Error
	emailToken, err := uuid.Parse(c.Param("token"))
	if err != nil {
		_ = c.Error(errdef.NewBadRequest("error parsing token: %v", err))
		return
	}

	if err := h.userService.ValidateEmail(c.Request.Context(), emailToken); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusOK)
}

type signInRequest struct {
	RememberMe bool `json:"rememberMe"`
}

// SignIn user
func (h Handler) SignIn(c *gin.Context) {
	// swagger:route POST /tokens signIn
	//
	// Sign in
	//
	// Sign in... And get tokens
	//
	// security:
	//   basicAuth:
	//
	// responses:
	//   201: Tokens
	//   401: Error
	//   403: Error
	//   404: Error
	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var request signInRequest
	_ = c.ShouldBindJSON(&request)

	tokens, err := h.tokenService.GetTokens(user, "", request.RememberMe)
	if err != nil {
		_ = c.Error(err)
		return
	}

	util.SetCookies(c, tokens, request.RememberMe, http.SameSiteStrictMode, h.config.Hostname, h.config.Authentication.AccessTokenExpirationSeconds, h.config.Authentication.RefreshTokenExpirationSeconds, h.config.Authentication.RefreshTokenRememberMeExpirationSeconds)

	c.JSON(http.StatusCreated, tokens)
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken user
func (h Handler) RefreshToken(c *gin.Context) {
	// swagger:route POST /refresh refreshToken
	//
	// Refresh tokens
	//
	// Refresh user tokens. The refresh token is read from the request body or, failing that, the
	// refreshToken cookie.
	//
	// responses:
	//   201: Tokens
	//   400: Error
	//   401: Error
	var request RefreshTokenRequest
	_ = c.ShouldBindJSON(&request)
	if request.RefreshToken == "" {
		cookie, err := c.Cookie("refreshToken")
		if err != nil {
			_ = c.AbortWithError(http.StatusUnauthorized, errdef.NewUnauthorized("no refresh token supplied"))
			return
		}
		request.RefreshToken = cookie
	}

	refreshToken, err := h.tokenService.ValidateRefreshToken(c.Request.Context(), request.RefreshToken)
	if err != nil {
		_ = c.AbortWithError(http.StatusUnauthorized, err)
		return
	}

	user, err := h.userService.FindById(c.Request.Context(), refreshToken.UserId)
	if err != nil {
		if errdef.IsNotFound(err) {
			_ = c.AbortWithError(http.StatusUnauthorized, err)
		} else {
			_ = c.Error(err)
		}
		return
	}

	rememberMe := false
	if cookie, err := c.Cookie("rememberMe"); err == nil {
		rememberMe = cookie == "true"
	}

	tokens, err := h.tokenService.GetTokens(user, refreshToken.ID.String(), rememberMe)
	if err != nil {
		_ = c.Error(err)
		return
	}

	util.SetCookies(c, tokens, rememberMe, http.SameSiteStrictMode, h.config.Hostname, h.config.Authentication.AccessTokenExpirationSeconds, h.config.Authentication.RefreshTokenExpirationSeconds, h.config.Authentication.RefreshTokenRememberMeExpirationSeconds)

	c.JSON(http.StatusCreated, tokens)
}

// Me user
func (h Handler) Me(c *gin.Context) {
	// swagger:route GET /me me
	//
	// User details
	//
	// Current user details
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: User
	//   401: Error
	//   404: Error
	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	freshUser, err := h.userService.FindById(c.Request.Context(), user.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, freshUser)
}

// SignOut user
func (h Handler) SignOut(c *gin.Context) {
	// swagger:route DELETE /users signOut
	//
	// Sign out
	//
	// Sign out user... A JWT can't easily be invalidated so even after calling this endpoint a
	// user can still sign in assuming the JWT isn't expired. However, the token can't be refreshed
	// using the refresh token supplied upon signin
	//
	// security:
	//	oauth2:
	//
	// responses:
	//	200:
	//	401: Error
	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.tokenService.SignOut(user.ID); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusOK)
}

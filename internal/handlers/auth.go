package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chaplog/internal/metrics"
	"chaplog/internal/response"
	"chaplog/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=256"`
	Password string `json:"password" binding:"required,min=8,max=100"`
	UserName string `json:"userName" binding:"required,notblank,max=256"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         userResponse `json:"user"`
}

func toAuth(result service.AuthResult) authResponse {
	return authResponse{
		AccessToken:  result.AccessToken,
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    int64(result.ExpiresIn.Seconds()),
		User:         toUser(result.User),
	}
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Auth.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		UserName:  req.UserName,
		IPAddress: c.ClientIP(),
	})
	metrics.RecordAuthEvent("register", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.OK(c, toAuth(result), "Registration successful")
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Auth.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
	})
	metrics.RecordAuthEvent("login", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.OK(c, toAuth(result), "Login successful")
}

func (h HandlerSet) RefreshToken(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusUnauthorized, service.ErrInvalidRefreshToken.Error())
		return
	}

	result, err := h.svc.Auth.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP())
	metrics.RecordAuthEvent("refresh", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.OK(c, toAuth(result), "Token refreshed")
}

func (h HandlerSet) RevokeToken(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, service.ErrInvalidRevokeToken)
		return
	}

	err := h.svc.Auth.Revoke(c.Request.Context(), currentUser(c).ID, req.RefreshToken, c.ClientIP())
	metrics.RecordAuthEvent("revoke", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.OK(c, nil, "Token revoked")
}

func (h HandlerSet) Me(c *gin.Context) {
	response.OK(c, toUser(currentUser(c)), "")
}

func (h HandlerSet) Validate(c *gin.Context) {
	response.OK(c, gin.H{"valid": true, "userId": currentUser(c).ID}, "Token is valid")
}

package server

import (
	"github.com/gin-gonic/gin"

	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/service/auth"
)

type registerRequest struct {
	Email      string    `json:"email" binding:"required"`
	Password   string    `json:"password" binding:"required"`
	Name       string    `json:"name" binding:"required"`
	Age        int       `json:"age" binding:"required"`
	Gender     db.Gender `json:"gender" binding:"required"`
	LookingFor db.Gender `json:"looking_for" binding:"required"`
	Interests  []string  `json:"interests"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := s.svcs.Auth.Register(c.Request.Context(), auth.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Age:        req.Age,
		Gender:     req.Gender,
		LookingFor: req.LookingFor,
		Interests:  req.Interests,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respondCreated(c, gin.H{
		"user":   ownProfileView(result.User),
		"tokens": tokenView(result.Tokens),
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := s.svcs.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{
		"user":   ownProfileView(result.User),
		"tokens": tokenView(result.Tokens),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "refresh_token is required")
		return
	}

	pair, err := s.svcs.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, tokenView(pair))
}

func (s *Server) handleLogout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "refresh_token is required")
		return
	}

	if err := s.svcs.Auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"logged_out": true})
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "code is required")
		return
	}

	if err := s.svcs.Auth.VerifyEmail(c.Request.Context(), currentUser(c), req.Code); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"verified": true})
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "current_password and new_password are required")
		return
	}

	if err := s.svcs.Auth.ChangePassword(c.Request.Context(), currentUser(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"changed": true})
}

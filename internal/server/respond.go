package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flameapp/flame-backend/internal/apperr"
)

// respondOK writes the success envelope with HTTP 200.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// respondCreated writes the success envelope with HTTP 201.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// respondErr maps any error to its HTTP status and the error envelope.
func respondErr(c *gin.Context, err error) {
	ae := apperr.Map(err)
	c.AbortWithStatusJSON(ae.Status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    ae.Code,
			"message": ae.Message,
		},
	})
}

// respondBadRequest is the shortcut for request-binding failures.
func respondBadRequest(c *gin.Context, msg string) {
	respondErr(c, apperr.Validation(msg))
}

package handlers

import (
	"errors"
	"net/http"
	"sync"

	"raffle/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/logger"
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Warning("gin validator engine is not go-playground/validator; custom rules not installed")
			return
		}
		services.RegisterValidators(engine)
	})
}

// bindJSON decodes the request body into req. On failure it writes a 400 and returns false.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(c, services.ValidationFromError(err))
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return false
	}
	return true
}

// writeError maps service errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var verr *services.ValidationError
	var nerr *services.NotificationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation error", "errors": verr.Fields})
	case errors.As(err, &nerr):
		c.JSON(http.StatusBadGateway, gin.H{"message": "All notification methods failed", "errors": nerr.Errors})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, services.ErrDuplicateEntry),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrPrizeUnavailable),
		errors.Is(err, services.ErrAlreadyWinner):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, services.ErrNoEligibleEntries),
		errors.Is(err, services.ErrConfirmationMismatch),
		errors.Is(err, services.ErrMissingEntryID),
		errors.Is(err, services.ErrMissingPrizeID):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"raffle/internal/auth"
	"raffle/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the raffle service.
type HTTPHandler struct {
	service *services.RaffleService
	auth    *auth.Authenticator
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.RaffleService, authenticator *auth.Authenticator) *HTTPHandler {
	registerValidators()
	return &HTTPHandler{
		service: service,
		auth:    authenticator,
	}
}

// RegisterPublicRoutes registers routes that need no admin session.
func (h *HTTPHandler) RegisterPublicRoutes(router gin.IRouter) {
	router.GET("/healthz", h.Health)
	router.POST("/api/raffle-entries", h.SubmitEntry)
	router.POST("/api/admin/login", h.Login)
}

// RegisterAdminRoutes registers the admin API. The group is expected to run AdminMiddleware.
func (h *HTTPHandler) RegisterAdminRoutes(admin gin.IRouter) {
	admin.GET("/entries", h.ListEntries)
	admin.GET("/entries/export", h.ExportEntriesCSV)
	admin.DELETE("/entries/:id", h.DeleteEntry)
	admin.DELETE("/entries", h.DeleteAllEntries)

	admin.GET("/prizes", h.ListPrizes)
	admin.POST("/prizes", h.CreatePrize)
	admin.PATCH("/prizes/:id", h.UpdatePrize)
	admin.DELETE("/prizes/:id", h.DeletePrize)
	admin.DELETE("/prizes", h.DeleteAllPrizes)

	admin.GET("/winners", h.ListWinners)
	admin.POST("/draw-winner", h.DrawWinner)
	admin.POST("/confirm-winner", h.ConfirmWinner)
	admin.PATCH("/winners/:id/claim-prize", h.ClaimPrize)
	admin.PATCH("/winners/:id/no-show", h.MarkNoShow)
	admin.DELETE("/winners/:id", h.DeleteWinner)
	admin.DELETE("/winners", h.DeleteAllWinners)
	admin.POST("/notify-winner/:winnerId", h.NotifyWinner)
}

// Health reports that the server is up.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SubmitEntry handles a public raffle entry.
func (h *HTTPHandler) SubmitEntry(c *gin.Context) {
	var req services.EntryInput
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.service.SubmitEntry(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges admin credentials for a session token.
func (h *HTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	token, expiresAt, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "expiresAt": expiresAt.UTC().Format(time.RFC3339)})
}

// ListEntries returns all entries with their draw status.
func (h *HTTPHandler) ListEntries(c *gin.Context) {
	entries, err := h.service.ListEntries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ExportEntriesCSV handles the request to download all entries as a CSV file.
func (h *HTTPHandler) ExportEntriesCSV(c *gin.Context) {
	entries, err := h.service.ListEntries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="raffle-entries.csv"`)
	if err := services.WriteEntriesCSV(c.Writer, entries); err != nil {
		logger.Errorf("Error writing entries CSV: %v", err)
	}
}

// DeleteEntry removes one entry and its winner records.
func (h *HTTPHandler) DeleteEntry(c *gin.Context) {
	if err := h.service.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted successfully"})
}

type confirmationRequest struct {
	Confirmation string `json:"confirmation"`
}

// bindConfirmation reads the bulk delete confirmation. A missing body yields an
// empty confirmation, which the service rejects.
func bindConfirmation(c *gin.Context) string {
	var req confirmationRequest
	if c.Request.ContentLength == 0 {
		return ""
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.Confirmation
}

// DeleteAllEntries removes every entry once confirmed.
func (h *HTTPHandler) DeleteAllEntries(c *gin.Context) {
	if err := h.service.DeleteAllEntries(c.Request.Context(), bindConfirmation(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All entries deleted successfully"})
}

// ListPrizes returns all prizes.
func (h *HTTPHandler) ListPrizes(c *gin.Context) {
	prizes, err := h.service.ListPrizes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prizes)
}

// CreatePrize adds a prize.
func (h *HTTPHandler) CreatePrize(c *gin.Context) {
	var req services.PrizeInput
	if !bindJSON(c, &req) {
		return
	}
	prize, err := h.service.CreatePrize(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, prize)
}

// UpdatePrize edits a prize.
func (h *HTTPHandler) UpdatePrize(c *gin.Context) {
	var req services.PrizeUpdate
	if !bindJSON(c, &req) {
		return
	}
	prize, err := h.service.UpdatePrize(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prize)
}

// DeletePrize removes a prize.
func (h *HTTPHandler) DeletePrize(c *gin.Context) {
	if err := h.service.DeletePrize(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prize deleted successfully"})
}

// DeleteAllPrizes removes every prize once confirmed.
func (h *HTTPHandler) DeleteAllPrizes(c *gin.Context) {
	if err := h.service.DeleteAllPrizes(c.Request.Context(), bindConfirmation(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All prizes deleted successfully"})
}

// ListWinners returns all winners with entry and prize details.
func (h *HTTPHandler) ListWinners(c *gin.Context) {
	winners, err := h.service.ListWinners(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, winners)
}

// DrawWinner picks a random eligible entry without recording it.
func (h *HTTPHandler) DrawWinner(c *gin.Context) {
	entry, err := h.service.DrawWinner(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

type confirmWinnerRequest struct {
	EntryID string `json:"entryId"`
}

// ConfirmWinner records a drawn entry as a winner.
func (h *HTTPHandler) ConfirmWinner(c *gin.Context) {
	var req confirmWinnerRequest
	if !bindJSON(c, &req) {
		return
	}
	winner, err := h.service.ConfirmWinner(c.Request.Context(), req.EntryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

type claimPrizeRequest struct {
	PrizeID string `json:"prizeId"`
}

// ClaimPrize assigns a prize to a winner.
func (h *HTTPHandler) ClaimPrize(c *gin.Context) {
	var req claimPrizeRequest
	if !bindJSON(c, &req) {
		return
	}
	winner, err := h.service.ClaimPrize(c.Request.Context(), c.Param("id"), req.PrizeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

// MarkNoShow returns a winner's entry to the pool.
func (h *HTTPHandler) MarkNoShow(c *gin.Context) {
	winner, err := h.service.MarkNoShow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

// DeleteWinner removes one winner record.
func (h *HTTPHandler) DeleteWinner(c *gin.Context) {
	if err := h.service.DeleteWinner(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Winner deleted successfully"})
}

// DeleteAllWinners removes every winner record once confirmed.
func (h *HTTPHandler) DeleteAllWinners(c *gin.Context) {
	if err := h.service.DeleteAllWinners(c.Request.Context(), bindConfirmation(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All winners deleted successfully"})
}

// NotifyWinner sends the winner message by SMS and email.
func (h *HTTPHandler) NotifyWinner(c *gin.Context) {
	outcome, err := h.service.NotifyWinner(c.Request.Context(), c.Param("winnerId"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{
		"message": outcome.Message,
		"notifications": gin.H{
			"sms":   channelStatus(outcome.Result.SMSOK),
			"email": channelStatus(outcome.Result.EmailOK),
		},
		"winner": outcome.Winner,
	}
	if len(outcome.Result.Errors) > 0 {
		resp["errors"] = outcome.Result.Errors
	}
	c.JSON(http.StatusOK, resp)
}

func channelStatus(ok bool) string {
	if ok {
		return "sent"
	}
	return "failed"
}

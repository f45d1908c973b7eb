package api

import (
	"net/http"
	"strconv"

	"lending-core/internal/common/logger"
	"lending-core/internal/voice"

	"github.com/gin-gonic/gin"
)

const contentTypeXML = "application/xml"

// VoiceHandler serves the telephony webhooks and the mailbox admin API.
type VoiceHandler struct {
	router    *voice.CallRouter
	store     voice.VoicemailStore
	directory *voice.Directory
	logger    logger.Logger
}

func NewVoiceHandler(router *voice.CallRouter, store voice.VoicemailStore, directory *voice.Directory, log logger.Logger) *VoiceHandler {
	return &VoiceHandler{
		router:    router,
		store:     store,
		directory: directory,
		logger:    log.WithFields(map[string]interface{}{"component": "voice_api"}),
	}
}

func (h *VoiceHandler) Register(r gin.IRouter) {
	vg := r.Group("/voice")
	vg.POST("/inbound", h.Inbound)
	vg.POST("/ivr", h.IVR)
	vg.POST("/directory", h.DirectorySearch)
	vg.POST("/voicemail", h.VoicemailPrompt)
	vg.POST("/voicemail-complete", h.VoicemailComplete)

	vg.GET("/mailboxes", h.ListMailboxes)
	vg.GET("/mailbox/:mb/messages", h.ListMessages)
	vg.POST("/mailbox/:mb/read", h.MarkRead)
	vg.DELETE("/mailbox/:mb/messages/:id", h.DeleteMessage)
	vg.POST("/provision-user", h.ProvisionUser)
}

// tenant prefers the explicit query parameter and falls back to
// resolving the dialed number from the provider payload.
func (h *VoiceHandler) tenant(c *gin.Context) voice.Tenant {
	switch voice.Tenant(c.Query("tenant")) {
	case voice.TenantSLF:
		return voice.TenantSLF
	case voice.TenantBF:
		return voice.TenantBF
	}
	return h.router.TenantFromTo(c.PostForm("To"))
}

func (h *VoiceHandler) renderMarkup(c *gin.Context, resp *voice.Response) {
	markup, err := resp.Render()
	if err != nil {
		// Render failures are programming errors; still answer the
		// provider with playable markup.
		h.logger.Error("markup render failed", map[string]interface{}{"error": err.Error()})
		markup, _ = voice.NewResponse().Say("We are experiencing technical difficulties. Please try again later.").Hangup().Render()
	}
	c.Data(http.StatusOK, contentTypeXML, []byte(markup))
}

// callFields threads the provider call id through every webhook log
// line so one call can be followed across round-trips.
func (h *VoiceHandler) callFields(c *gin.Context, tenant voice.Tenant) map[string]interface{} {
	return map[string]interface{}{
		"call_sid": c.PostForm("CallSid"),
		"tenant":   string(tenant),
	}
}

func (h *VoiceHandler) Inbound(c *gin.Context) {
	tenant := h.tenant(c)
	h.logger.Info("inbound call", h.callFields(c, tenant))
	h.renderMarkup(c, h.router.Inbound(tenant))
}

func (h *VoiceHandler) IVR(c *gin.Context) {
	tenant := h.tenant(c)
	fields := h.callFields(c, tenant)
	fields["digits"] = c.PostForm("Digits")
	h.logger.Info("menu selection", fields)
	h.renderMarkup(c, h.router.HandleMenuDigit(tenant, c.PostForm("Digits")))
}

func (h *VoiceHandler) DirectorySearch(c *gin.Context) {
	tenant := h.tenant(c)
	fields := h.callFields(c, tenant)
	fields["digits"] = c.PostForm("Digits")
	h.logger.Info("directory lookup", fields)
	h.renderMarkup(c, h.router.HandleDirectoryDigits(tenant, c.PostForm("Digits")))
}

func (h *VoiceHandler) VoicemailPrompt(c *gin.Context) {
	tenant := h.tenant(c)
	fields := h.callFields(c, tenant)
	fields["mailbox_id"] = c.Query("mb")
	h.logger.Info("voicemail prompt", fields)
	h.renderMarkup(c, h.router.VoicemailPrompt(tenant, c.Query("mb")))
}

func (h *VoiceHandler) VoicemailComplete(c *gin.Context) {
	durationSec, _ := strconv.Atoi(c.PostForm("RecordingDuration"))

	tenant := h.tenant(c)
	fields := h.callFields(c, tenant)
	fields["mailbox_id"] = c.Query("mb")
	h.logger.Info("recording complete", fields)

	_, err := h.router.CompleteRecording(
		c.Request.Context(),
		tenant,
		c.Query("mb"),
		c.PostForm("From"),
		c.PostForm("RecordingUrl"),
		durationSec,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *VoiceHandler) ListMailboxes(c *gin.Context) {
	summaries, err := h.router.MailboxSummaries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mailboxes": summaries})
}

func (h *VoiceHandler) ListMessages(c *gin.Context) {
	mailboxID := c.Param("mb")
	if _, err := h.directory.Mailbox(mailboxID); err != nil {
		writeError(c, err)
		return
	}

	msgs, err := h.store.List(c.Request.Context(), mailboxID)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []voice.Voicemail{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type markReadRequest struct {
	ID   string `json:"id" binding:"required"`
	Read *bool  `json:"read"`
}

// MarkRead toggles the read flag of one voicemail. Omitting "read"
// defaults to marking it read.
func (h *VoiceHandler) MarkRead(c *gin.Context) {
	mailboxID := c.Param("mb")
	if _, err := h.directory.Mailbox(mailboxID); err != nil {
		writeError(c, err)
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": err.Error(),
		}})
		return
	}
	read := true
	if req.Read != nil {
		read = *req.Read
	}

	if err := h.store.SetRead(c.Request.Context(), mailboxID, req.ID, read); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": req.ID, "read": read})
}

func (h *VoiceHandler) DeleteMessage(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("mb"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type provisionRequest struct {
	ID    string `json:"id" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Role  string `json:"role"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *VoiceHandler) ProvisionUser(c *gin.Context) {
	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": err.Error(),
		}})
		return
	}

	user, err := h.directory.Provision(voice.User{
		ID:    req.ID,
		Name:  req.Name,
		Role:  req.Role,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("user provisioned", map[string]interface{}{
		"user_id":   user.ID,
		"extension": user.Extension,
	})
	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": user})
}

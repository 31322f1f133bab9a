package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kenatst/docgen/internal/addressbook"
	"github.com/kenatst/docgen/internal/export"
	"github.com/kenatst/docgen/internal/generator"
	"github.com/kenatst/docgen/internal/history"
	"github.com/kenatst/docgen/internal/profile"
	"github.com/kenatst/docgen/internal/signature"
	"github.com/kenatst/docgen/internal/templates"
)

var (
	errMissingHistoryService = errors.New("history service dependency required")
	errMissingProfileService = errors.New("profile service dependency required")
	errMissingContactService = errors.New("address book service dependency required")
)

// Dependencies wires the core services into the HTTP surface.
type Dependencies struct {
	History  *history.Service
	Profiles *profile.Service
	Contacts *addressbook.Service
	Events   *EventDispatcher
	Logger   *zap.Logger
}

// NewHTTPHandler builds the gin router exposing the document pipeline.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.History == nil {
		return nil, errMissingHistoryService
	}
	if deps.Profiles == nil {
		return nil, errMissingProfileService
	}
	if deps.Contacts == nil {
		return nil, errMissingContactService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = NewEventDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		historyService: deps.History,
		profileService: deps.Profiles,
		contactService: deps.Contacts,
		events:         events,
		logger:         logger,
	}

	router.GET("/catalog", handler.handleCatalog)
	router.GET("/templates/:id", handler.handleTemplate)

	router.POST("/documents/validate", handler.handleValidate)
	router.POST("/documents/preview", handler.handlePreview)
	router.POST("/documents", handler.handleGenerate)
	router.GET("/documents", handler.handleHistory)
	router.GET("/documents/:id/export", handler.handleExport)
	router.DELETE("/documents/:id", handler.handleRemoveDocument)
	router.DELETE("/documents", handler.handleClearHistory)
	router.POST("/documents/purge", handler.handlePurgeHistory)

	router.POST("/signature/smooth", handler.handleSmooth)
	router.POST("/signature/render", handler.handleRenderSignature)

	router.GET("/profiles", handler.handleProfiles)
	router.POST("/profiles", handler.handleAddProfile)
	router.PUT("/profiles/active", handler.handleSwitchProfile)
	router.PUT("/profiles/:id", handler.handleRenameProfile)
	router.DELETE("/profiles/:id", handler.handleDeleteProfile)
	router.PUT("/profile", handler.handleSaveProfile)
	router.POST("/profile/apply", handler.handleRequestApply)

	router.GET("/events", handler.handleEvents)

	router.GET("/contacts", handler.handleContacts)
	router.POST("/contacts", handler.handleAddContact)
	router.PUT("/contacts/:id", handler.handleUpdateContact)
	router.DELETE("/contacts/:id", handler.handleRemoveContact)

	return router, nil
}

type httpHandler struct {
	historyService *history.Service
	profileService *profile.Service
	contactService *addressbook.Service
	events         *EventDispatcher
	logger         *zap.Logger
}

type catalogResponsePayload struct {
	Categories []templates.Category   `json:"categories"`
	Templates  []templates.Template   `json:"templates"`
	Tones      []templates.ToneOption `json:"tones"`
}

func (h *httpHandler) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, catalogResponsePayload{
		Categories: templates.Categories(),
		Templates:  templates.Catalog(),
		Tones:      templates.ToneOptions(),
	})
}

func (h *httpHandler) handleTemplate(c *gin.Context) {
	template, category, err := templates.Find(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_template"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": template, "category": category})
}

type documentRequestPayload struct {
	TemplateID       string               `json:"template_id"`
	Values           templates.FormValues `json:"values"`
	Tone             string               `json:"tone"`
	SignatureDataURI string               `json:"signature_data_uri"`
}

func (h *httpHandler) handleValidate(c *gin.Context) {
	var request documentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	template, _, err := templates.Find(request.TemplateID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_template"})
		return
	}

	problems := generator.Validate(template, request.Values)
	if problems == nil {
		problems = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"errors": problems})
}

func (h *httpHandler) handlePreview(c *gin.Context) {
	var request documentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	template, _, err := templates.Find(request.TemplateID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_template"})
		return
	}

	content := generator.Generate(template, request.Values, templates.ParseTone(request.Tone))
	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *httpHandler) handleGenerate(c *gin.Context) {
	var request documentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	template, category, err := templates.Find(request.TemplateID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_template"})
		return
	}

	if problems := generator.Validate(template, request.Values); len(problems) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": problems})
		return
	}

	tone := templates.ParseTone(request.Tone)
	document := history.GeneratedDocument{
		TemplateID:       template.ID,
		TemplateVersion:  template.Version,
		TemplateTitle:    template.Title,
		CategoryTitle:    category.Title,
		Content:          generator.Generate(template, request.Values, tone),
		Values:           request.Values,
		Tone:             tone,
		SignatureDataURI: request.SignatureDataURI,
	}

	stored, err := h.historyService.Add(c.Request.Context(), document)
	if err != nil {
		h.logger.Error("document persistence failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist_failed"})
		return
	}
	h.events.Publish(EventMessage{
		EventType:  EventDocumentAdded,
		DocumentID: stored.ID,
		Timestamp:  time.Now().UTC(),
	})
	c.JSON(http.StatusCreated, stored)
}

func (h *httpHandler) handleHistory(c *gin.Context) {
	documents, err := h.historyService.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("history load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": documents})
}

func (h *httpHandler) handleExport(c *gin.Context) {
	documents, err := h.historyService.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("history load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}

	id := c.Param("id")
	for _, document := range documents {
		if document.ID != id {
			continue
		}
		if err := export.Export(c.Request.Context(), document, htmlResponseSink{writer: c}); err != nil {
			h.logger.Error("export rendering failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
			return
		}
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown_document"})
}

// htmlResponseSink dispatches exported pages straight into the HTTP
// response body.
type htmlResponseSink struct {
	writer *gin.Context
}

func (s htmlResponseSink) Dispatch(_ context.Context, title, html string) error {
	s.writer.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", title+".html"))
	s.writer.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	return nil
}

func (h *httpHandler) handleRemoveDocument(c *gin.Context) {
	if err := h.historyService.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("document removal failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove_failed"})
		return
	}
	h.events.Publish(EventMessage{
		EventType:  EventDocumentRemoved,
		DocumentID: c.Param("id"),
		Timestamp:  time.Now().UTC(),
	})
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleClearHistory(c *gin.Context) {
	if err := h.historyService.Clear(c.Request.Context()); err != nil {
		h.logger.Error("history clear failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear_failed"})
		return
	}
	h.events.Publish(EventMessage{EventType: EventHistoryCleared, Timestamp: time.Now().UTC()})
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handlePurgeHistory(c *gin.Context) {
	if err := h.historyService.Purge(c.Request.Context()); err != nil {
		h.logger.Error("history purge failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purge_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type smoothRequestPayload struct {
	Raw string `json:"raw"`
}

func (h *httpHandler) handleSmooth(c *gin.Context) {
	var request smoothRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": signature.SmoothRawPath(request.Raw)})
}

type renderSignatureRequestPayload struct {
	Strokes [][]signature.Point `json:"strokes"`
	Width   float64             `json:"width"`
	Height  float64             `json:"height"`
}

func (h *httpHandler) handleRenderSignature(c *gin.Context) {
	var request renderSignatureRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Strokes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.Width <= 0 || request.Height <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_dimensions"})
		return
	}

	pad := signature.NewPad(request.Width, request.Height)
	for _, stroke := range request.Strokes {
		for _, point := range stroke {
			pad.Extend(point)
		}
		pad.End()
	}
	if pad.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_signature"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data_uri": pad.DataURI(),
		"paths":    pad.SmoothedPaths(),
	})
}

func (h *httpHandler) handleProfiles(c *gin.Context) {
	entries, activeID, err := h.profileService.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("profile load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profiles":      entries,
		"active_id":     activeID,
		"apply_version": h.profileService.ApplyVersion(),
	})
}

type addProfileRequestPayload struct {
	Label string `json:"label"`
}

func (h *httpHandler) handleAddProfile(c *gin.Context) {
	var request addProfileRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	id, err := h.profileService.Add(c.Request.Context(), request.Label)
	if err != nil {
		h.logger.Error("profile creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type switchProfileRequestPayload struct {
	ID string `json:"id"`
}

func (h *httpHandler) handleSwitchProfile(c *gin.Context) {
	var request switchProfileRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.profileService.Switch(c.Request.Context(), request.ID); err != nil {
		if errors.Is(err, profile.ErrUnknownProfile) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_profile"})
			return
		}
		h.logger.Error("profile switch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "switch_failed"})
		return
	}
	h.events.Publish(EventMessage{
		EventType: EventProfileSwitched,
		ProfileID: request.ID,
		Timestamp: time.Now().UTC(),
	})
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRenameProfile(c *gin.Context) {
	var request addProfileRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.profileService.Rename(c.Request.Context(), c.Param("id"), request.Label); err != nil {
		if errors.Is(err, profile.ErrUnknownProfile) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_profile"})
			return
		}
		h.logger.Error("profile rename failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rename_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDeleteProfile(c *gin.Context) {
	err := h.profileService.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, profile.ErrLastProfile):
		c.JSON(http.StatusConflict, gin.H{"error": "last_profile"})
	case errors.Is(err, profile.ErrUnknownProfile):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_profile"})
	case err != nil:
		h.logger.Error("profile deletion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *httpHandler) handleSaveProfile(c *gin.Context) {
	var request profile.UserProfile
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.profileService.SaveProfile(c.Request.Context(), request); err != nil {
		h.logger.Error("profile save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *httpHandler) handleRequestApply(c *gin.Context) {
	version := h.profileService.RequestApply()
	h.events.Publish(EventMessage{EventType: EventProfileApplied, Timestamp: time.Now().UTC()})
	c.JSON(http.StatusOK, gin.H{"apply_version": version})
}

func (h *httpHandler) handleContacts(c *gin.Context) {
	contacts, err := h.contactService.List(c.Request.Context())
	if err != nil {
		h.logger.Error("contact list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

func (h *httpHandler) handleAddContact(c *gin.Context) {
	var request addressbook.Contact
	if err := c.ShouldBindJSON(&request); err != nil || request.Nom == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	contact, err := h.contactService.Add(c.Request.Context(), request)
	if err != nil {
		h.logger.Error("contact creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add_failed"})
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (h *httpHandler) handleUpdateContact(c *gin.Context) {
	var request addressbook.Contact
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	contact, err := h.contactService.Update(c.Request.Context(), c.Param("id"), request)
	if err != nil {
		if errors.Is(err, addressbook.ErrUnknownContact) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_contact"})
			return
		}
		h.logger.Error("contact update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *httpHandler) handleRemoveContact(c *gin.Context) {
	if err := h.contactService.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("contact removal failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type eventStreamPayload struct {
	Source     string `json:"source"`
	DocumentID string `json:"documentId,omitempty"`
	ProfileID  string `json:"profileId,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// handleEvents streams state-change notifications over server-sent
// events with a periodic heartbeat to keep intermediaries from closing
// the connection.
func (h *httpHandler) handleEvents(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	stream, cleanup := h.events.Subscribe(c.Request.Context())
	defer cleanup()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	c.SSEvent(eventHeartbeat, eventStreamPayload{
		Source:    eventSource,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			c.SSEvent(eventHeartbeat, eventStreamPayload{
				Source:    eventSource,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case message, ok := <-stream:
			if !ok {
				return
			}
			c.SSEvent(message.EventType, eventStreamPayload{
				Source:     eventSource,
				DocumentID: message.DocumentID,
				ProfileID:  message.ProfileID,
				Timestamp:  message.Timestamp.UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		}
	}
}

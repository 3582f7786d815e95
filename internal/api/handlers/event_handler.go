package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/internal/api/middleware"
	"github.com/vanshpatelx/Opinex/internal/models"
	"github.com/vanshpatelx/Opinex/internal/services"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	eventService *services.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// HandleCreateEvent registers a new event. Admin only.
func (h *EventHandler) HandleCreateEvent(c *gin.Context) {
	caller, err := middleware.GetCallerFromContext(c)
	if err != nil {
		WriteError(c, ErrUnauthorized)
		return
	}

	var req models.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid request body")
		WriteError(c, NewValidationError(err.Error()))
		return
	}

	created, err := h.eventService.Create(requestContext(c), req, caller)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// HandleGetEvent returns a single event
func (h *EventHandler) HandleGetEvent(c *gin.Context) {
	caller, err := middleware.GetCallerFromContext(c)
	if err != nil {
		WriteError(c, ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	event, err := h.eventService.GetByID(requestContext(c), id, caller)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// HandleListEvents returns a page of running events
func (h *EventHandler) HandleListEvents(c *gin.Context) {
	caller, err := middleware.GetCallerFromContext(c)
	if err != nil {
		WriteError(c, ErrUnauthorized)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	events, err := h.eventService.ListRunning(requestContext(c), page, caller)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// HandleSettleEvent moves an event into settlement. Admin only.
func (h *EventHandler) HandleSettleEvent(c *gin.Context) {
	caller, err := middleware.GetCallerFromContext(c)
	if err != nil {
		WriteError(c, ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	event, err := h.eventService.Settle(requestContext(c), id, caller)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event settlement started", "event": event})
}

// RegisterRoutes registers the handler's routes
func (h *EventHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/event/", h.HandleCreateEvent)
	router.GET("/event/:id", h.HandleGetEvent)
	router.GET("/events", h.HandleListEvents)
	router.POST("/event/settlement/:id", h.HandleSettleEvent)
}

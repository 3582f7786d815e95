package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/internal/api/middleware"
	"github.com/vanshpatelx/Opinex/internal/models"
	"github.com/vanshpatelx/Opinex/internal/services"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *services.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// HandleCreateOrder places an order for the caller
func (h *OrderHandler) HandleCreateOrder(c *gin.Context) {
	caller, err := middleware.GetCallerFromContext(c)
	if err != nil {
		WriteError(c, ErrUnauthorized)
		return
	}

	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid request body")
		WriteError(c, NewValidationError(err.Error()))
		return
	}

	created, err := h.orderService.Create(requestContext(c), req, caller)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// HandleGetOrder returns a single order owned by the caller
func (h *OrderHandler) HandleGetOrder(c *gin.Context) {
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

	order, err := h.orderService.GetByOrderID(requestContext(c), id, caller)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleListEventOrders returns orders on an event
func (h *OrderHandler) HandleListEventOrders(c *gin.Context) {
	caller, err := middleware.GetCallerFromContext(c)
	if err != nil {
		WriteError(c, ErrUnauthorized)
		return
	}
	eventID, err := pathID(c, "eventID")
	if err != nil {
		WriteError(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	orders, err := h.orderService.ListByEvent(requestContext(c), eventID, page, caller)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// HandleListUserOrders returns a user's orders
func (h *OrderHandler) HandleListUserOrders(c *gin.Context) {
	caller, err := middleware.GetCallerFromContext(c)
	if err != nil {
		WriteError(c, ErrUnauthorized)
		return
	}
	userID, err := pathID(c, "userID")
	if err != nil {
		WriteError(c, err)
		return
	}
	page, err := bindPage(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	orders, err := h.orderService.ListByUser(requestContext(c), userID, page, caller)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// RegisterRoutes registers the handler's routes
func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/order", h.HandleCreateOrder)
	router.GET("/order/:id", h.HandleGetOrder)
	router.GET("/orders/event/:eventID", h.HandleListEventOrders)
	router.GET("/orders/user/:userID", h.HandleListUserOrders)
}

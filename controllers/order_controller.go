package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/services"
)

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	CustomerID *uint                 `json:"customer_id"`
	Priority   string                `json:"priority"`
	Deadline   *time.Time            `json:"deadline"`
	Notes      string                `json:"notes"`
	IsStock    bool                  `json:"is_stock"`
	Products   []OrderProductRequest `json:"products" binding:"required,min=1,dive"`
}

// OrderProductRequest is one product line of a new order
type OrderProductRequest struct {
	ProductID   uint                `json:"product_id" binding:"required"`
	Quantity    int                 `json:"quantity"`
	CustomSteps []CustomStepRequest `json:"customSteps"`
}

// CustomStepRequest overrides the product's template steps for this order
type CustomStepRequest struct {
	StepName        string  `json:"step_name"`
	StepDescription *string `json:"step_description"`
	StepNumber      int     `json:"step_number"`
	AssignedUser    *uint   `json:"assigned_user"`
}

// UpdateOrderStatusRequest represents the request body for changing an order's status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (r CreateOrderRequest) toInput() services.CreateOrderInput {
	input := services.CreateOrderInput{
		CustomerID: r.CustomerID,
		Priority:   r.Priority,
		Deadline:   r.Deadline,
		Notes:      r.Notes,
		IsStock:    r.IsStock,
		Products:   make([]services.OrderProductInput, 0, len(r.Products)),
	}
	for _, p := range r.Products {
		product := services.OrderProductInput{ProductID: p.ProductID, Quantity: p.Quantity}
		for _, s := range p.CustomSteps {
			product.CustomSteps = append(product.CustomSteps, services.CustomStepInput{
				StepName:        s.StepName,
				StepDescription: s.StepDescription,
				StepNumber:      s.StepNumber,
				AssignedUser:    s.AssignedUser,
			})
		}
		input.Products = append(input.Products, product)
	}
	return input
}

func orderService() *services.OrderService {
	return services.NewOrderService(config.GetDB(), services.GetDispatcher())
}

// CreateOrder handles POST /api/v1/orders - creates an order with its items and steps
func CreateOrder(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := orderService().CreateOrder(c.Request.Context(), user.CompanyID, req.toInput())
	if err != nil {
		respondServiceError(c, err, "Failed to create order")
		return
	}

	respondData(c, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders - lists the company's orders, optionally by ?status=
func ListOrders(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	status := strings.ToUpper(c.Query("status"))
	orders, err := orderService().ListOrders(c.Request.Context(), user.CompanyID, status)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve orders")
		return
	}

	respondData(c, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/:id - returns an order with items and steps
func GetOrder(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := orderService().GetOrder(c.Request.Context(), user.CompanyID, orderID)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve order")
		return
	}

	respondData(c, http.StatusOK, order)
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status
func UpdateOrderStatus(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := orderService().SetStatus(c.Request.Context(), user.CompanyID, orderID, strings.ToUpper(req.Status))
	if err != nil {
		respondServiceError(c, err, "Failed to update order status")
		return
	}

	respondData(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func DeleteOrder(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := orderService().DeleteOrder(c.Request.Context(), user.CompanyID, orderID); err != nil {
		respondServiceError(c, err, "Failed to delete order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}

// SkipOrderStep handles POST /api/v1/orders/:id/steps/:stepId/skip
func SkipOrderStep(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	stepID, ok := idParam(c, "stepId")
	if !ok {
		return
	}

	step, completed, err := jobService().Skip(c.Request.Context(), orderID, stepID, user.CompanyID)
	if err != nil {
		respondServiceError(c, err, "Failed to skip step")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"data":           step,
		"orderCompleted": completed,
	})
}

// ReorderOrderSteps handles PUT /api/v1/orders/:id/steps/reorder
func ReorderOrderSteps(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ReorderStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	steps, err := services.NewSequencerService(config.GetDB()).
		ReorderOrderSteps(c.Request.Context(), user.CompanyID, orderID, req.orderedIDs())
	if err != nil {
		respondServiceError(c, err, "Failed to reorder steps")
		return
	}

	respondData(c, http.StatusOK, steps)
}

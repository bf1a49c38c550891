package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/domain"
	"bakery-backend/internal/metrics"
	"bakery-backend/internal/usecase"
)

func orderID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		failJSON(c, http.StatusBadRequest, "Invalid order id")
		return primitive.NilObjectID, false
	}
	return id, true
}

type placeOrderItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type placeOrderReq struct {
	Items           []placeOrderItemReq `json:"items" binding:"required,min=1,dive"`
	TotalPrice      float64             `json:"totalPrice" binding:"required,gt=0"`
	PaymentMethod   string              `json:"paymentMethod"`
	ShippingAddress struct {
		FullName   string `json:"fullName" binding:"required"`
		Phone      string `json:"phone" binding:"required"`
		Address    string `json:"address" binding:"required"`
		City       string `json:"city" binding:"required"`
		PostalCode string `json:"postalCode"`
		Notes      string `json:"notes"`
	} `json:"shippingAddress" binding:"required"`
}

func (s *Server) handlePlaceOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "No order items")
		return
	}
	in := usecase.PlaceOrderInput{
		TotalPrice:    req.TotalPrice,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		ShippingAddress: domain.ShippingAddress{
			FullName:   req.ShippingAddress.FullName,
			Phone:      req.ShippingAddress.Phone,
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Notes:      req.ShippingAddress.Notes,
		},
	}
	for _, it := range req.Items {
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			failJSON(c, http.StatusBadRequest, "Invalid product id")
			return
		}
		in.Items = append(in.Items, usecase.PlaceOrderItem{ProductID: pid, Quantity: it.Quantity})
	}
	o, err := s.orders.Place(c.Request.Context(), actor(c).UserID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	metrics.OrdersPlaced.WithLabelValues(string(o.PaymentMethod)).Inc()
	metrics.OrderAmount.Observe(o.TotalPrice)
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Order placed successfully", "order": o})
}

func (s *Server) handleMyOrders(c *gin.Context) {
	orders, err := s.orders.ListMine(c.Request.Context(), actor(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

func (s *Server) handleAllOrders(c *gin.Context) {
	orders, err := s.orders.ListAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := s.orders.Get(c.Request.Context(), id, actor(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := s.orders.Cancel(c.Request.Context(), id, actor(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order cancelled successfully", "order": o})
}

func (s *Server) handleConfirmDelivery(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := s.orders.ConfirmDelivery(c.Request.Context(), id, actor(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Delivery confirmed. Thank you!", "order": o})
}

func (s *Server) handleUpdateOrderStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "Status is required")
		return
	}
	o, err := s.orders.UpdateStatus(c.Request.Context(), id, domain.OrderStatus(req.Status), actor(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order status updated", "order": o})
}

func (s *Server) handleDeleteOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	if err := s.orders.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order deleted successfully"})
}

func (s *Server) handleOrderStats(c *gin.Context) {
	stats, err := s.orders.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

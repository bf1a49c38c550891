package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "Pending"
	OrderConfirmed      OrderStatus = "Confirmed"
	OrderPreparing      OrderStatus = "Preparing"
	OrderOutForDelivery OrderStatus = "Out for Delivery"
	OrderDelivered      OrderStatus = "Delivered"
	OrderCancelled      OrderStatus = "Cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderOutForDelivery, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
	PaymentCard           PaymentMethod = "Card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentCard
}

// OrderItem is a line item with product attributes captured at placement
// time, so later product edits never alter historical orders.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
}

func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

type ShippingAddress struct {
	FullName   string `bson:"full_name" json:"fullName"`
	Phone      string `bson:"phone" json:"phone"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code,omitempty" json:"postalCode,omitempty"`
	Notes      string `bson:"notes,omitempty" json:"notes,omitempty"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalPrice      float64            `bson:"total_price" json:"totalPrice"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shippingAddress"`
	Status          OrderStatus        `bson:"status" json:"status"`
	PaymentMethod   PaymentMethod      `bson:"payment_method" json:"paymentMethod"`
	IsPaid          bool               `bson:"is_paid" json:"isPaid"`
	PaidAt          *time.Time         `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	ConfirmedAt     *time.Time         `bson:"confirmed_at,omitempty" json:"confirmedAt,omitempty"`
	DeliveredAt     *time.Time         `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ItemsTotal is the sum of line-item subtotals. TotalPrice must equal it at
// construction time; it is not recomputed on read.
func (o *Order) ItemsTotal() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Subtotal()
	}
	return sum
}

// StatusUpdate carries the fields stamped alongside a status transition.
// Nil pointers leave the stored value untouched.
type StatusUpdate struct {
	Status      OrderStatus
	ConfirmedAt *time.Time
	DeliveredAt *time.Time
	IsPaid      *bool
	PaidAt      *time.Time
}

// Apply copies the update onto an order in memory, mirroring what the
// persistence layer stamps on a successful conditional update.
func (u StatusUpdate) Apply(o *Order, now time.Time) {
	o.Status = u.Status
	o.UpdatedAt = now
	if u.ConfirmedAt != nil {
		o.ConfirmedAt = u.ConfirmedAt
	}
	if u.DeliveredAt != nil {
		o.DeliveredAt = u.DeliveredAt
	}
	if u.IsPaid != nil {
		o.IsPaid = *u.IsPaid
	}
	if u.PaidAt != nil {
		o.PaidAt = u.PaidAt
	}
}

type OrderStats struct {
	TotalOrders     int64   `json:"totalOrders"`
	PendingOrders   int64   `json:"pendingOrders"`
	DeliveredOrders int64   `json:"deliveredOrders"`
	CancelledOrders int64   `json:"cancelledOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
}

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusAtLocalFacility OrderStatus = "at-local-facility"
	OrderStatusOutForDelivery  OrderStatus = "out-for-delivery"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusCompleted       OrderStatus = "completed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusAtLocalFacility,
		OrderStatusOutForDelivery, OrderStatusCancelled, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

type ShippingType string

const (
	ShippingAmount     ShippingType = "amount"
	ShippingPercentage ShippingType = "percentage"
)

type ShippingInfo struct {
	Name  string          `json:"name"`
	Type  ShippingType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// PricedTotals is derived from the cart and the applied coupon, never stored on its own.
type PricedTotals struct {
	SubTotal decimal.Decimal `json:"subTotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping ShippingInfo    `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Rounded returns the totals rounded for display.
func (t PricedTotals) Rounded() PricedTotals {
	t.SubTotal = RoundMoney(t.SubTotal)
	t.Discount = RoundMoney(t.Discount)
	t.Shipping.Value = RoundMoney(t.Shipping.Value)
	t.Tax = RoundMoney(t.Tax)
	t.Total = RoundMoney(t.Total)
	return t
}

type LineTotals struct {
	SubTotal decimal.Decimal `json:"subTotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping ShippingInfo    `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

type Commission struct {
	Type   string          `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Amount decimal.Decimal `json:"amount"`
}

type OrderLine struct {
	ProductInfo    string      `json:"productInfo"`
	TrackingNumber string      `json:"trackingNumber"`
	Quantity       int         `json:"quantity"`
	IsCancelled    bool        `json:"isCancelled"`
	Status         OrderStatus `json:"status"`
	TotalAmount    LineTotals  `json:"totalAmount"`
	Commission     Commission  `json:"commission"`
}

type CustomerInfo struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// PaymentMethod is what the shopper picks in the payment step.
type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "cod"
	PaymentBkash PaymentMethod = "bkash"
	PaymentNagad PaymentMethod = "nagad"
)

// PaymentInfo is the tag the order-creation contract expects.
type PaymentInfo string

const (
	PaymentInfoCashOn PaymentInfo = "cash-on"
	PaymentInfoBkash  PaymentInfo = "bkash"
	PaymentInfoNagad  PaymentInfo = "nagad"
)

// PaymentInfo maps a payment method to its wire tag; ok is false for unknown methods.
func (m PaymentMethod) PaymentInfo() (PaymentInfo, bool) {
	switch m {
	case PaymentCOD:
		return PaymentInfoCashOn, true
	case PaymentBkash:
		return PaymentInfoBkash, true
	case PaymentNagad:
		return PaymentInfoNagad, true
	default:
		return "", false
	}
}

type OrderPayload struct {
	OrderInfo    []OrderLine     `json:"orderInfo"`
	CustomerInfo CustomerInfo    `json:"customerInfo"`
	PaymentInfo  PaymentInfo     `json:"paymentInfo"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
}

func (p *OrderPayload) TrackingNumbers() []string {
	out := make([]string, 0, len(p.OrderInfo))
	for _, l := range p.OrderInfo {
		out = append(out, l.TrackingNumber)
	}
	return out
}

// CreatedOrder is what the backend returns after accepting an order.
type CreatedOrder struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order is a backend order record as listed in the shopper's order history.
type Order struct {
	ID           string      `json:"_id"`
	OrderInfo    OrderLines  `json:"orderInfo"`
	CustomerInfo CustomerRef `json:"customerInfo"`
	PaymentInfo  PaymentInfo `json:"paymentInfo,omitempty"`
	TotalAmount  OrderAmount `json:"totalAmount"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// OrderLines accepts a single line object where the backend stores one line unwrapped.
type OrderLines []OrderLine

func (l *OrderLines) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	switch {
	case trimmed == "null":
		*l = nil
		return nil
	case strings.HasPrefix(trimmed, "{"):
		var line OrderLine
		if err := json.Unmarshal(b, &line); err != nil {
			return fmt.Errorf("unexpected order line shape: %w", err)
		}
		*l = OrderLines{line}
		return nil
	}
	var lines []OrderLine
	if err := json.Unmarshal(b, &lines); err != nil {
		return fmt.Errorf("order info is neither a line nor a list of lines: %w", err)
	}
	*l = lines
	return nil
}

// OrderAmount is the order total as the backend stores it: a plain number on newer orders,
// a LineTotals object on older ones.
type OrderAmount struct {
	Value decimal.Decimal
}

func (a *OrderAmount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err == nil {
		a.Value = d
		return nil
	}
	var t LineTotals
	if err := json.Unmarshal(b, &t); err != nil {
		return fmt.Errorf("order total is neither a number nor a totals object: %w", err)
	}
	a.Value = t.Total
	return nil
}

func (a OrderAmount) MarshalJSON() ([]byte, error) {
	return a.Value.MarshalJSON()
}

// CustomerRef is either an embedded CustomerInfo or a bare customer reference string.
type CustomerRef struct {
	Info *CustomerInfo
	Ref  string
}

func (c *CustomerRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var ref string
	if err := json.Unmarshal(b, &ref); err == nil {
		c.Ref = strings.TrimSpace(ref)
		return nil
	}
	var info CustomerInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return fmt.Errorf("unexpected customer info shape: %w", err)
	}
	c.Info = &info
	return nil
}

func (c CustomerRef) MarshalJSON() ([]byte, error) {
	if c.Info != nil {
		return json.Marshal(c.Info)
	}
	if c.Ref != "" {
		return json.Marshal(c.Ref)
	}
	return []byte("null"), nil
}

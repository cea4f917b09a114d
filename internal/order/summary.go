package order

import (
	"slices"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Summary is one row of the shopper's order history.
type Summary struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Items          int             `json:"items"`
	Total          decimal.Decimal `json:"total"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	PlacedOn       string          `json:"placedOn"`
	Customer       string          `json:"customer"`
}

func Summarize(o domain.Order) Summary {
	return Summary{
		ID:             o.ID,
		Status:         StatusLabel(o.OrderInfo),
		Items:          len(o.OrderInfo),
		Total:          domain.RoundMoney(o.TotalAmount.Value),
		TrackingNumber: firstTracking(o.OrderInfo),
		PlacedOn:       ymd(o.CreatedAt),
		Customer:       DisplayCustomer(o.CustomerInfo),
	}
}

// StatusLabel folds line statuses into one label. Precedence: all completed, any cancelled,
// out for delivery, processing, at local facility, then pending.
func StatusLabel(lines []domain.OrderLine) string {
	var statuses []domain.OrderStatus
	for _, l := range lines {
		if l.Status != "" {
			statuses = append(statuses, l.Status)
		}
	}
	if len(statuses) == 0 {
		return "Pending"
	}
	if allAre(statuses, domain.OrderStatusCompleted) {
		return "Delivered"
	}
	for _, c := range []struct {
		status domain.OrderStatus
		label  string
	}{
		{domain.OrderStatusCancelled, "Cancelled"},
		{domain.OrderStatusOutForDelivery, "Out for delivery"},
		{domain.OrderStatusProcessing, "Processing"},
		{domain.OrderStatusAtLocalFacility, "At local facility"},
	} {
		if slices.Contains(statuses, c.status) {
			return c.label
		}
	}
	return "Pending"
}

func DisplayCustomer(c domain.CustomerRef) string {
	if c.Ref != "" {
		return c.Ref
	}
	if c.Info == nil {
		return "Customer"
	}
	if name := strings.TrimSpace(c.Info.FirstName + " " + c.Info.LastName); name != "" {
		return name
	}
	if c.Info.Email != "" {
		return c.Info.Email
	}
	return "Customer"
}

func firstTracking(lines []domain.OrderLine) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0].TrackingNumber
}

func ymd(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func allAre(statuses []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, v := range statuses {
		if v != s {
			return false
		}
	}
	return true
}

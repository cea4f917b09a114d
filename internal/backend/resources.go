package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) ListProducts(ctx context.Context, page, limit int) ([]domain.Product, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []domain.Product
	if err := c.Do(ctx, http.MethodGet, "/product", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var out domain.Product
	err := c.Do(ctx, http.MethodGet, "/product/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	var out []domain.Coupon
	if err := c.Do(ctx, http.MethodGet, "/coupon", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, p *domain.OrderPayload) (domain.CreatedOrder, error) {
	var out domain.CreatedOrder
	err := c.Do(ctx, http.MethodPost, "/order/create-order", nil, p, &out)
	return out, err
}

func (c *Client) ListCustomerOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.Do(ctx, http.MethodGet, "/order/my-order/"+url.PathEscape(customerID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSettings(ctx context.Context) (domain.Settings, error) {
	var out domain.Settings
	err := c.Do(ctx, http.MethodGet, "/settings", nil, nil, &out)
	return out, err
}

type CustomerAddress struct {
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CustomerProfile is the saved customer record; Addresses holds previously used shipping
// addresses, most recent last.
type CustomerProfile struct {
	ID        string            `json:"_id"`
	FirstName string            `json:"firstName"`
	LastName  string            `json:"lastName"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Addresses []CustomerAddress `json:"address"`
}

func (c *Client) GetCustomer(ctx context.Context, id string) (CustomerProfile, error) {
	var out CustomerProfile
	err := c.Do(ctx, http.MethodGet, "/customer/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// ShippingForm prefills a checkout form from the profile and its latest address.
func (p CustomerProfile) ShippingForm() domain.CustomerInfo {
	info := domain.NewCustomerInfo()
	info.FirstName = p.FirstName
	info.LastName = p.LastName
	info.Email = p.Email
	info.Phone = p.Phone
	if n := len(p.Addresses); n > 0 {
		last := p.Addresses[n-1]
		info.Address = last.Address
		info.City = last.City
		info.PostalCode = last.PostalCode
		if strings.TrimSpace(last.Country) != "" {
			info.Country = last.Country
		}
	}
	return info
}

// ShippingForm fetches the customer's profile and turns it into a prefilled checkout form.
func (c *Client) ShippingForm(ctx context.Context, customerID string) (domain.CustomerInfo, error) {
	p, err := c.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.CustomerInfo{}, err
	}
	return p.ShippingForm(), nil
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductDescription struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ProductPricing struct {
	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty"`
}

// Product is the slice of the backend product record the storefront relies on.
type Product struct {
	ID          string             `json:"_id"`
	ShopID      string             `json:"shopId,omitempty"`
	FeaturedImg string             `json:"featuredImg,omitempty"`
	Description ProductDescription `json:"description"`
	ProductInfo ProductPricing     `json:"productInfo"`
	Categories  []string           `json:"categories,omitempty"`
	Rating      float64            `json:"rating,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// EffectivePrice is the sale price when one is set below the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return *p.ProductInfo.SalePrice
	}
	return p.ProductInfo.Price
}

func (p Product) OnSale() bool {
	sp := p.ProductInfo.SalePrice
	return sp != nil && sp.LessThan(p.ProductInfo.Price)
}

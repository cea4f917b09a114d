package domain

import "github.com/shopspring/decimal"

type Variant struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// LineKey identifies a cart line: the same product in another size or color is a separate line.
type LineKey struct {
	ProductID string
	Variant   Variant
}

type CartLine struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	Variant      Variant         `json:"variant"`
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Variant: l.Variant}
}

// LineTotal is derived on every read and never stored.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

package domain

import "github.com/shopspring/decimal"

// The backend contract carries money as JSON numbers, not strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// MoneyPlaces is the number of decimal places kept when money leaves the service.
const MoneyPlaces = 2

func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

package catalog

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Filter string

const (
	FilterNone     Filter = ""
	FilterDiscount Filter = "discount"
	FilterDeal     Filter = "deal"
	FilterReviews  Filter = "reviews"
)

// filterLimit caps every filtered listing.
const filterLimit = 10

func (f Filter) Valid() bool {
	switch f {
	case FilterNone, FilterDiscount, FilterDeal, FilterReviews:
		return true
	default:
		return false
	}
}

// Apply returns at most ten products selected by f. now decides what "today" means for deals.
func Apply(products []domain.Product, f Filter, now time.Time) []domain.Product {
	result := make([]domain.Product, len(products))
	copy(result, products)

	switch f {
	case FilterDiscount:
		result = result[:0]
		for _, p := range products {
			if p.OnSale() {
				result = append(result, p)
			}
		}
	case FilterDeal:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 0, 1)
		today := make([]domain.Product, 0)
		for _, p := range products {
			if !p.CreatedAt.Before(start) && p.CreatedAt.Before(end) {
				today = append(today, p)
			}
		}
		if len(today) > 0 {
			result = today
		}
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	case FilterReviews:
		rated := false
		for _, p := range result {
			if p.Rating != 0 {
				rated = true
				break
			}
		}
		if rated {
			sort.SliceStable(result, func(i, j int) bool {
				return result[i].Rating > result[j].Rating
			})
		} else {
			rand.Shuffle(len(result), func(i, j int) {
				result[i], result[j] = result[j], result[i]
			})
		}
	default:
		return result
	}

	if len(result) > filterLimit {
		result = result[:filterLimit]
	}
	return result
}

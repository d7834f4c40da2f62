package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// LookupOutcome tags the result of a catalog price lookup.
type LookupOutcome int

const (
	// LookupFound: the catalog returned a usable unit price.
	LookupFound LookupOutcome = iota
	// LookupNotFound: the catalog does not know the product. Terminal,
	// never retried.
	LookupNotFound
	// LookupUnavailable: every transport was exhausted without a usable
	// response.
	LookupUnavailable
	// LookupInvalidData: a response arrived but carried no usable price.
	LookupInvalidData
)

func (o LookupOutcome) String() string {
	switch o {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	case LookupUnavailable:
		return "unavailable"
	case LookupInvalidData:
		return "invalid_data"
	default:
		return "unknown"
	}
}

// PriceLookup is the tagged result of a single product lookup. UnitPrice
// is meaningful only when Outcome is LookupFound; Reason only otherwise.
type PriceLookup struct {
	Outcome   LookupOutcome
	UnitPrice decimal.Decimal
	Reason    string
}

// PriceSource resolves the authoritative unit price of a product. All
// failure modes are folded into the tagged result; retries and transport
// fallback are the implementation's concern.
type PriceSource interface {
	FetchPrice(ctx context.Context, productID int64) PriceLookup
}

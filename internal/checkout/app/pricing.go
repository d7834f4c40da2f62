package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/checkout-service/internal/checkout/domain"
	"github.com/jcmexdev/checkout-service/internal/checkout/ports"
)

// Aggregator resolves authoritative pricing for a whole checkout request.
type Aggregator struct {
	source ports.PriceSource
}

// NewAggregator builds an aggregator over the given price source.
func NewAggregator(source ports.PriceSource) *Aggregator {
	return &Aggregator{source: source}
}

// Resolve looks up the unit price for every line in input order and
// accumulates the exact order total.
//
// Resolution is fail-fast: the first line whose lookup is not Found aborts
// the whole call with a *domain.PricingError and no further catalog call
// is made, so a partially priced order is never formed. Retries live
// inside the price source, never across lines.
func (a *Aggregator) Resolve(ctx context.Context, lines []domain.LineRequest) ([]domain.ResolvedLine, decimal.Decimal, error) {
	resolved := make([]domain.ResolvedLine, 0, len(lines))
	total := decimal.Zero

	for _, line := range lines {
		// Cancellation checkpoint: abandon between lines, never
		// mid-lookup.
		if err := ctx.Err(); err != nil {
			return nil, decimal.Zero, err
		}

		lookup := a.source.FetchPrice(ctx, line.ProductID)
		switch lookup.Outcome {
		case ports.LookupFound:
			// fall through to accumulation
		case ports.LookupNotFound:
			return nil, decimal.Zero, &domain.PricingError{
				ProductID: line.ProductID,
				Kind:      domain.FailureNotFound,
			}
		case ports.LookupInvalidData:
			return nil, decimal.Zero, &domain.PricingError{
				ProductID: line.ProductID,
				Kind:      domain.FailureInvalidData,
				Reason:    lookup.Reason,
			}
		default:
			return nil, decimal.Zero, &domain.PricingError{
				ProductID: line.ProductID,
				Kind:      domain.FailureUnavailable,
				Reason:    lookup.Reason,
			}
		}

		resolvedLine := domain.ResolvedLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: lookup.UnitPrice,
		}
		resolved = append(resolved, resolvedLine)
		total = total.Add(resolvedLine.Subtotal())
	}

	return resolved, total, nil
}

package postgres

import (
	"github.com/shopspring/decimal"

	"brontie-core/internal/domain"
)

// NUMERIC columns travel as text on both directions: values are bound as
// strings and selected with ::text, then parsed. This keeps the full decimal
// precision without tying scanning to a specific pgtype codec.

func numArg(d decimal.Decimal) string { return d.String() }

func numArgPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func numParse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, domain.ErrReadDatabaseRow
	}
	return d, nil
}

func numParsePtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := numParse(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

package domain

import "github.com/shopspring/decimal"

// QuoteRequest selects a Yahoo Finance chart. Optional fields are absent when empty.
// The explicit range (RangeStart/RangeEnd) is used only when both ends are set.
type QuoteRequest struct {
	Symbol     string `json:"symbol" schema:"symbol"`
	RangeStart string `json:"period1,omitempty" schema:"period1"`
	RangeEnd   string `json:"period2,omitempty" schema:"period2"`
	Interval   string `json:"interval,omitempty" schema:"interval"`
	Range      string `json:"range,omitempty" schema:"range"`
}

// HasExplicitRange reports whether both ends of the explicit time range are present.
func (q QuoteRequest) HasExplicitRange() bool {
	return q.RangeStart != "" && q.RangeEnd != ""
}

// FundRequest selects a Toushin Library fund CSV.
type FundRequest struct {
	ISINCode           string `json:"isinCd" schema:"isinCd"`
	AssociatedFundCode string `json:"associFundCd" schema:"associFundCd"`
}

// PricePoint is one daily price: a fund NAV row or a chart close.
type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// QuoteSummary is the current price extracted from a chart response.
type QuoteSummary struct {
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

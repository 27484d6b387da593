// Package chart reads the Yahoo Finance chart JSON returned by the quote proxy.
package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/market-proxy/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNoResult = errors.New("chart has no result")
	ErrNoPrice  = errors.New("chart meta has no price")
)

// UpstreamError is the chart.error object of a response.
type UpstreamError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *UpstreamError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("chart error: %s", e.Code)
	}
	return e.Description
}

type response struct {
	Chart struct {
		Result []result       `json:"result"`
		Error  *UpstreamError `json:"error"`
	} `json:"chart"`
}

type result struct {
	Meta struct {
		Currency           string              `json:"currency"`
		Symbol             string              `json:"symbol"`
		RegularMarketPrice decimal.NullDecimal `json:"regularMarketPrice"`
		PreviousClose      decimal.NullDecimal `json:"previousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []decimal.NullDecimal `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// decode re-reads the untyped tree into the typed chart shape.
func decode(value any) (*result, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode chart value: %w", err)
	}
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode chart value: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, resp.Chart.Error
	}
	if len(resp.Chart.Result) == 0 {
		return nil, ErrNoResult
	}
	return &resp.Chart.Result[0], nil
}

// Summarize extracts the current price and currency for symbol. A zero or
// missing regularMarketPrice falls back to previousClose.
func Summarize(symbol string, value any) (domain.QuoteSummary, error) {
	res, err := decode(value)
	if err != nil {
		return domain.QuoteSummary{}, err
	}

	price := res.Meta.RegularMarketPrice
	if !price.Valid || price.Decimal.IsZero() {
		price = res.Meta.PreviousClose
	}
	if !price.Valid {
		return domain.QuoteSummary{}, ErrNoPrice
	}

	return domain.QuoteSummary{
		Symbol:   symbol,
		Price:    price.Decimal,
		Currency: res.Meta.Currency,
	}, nil
}

// DailyCloses pairs each timestamp with its close, skipping null closes.
func DailyCloses(value any) ([]domain.PricePoint, error) {
	res, err := decode(value)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}

	closes := res.Indicators.Quote[0].Close
	points := make([]domain.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || !closes[i].Valid {
			continue
		}
		points = append(points, domain.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Format(time.DateOnly),
			Price: closes[i].Decimal,
		})
	}
	return points, nil
}

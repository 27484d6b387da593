package proxy

import (
	"fmt"

	"github.com/samvad-hq/market-proxy/internal/domain"
)

const defaultChartValue = "1d"

// BuildQuoteURL renders the chart URL for req under base. Values are
// interpolated verbatim, without query escaping.
func BuildQuoteURL(base string, req domain.QuoteRequest) string {
	interval := orDefault(req.Interval)
	url := fmt.Sprintf("%s/%s?", base, req.Symbol)
	if req.HasExplicitRange() {
		return url + fmt.Sprintf("period1=%s&period2=%s&interval=%s", req.RangeStart, req.RangeEnd, interval)
	}
	return url + fmt.Sprintf("interval=%s&range=%s", interval, orDefault(req.Range))
}

// BuildFundURL renders the fund CSV download URL for req under base.
func BuildFundURL(base string, req domain.FundRequest) string {
	return fmt.Sprintf("%s?isinCd=%s&associFundCd=%s", base, req.ISINCode, req.AssociatedFundCode)
}

func orDefault(v string) string {
	if v == "" {
		return defaultChartValue
	}
	return v
}

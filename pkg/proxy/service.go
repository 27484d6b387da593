package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/samvad-hq/market-proxy/internal/config"
	"github.com/samvad-hq/market-proxy/internal/domain"
	"github.com/samvad-hq/market-proxy/internal/logger"
	"github.com/samvad-hq/market-proxy/pkg/httpclient"
)

// JSONValue is an untyped JSON tree: map[string]any, []any, string,
// json.Number, bool or nil.
type JSONValue = any

// ClientFactory builds the HTTP client used by a single call.
type ClientFactory func(opts httpclient.Options) (httpclient.Client, error)

// DefaultClientFactory builds a fresh resty-backed client.
func DefaultClientFactory(opts httpclient.Options) (httpclient.Client, error) {
	return httpclient.NewRestyClient(opts), nil
}

// Options configures a Service. Empty fields fall back to the production defaults.
type Options struct {
	QuoteBaseURL   string
	FundBaseURL    string
	QuoteUserAgent string
	// Timeout of zero keeps the client library default.
	Timeout time.Duration
	// FundCheckStatus rejects non-2xx fund responses. Off by default: the fund
	// endpoint has always been decoded regardless of status.
	FundCheckStatus bool
	ClientFactory   ClientFactory
	Logger          logger.Logger
}

// OptionsFromConfig maps application config onto service options.
func OptionsFromConfig(cfg *config.Config, log logger.Logger) Options {
	return Options{
		QuoteBaseURL:    cfg.QuoteBaseURL,
		FundBaseURL:     cfg.FundBaseURL,
		QuoteUserAgent:  cfg.QuoteUserAgent,
		Timeout:         cfg.HTTPTimeout,
		FundCheckStatus: cfg.FundCheckStatus,
		Logger:          log,
	}
}

// Service performs the quote and fund proxy operations. It holds no mutable
// state and is safe for concurrent use.
type Service struct {
	opts Options
	log  logger.Logger
}

// NewService returns a Service with defaults applied to opts.
func NewService(opts Options) *Service {
	if opts.QuoteBaseURL == "" {
		opts.QuoteBaseURL = config.DefaultQuoteBaseURL
	}
	if opts.FundBaseURL == "" {
		opts.FundBaseURL = config.DefaultFundBaseURL
	}
	if opts.QuoteUserAgent == "" {
		opts.QuoteUserAgent = config.DefaultQuoteUserAgent
	}
	if opts.ClientFactory == nil {
		opts.ClientFactory = DefaultClientFactory
	}
	return &Service{opts: opts, log: logger.Ensure(opts.Logger)}
}

// FetchQuote fetches a Yahoo Finance chart and returns the decoded JSON tree unmodified.
func (s *Service) FetchQuote(ctx context.Context, req domain.QuoteRequest) (JSONValue, error) {
	url := BuildQuoteURL(s.opts.QuoteBaseURL, req)
	s.log.InfoObj("quote request", "quote_request", map[string]any{
		"symbol": req.Symbol,
		"url":    url,
	})

	client, err := s.opts.ClientFactory(httpclient.Options{
		Timeout:   s.opts.Timeout,
		UserAgent: s.opts.QuoteUserAgent,
	})
	if err != nil {
		return nil, s.fail(newError(OpFetchQuote, ErrClientConstruction, err))
	}

	resp, err := client.Get(ctx, url, nil)
	if err != nil {
		return nil, s.fail(newError(OpFetchQuote, ErrRequest, err))
	}
	s.logStatus(OpFetchQuote, url, resp)

	if !isSuccess(resp.StatusCode()) {
		text := unknownErrorBody
		if body, rerr := resp.ReadBody(); rerr == nil {
			text = string(body)
		}
		return nil, s.fail(statusError(OpFetchQuote, resp.StatusCode(), resp.Status(), text))
	}

	body, err := resp.ReadBody()
	if err != nil {
		return nil, s.fail(newError(OpFetchQuote, ErrResponseRead, err))
	}

	value, err := decodeJSON(body)
	if err != nil {
		return nil, s.fail(newError(OpFetchQuote, ErrJSONParse, err))
	}

	s.log.InfoObj("quote fetched", "quote_result", map[string]any{
		"symbol": req.Symbol,
		"bytes":  len(body),
	})
	return value, nil
}

// FetchFund downloads a fund CSV and transcodes it from Shift-JIS to UTF-8.
// The response status is not checked unless FundCheckStatus is set.
func (s *Service) FetchFund(ctx context.Context, req domain.FundRequest) (string, error) {
	url := BuildFundURL(s.opts.FundBaseURL, req)
	s.log.InfoObj("fund request", "fund_request", map[string]any{
		"isin": req.ISINCode,
		"url":  url,
	})

	client, err := s.opts.ClientFactory(httpclient.Options{Timeout: s.opts.Timeout})
	if err != nil {
		return "", s.fail(newError(OpFetchFund, ErrClientConstruction, err))
	}

	resp, err := client.Get(ctx, url, nil)
	if err != nil {
		return "", s.fail(newError(OpFetchFund, ErrRequest, err))
	}
	s.logStatus(OpFetchFund, url, resp)

	raw, readErr := resp.ReadBody()
	if s.opts.FundCheckStatus && !isSuccess(resp.StatusCode()) {
		text := unknownErrorBody
		if readErr == nil {
			if decoded, derr := decodeShiftJIS(raw); derr == nil {
				text = decoded
			}
		}
		return "", s.fail(statusError(OpFetchFund, resp.StatusCode(), resp.Status(), text))
	}
	if readErr != nil {
		return "", s.fail(newError(OpFetchFund, ErrResponseRead, readErr))
	}

	text, err := decodeShiftJIS(raw)
	if err != nil {
		return "", s.fail(newError(OpFetchFund, ErrEncoding, err))
	}

	s.log.InfoObj("fund fetched", "fund_result", map[string]any{
		"isin":  req.ISINCode,
		"bytes": len(raw),
	})
	return text, nil
}

func (s *Service) logStatus(op, url string, resp httpclient.Response) {
	s.log.InfoObj("upstream response", "response_meta", map[string]any{
		"op":     op,
		"url":    url,
		"status": resp.StatusCode(),
	})
}

func (s *Service) fail(err *Error) error {
	meta := map[string]any{
		"op":    err.Op,
		"kind":  err.Kind.Error(),
		"error": err.Error(),
	}
	if err.StatusCode != 0 {
		meta["status"] = err.StatusCode
	}
	s.log.ErrorObj("proxy operation failed", "proxy_error", meta)
	return err
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

var errTrailingData = errors.New("unexpected data after top-level value")

func decodeJSON(body []byte) (JSONValue, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value JSONValue
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return value, nil
}

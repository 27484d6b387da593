package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samvad-hq/market-proxy/internal/domain"
)

// Command names exposed to the presentation layer.
const (
	CommandFetchYahooFinance = "fetch_yahoo_finance"
	CommandFetchFundData     = "fetch_fund_data"
)

// Handler runs one command against raw JSON params.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Registry maps command names to handlers.
type Registry interface {
	Register(name string, h Handler)
	Invoke(ctx context.Context, name string, params json.RawMessage) (any, error)
	Names() []string
}

type registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns a registry with optional pre-registered handlers.
func NewRegistry(handlers map[string]Handler) Registry {
	r := &registry{
		handlers: make(map[string]Handler),
	}
	for name, h := range handlers {
		r.Register(name, h)
	}
	return r
}

// Register associates a handler with a command name.
func (r *registry) Register(name string, h Handler) {
	if name = normalizeName(name); name == "" || h == nil {
		return
	}

	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

// Invoke dispatches params to the handler registered under name.
func (r *registry) Invoke(ctx context.Context, name string, params json.RawMessage) (any, error) {
	r.mu.RLock()
	h := r.handlers[normalizeName(name)]
	r.mu.RUnlock()

	if h == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	return h(ctx, params)
}

// Names lists the registered command names in sorted order.
func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultRegistry wires the proxy commands of svc.
func DefaultRegistry(svc *Service) Registry {
	return NewRegistry(map[string]Handler{
		CommandFetchYahooFinance: svc.handleFetchQuote,
		CommandFetchFundData:     svc.handleFetchFund,
	})
}

func (s *Service) handleFetchQuote(ctx context.Context, params json.RawMessage) (any, error) {
	var req domain.QuoteRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if err := ValidateQuoteRequest(req); err != nil {
		return nil, err
	}
	return s.FetchQuote(ctx, req)
}

func (s *Service) handleFetchFund(ctx context.Context, params json.RawMessage) (any, error) {
	var req domain.FundRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if err := ValidateFundRequest(req); err != nil {
		return nil, err
	}
	return s.FetchFund(ctx, req)
}

// ValidateQuoteRequest checks the required quote fields.
func ValidateQuoteRequest(req domain.QuoteRequest) error {
	if strings.TrimSpace(req.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidParams)
	}
	return nil
}

// ValidateFundRequest checks the required fund fields.
func ValidateFundRequest(req domain.FundRequest) error {
	if strings.TrimSpace(req.ISINCode) == "" {
		return fmt.Errorf("%w: isinCd is required", ErrInvalidParams)
	}
	if strings.TrimSpace(req.AssociatedFundCode) == "" {
		return fmt.Errorf("%w: associFundCd is required", ErrInvalidParams)
	}
	return nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(bytes.TrimSpace(params)) == 0 {
		return fmt.Errorf("%w: params are required", ErrInvalidParams)
	}
	dec := json.NewDecoder(bytes.NewReader(params))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/samvad-hq/market-proxy/internal/domain"
	"github.com/samvad-hq/market-proxy/internal/logger"
	"github.com/samvad-hq/market-proxy/pkg/chart"
	"github.com/samvad-hq/market-proxy/pkg/fundcsv"
	"github.com/samvad-hq/market-proxy/pkg/proxy"
)

const maxInvokeBody = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// Proxy is the subset of proxy.Service the bridge serves.
type Proxy interface {
	FetchQuote(ctx context.Context, req domain.QuoteRequest) (proxy.JSONValue, error)
	FetchFund(ctx context.Context, req domain.FundRequest) (string, error)
}

type handler struct {
	svc     Proxy
	reg     proxy.Registry
	log     logger.Logger
	decoder *schema.Decoder
}

// NewRouter exposes the proxy operations and the command registry over HTTP.
// CORS applies before routing, including to 404 and 405 responses.
func NewRouter(svc Proxy, reg proxy.Registry, log logger.Logger) http.Handler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	h := &handler{svc: svc, reg: reg, log: logger.Ensure(log), decoder: decoder}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/yahoo", h.handleQuote).Methods(http.MethodGet)
	router.HandleFunc("/api/yahoo/summary", h.handleQuoteSummary).Methods(http.MethodGet)
	router.HandleFunc("/api/yahoo/closes", h.handleQuoteCloses).Methods(http.MethodGet)
	router.HandleFunc("/api/fund", h.handleFund).Methods(http.MethodGet)
	router.HandleFunc("/api/fund/prices", h.handleFundPrices).Methods(http.MethodGet)
	router.HandleFunc("/invoke/{command}", h.handleInvoke).Methods(http.MethodPost)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
	return cors(router)
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (h *handler) fetchQuote(r *http.Request) (domain.QuoteRequest, proxy.JSONValue, error) {
	var req domain.QuoteRequest
	if err := h.decoder.Decode(&req, r.URL.Query()); err != nil {
		return req, nil, fmt.Errorf("%w: %v", proxy.ErrInvalidParams, err)
	}
	if err := proxy.ValidateQuoteRequest(req); err != nil {
		return req, nil, err
	}
	value, err := h.svc.FetchQuote(r.Context(), req)
	return req, value, err
}

func (h *handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	_, value, err := h.fetchQuote(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *handler) handleQuoteSummary(w http.ResponseWriter, r *http.Request) {
	req, value, err := h.fetchQuote(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := chart.Summarize(req.Symbol, value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleQuoteCloses(w http.ResponseWriter, r *http.Request) {
	req, value, err := h.fetchQuote(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	closes, err := chart.DailyCloses(value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if closes == nil {
		closes = []domain.PricePoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": req.Symbol,
		"closes": closes,
	})
}

func (h *handler) decodeFund(r *http.Request) (domain.FundRequest, error) {
	var req domain.FundRequest
	if err := h.decoder.Decode(&req, r.URL.Query()); err != nil {
		return req, fmt.Errorf("%w: %v", proxy.ErrInvalidParams, err)
	}
	return req, proxy.ValidateFundRequest(req)
}

func (h *handler) handleFund(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeFund(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	text, err := h.svc.FetchFund(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

func (h *handler) handleFundPrices(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeFund(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	text, err := h.svc.FetchFund(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	points, err := fundcsv.Parse(text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		out, err := fundcsv.Marshal(points)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = io.WriteString(w, out)
		return
	}

	resp := map[string]any{
		"isinCd":   req.ISINCode,
		"currency": "JPY",
		"prices":   points,
	}
	if latest, ok := fundcsv.Latest(points); ok {
		resp["latest"] = latest
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	command := mux.Vars(r)["command"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInvokeBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit))
			return
		}
		h.writeError(w, r, fmt.Errorf("%w: read body: %v", proxy.ErrInvalidParams, err))
		return
	}

	result, err := h.reg.Invoke(r.Context(), command, json.RawMessage(body))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	h.log.WarnObj("bridge request failed", "bridge_error", map[string]any{
		"path":   r.URL.Path,
		"status": status,
		"error":  err.Error(),
	})
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, proxy.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, proxy.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

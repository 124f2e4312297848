package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	appcatalog "github.com/Zhima-Mochi/coffeeshop/internal/application/catalog"
	appshop "github.com/Zhima-Mochi/coffeeshop/internal/application/shop"
	apptoken "github.com/Zhima-Mochi/coffeeshop/internal/application/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/journal"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const componentHTTPHandler = "http_server"

// Deps are the application services the API exposes. Orders is optional;
// without it GET /orders/{orderID} is not routed.
type Deps struct {
	SetPrice   *appshop.SetPriceUseCase
	PlaceOrder *appshop.PlaceOrderUseCase
	Shop       *appshop.Query
	Menu       *appcatalog.MenuQuery
	Token      *apptoken.Service
	Orders     journal.Reader
}

type Handler struct {
	deps    Deps
	meta    token.Metadata
	auth    *Authenticator
	limiter *RateLimiter
	log     observability.Logger
	metrics observability.Metrics
	tracer  trace.Tracer
}

func NewHandler(deps Deps, auth *Authenticator, limiter *RateLimiter, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		deps:    deps,
		meta:    deps.Token.Metadata(),
		auth:    auth,
		limiter: limiter,
		log:     tel.Logger().With(observability.F("component", componentHTTPHandler)),
		metrics: tel.Metrics(),
		tracer:  otel.Tracer("coffeeshop.http"),
	}
}

// Router wires each route as
// Trace -> request logger and metrics -> access log -> [auth] -> rate limit -> handler.
// /metrics is mounted by the caller.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	h.handle(r, http.MethodGet, "/health", false, h.handleHealth)
	h.handle(r, http.MethodGet, "/shop", false, h.handleShopInfo)
	h.handle(r, http.MethodGet, "/menu", false, h.handleMenu)
	h.handle(r, http.MethodGet, "/items/{itemID}/price", false, h.handleGetPrice)
	h.handle(r, http.MethodPut, "/items/{itemID}/price", true, h.handleSetPrice)
	h.handle(r, http.MethodPost, "/orders", true, h.handlePlaceOrder)
	if h.deps.Orders != nil {
		h.handle(r, http.MethodGet, "/orders/{orderID}", false, h.handleGetOrder)
	}
	h.handle(r, http.MethodGet, "/token", false, h.handleTokenInfo)
	h.handle(r, http.MethodGet, "/token/balances/{address}", false, h.handleBalance)
	h.handle(r, http.MethodGet, "/token/allowances/{owner}/{spender}", false, h.handleAllowance)
	h.handle(r, http.MethodPost, "/token/approve", true, h.handleApprove)
	h.handle(r, http.MethodPost, "/token/mint", true, h.handleMint)
	return r
}

func (h *Handler) handle(r chi.Router, method, pattern string, authenticated bool, fn http.HandlerFunc) {
	var inner http.Handler = fn
	if h.limiter != nil {
		inner = h.limiter.Handler(inner)
	}
	if authenticated {
		inner = h.auth.Require(inner)
	}

	wrapped := withTrace(h.tracer,
		ObservabilityMiddleware(h.log, h.metrics)(
			withAccessLog(h.log, inner),
		),
	)
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), pattern)))
	}))
}

// amountJSON carries both the raw smallest-unit value and its display form.
type amountJSON struct {
	Units   string `json:"units"`
	Display string `json:"display"`
}

func (h *Handler) amount(a token.Amount) amountJSON {
	return amountJSON{Units: strconv.FormatUint(uint64(a), 10), Display: h.meta.Format(a)}
}

// parseAmount reads a display amount ("3.5"); "unlimited" is accepted where
// allowUnlimited is set.
func (h *Handler) parseAmount(s string, allowUnlimited bool) (token.Amount, error) {
	if allowUnlimited && strings.EqualFold(strings.TrimSpace(s), "unlimited") {
		return token.Unlimited, nil
	}
	if strings.TrimSpace(s) == "" {
		return 0, errors.New("amount is required")
	}
	return h.meta.Units(s)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleShopInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Shop.Info())
}

func (h *Handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Menu.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "token": h.meta.Symbol})
}

type priceResponse struct {
	ItemID  uint64     `json:"item_id"`
	Price   amountJSON `json:"price"`
	ForSale bool       `json:"for_sale"`
}

func (h *Handler) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	itemID, err := uintParam(r, "itemID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	price := h.deps.Shop.PriceOf(itemID)
	writeJSON(w, http.StatusOK, priceResponse{ItemID: itemID, Price: h.amount(price), ForSale: price > 0})
}

type setPriceRequest struct {
	Price string `json:"price"`
}

func (h *Handler) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	itemID, err := uintParam(r, "itemID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req setPriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	price, err := h.parseAmount(req.Price, false)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())

	res, err := h.deps.SetPrice.Execute(r.Context(), appshop.SetPriceCommand{Caller: caller, ItemID: itemID, Price: price})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{ItemID: res.ItemID, Price: h.amount(res.Price), ForSale: res.Price > 0})
}

type placeOrderRequest struct {
	ItemID uint64      `json:"item_id"`
	Qty    json.Number `json:"qty"`
}

// parseQty keeps quantity problems in the domain vocabulary: a negative or
// fractional qty is an invalid quantity, not a malformed body.
func parseQty(n json.Number) (uint64, error) {
	if n == "" {
		return 0, shop.ErrInvalidQuantity
	}
	q, err := strconv.ParseUint(n.String(), 10, 64)
	switch {
	case err == nil:
		return q, nil
	case errors.Is(err, strconv.ErrRange):
		return 0, shop.ErrArithmeticOverflow
	default:
		return 0, shop.ErrInvalidQuantity
	}
}

type orderResponse struct {
	OrderID    uint64           `json:"order_id"`
	Customer   identity.Address `json:"customer"`
	ItemID     uint64           `json:"item_id"`
	Qty        uint64           `json:"qty"`
	Total      amountJSON       `json:"total"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func (h *Handler) order(e shop.OrderPlaced) orderResponse {
	return orderResponse{
		OrderID:    e.OrderID,
		Customer:   e.Customer,
		ItemID:     e.ItemID,
		Qty:        e.Qty,
		Total:      h.amount(e.Total),
		OccurredAt: e.OccurredAt,
	}
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	qty, err := parseQty(req.Qty)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())

	evt, err := h.deps.PlaceOrder.Execute(r.Context(), appshop.PlaceOrderCommand{Caller: caller, ItemID: req.ItemID, Qty: qty})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.order(evt))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uintParam(r, "orderID")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	evt, err := h.deps.Orders.Get(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.order(evt))
}

type tokenInfoResponse struct {
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Decimals    uint8      `json:"decimals"`
	TotalSupply amountJSON `json:"total_supply"`
}

func (h *Handler) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	supply, err := h.deps.Token.TotalSupply(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenInfoResponse{
		Name:        h.meta.Name,
		Symbol:      h.meta.Symbol,
		Decimals:    h.meta.Decimals,
		TotalSupply: h.amount(supply),
	})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := identity.Parse(chi.URLParam(r, "address"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	balance, err := h.deps.Token.BalanceOf(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": owner, "balance": h.amount(balance)})
}

func (h *Handler) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := identity.Parse(chi.URLParam(r, "owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	spender, err := identity.Parse(chi.URLParam(r, "spender"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	allowance, err := h.deps.Token.Allowance(r.Context(), owner, spender)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     owner,
		"spender":   spender,
		"allowance": h.amount(allowance),
		"unlimited": allowance == token.Unlimited,
	})
}

type approveRequest struct {
	Spender identity.Address `json:"spender"`
	Amount  string           `json:"amount"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := h.parseAmount(req.Amount, true)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())

	if err := h.deps.Token.Approve(r.Context(), apptoken.ApproveCommand{Owner: caller, Spender: req.Spender, Amount: amount}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owner": caller, "spender": req.Spender, "allowance": h.amount(amount)})
}

type mintRequest struct {
	To     identity.Address `json:"to"`
	Amount string           `json:"amount"`
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := h.parseAmount(req.Amount, false)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())

	if err := h.deps.Token.Mint(r.Context(), apptoken.MintCommand{Caller: caller, To: req.To, Amount: amount}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"to": req.To, "minted": h.amount(amount)})
}

func uintParam(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an unsigned integer", name)
	}
	return v, nil
}

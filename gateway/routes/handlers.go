package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"marketfront/core/session"
	"marketfront/gateway/middleware"
)

const (
	defaultCommandTimeout = 3 * time.Minute
	defaultMaxUpload      = 10 << 20
	maxJSONBody           = 64 << 10
)

type api struct {
	session   Session
	logger    *slog.Logger
	metrics   CommandMetrics
	maxUpload int64
	timeout   time.Duration
	checkFn   func(context.Context) error
}

type noopMetrics struct{}

func (noopMetrics) ObserveCommand(string, string, time.Duration) {}
func (noopMetrics) SetStateVersion(uint64)                       {}

func newAPI(cfg Config) *api {
	a := &api{
		session:   cfg.Session,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		maxUpload: cfg.MaxUploadBytes,
		timeout:   cfg.CommandTimeout,
		checkFn:   cfg.HealthCheck,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = noopMetrics{}
	}
	if a.maxUpload <= 0 {
		a.maxUpload = defaultMaxUpload
	}
	if a.timeout <= 0 {
		a.timeout = defaultCommandTimeout
	}
	return a
}

// dispatch runs cmd detached from client cancellation so that a transaction
// already sent is always reconciled, bounded by the command timeout.
func (a *api) dispatch(w http.ResponseWriter, r *http.Request, cmd session.Command) (session.State, bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), a.timeout)
	defer cancel()

	start := time.Now()
	state, err := a.session.Dispatch(ctx, cmd)
	a.metrics.ObserveCommand(cmd.CommandName(), outcomeFor(err), time.Since(start))
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError || status == http.StatusConflict {
			a.logger.Error("command failed",
				"command", cmd.CommandName(),
				"request_id", middleware.RequestIDFromContext(r.Context()),
				"error", err)
		}
		writeJSONError(w, status, err)
		return state, false
	}
	a.metrics.SetStateVersion(state.Version)
	return state, true
}

func (a *api) run(w http.ResponseWriter, r *http.Request, cmd session.Command) {
	if state, ok := a.dispatch(w, r, cmd); ok {
		writeJSON(w, http.StatusOK, state)
	}
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if a.checkFn != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := a.checkFn(ctx); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.session.Snapshot())
}

func (a *api) balance(w http.ResponseWriter, r *http.Request) {
	owner, err := addressParam(r, "owner")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	balance, err := a.session.Balance(r.Context(), owner)
	if err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owner": owner, "balance": balance})
}

type refreshRequest struct {
	Scope          string `json:"scope"`
	AllStorefronts bool   `json:"allStorefronts"`
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeOptional(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	var cmd session.Command
	switch strings.ToLower(strings.TrimSpace(req.Scope)) {
	case "", "all":
		cmd = session.Load{}
	case "users":
		cmd = session.RefreshUsers{}
	case "storefronts":
		cmd = session.RefreshStorefronts{All: req.AllStorefronts}
	default:
		writeBadRequest(w, fmt.Errorf("unknown refresh scope %q", req.Scope))
		return
	}
	a.run(w, r, cmd)
}

func (a *api) requestRights(w http.ResponseWriter, r *http.Request) {
	a.run(w, r, session.RequestShopOwner{})
}

func (a *api) grantShopOwner(w http.ResponseWriter, r *http.Request) {
	target, err := addressParam(r, "addr")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.GrantShopOwner{Target: target})
}

func (a *api) grantAdmin(w http.ResponseWriter, r *http.Request) {
	target, err := addressParam(r, "addr")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.GrantAdmin{Target: target})
}

func (a *api) deleteUser(w http.ResponseWriter, r *http.Request) {
	target, err := addressParam(r, "addr")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.DeleteUser{Target: target})
}

type storefrontRequest struct {
	Name string `json:"name"`
}

func (a *api) addStorefront(w http.ResponseWriter, r *http.Request) {
	var req storefrontRequest
	if err := decodeRequired(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.AddStorefront{Name: req.Name})
}

func (a *api) removeStorefront(w http.ResponseWriter, r *http.Request) {
	owner, index, err := storefrontParams(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.RemoveStorefront{Owner: owner, Index: index})
}

func (a *api) selectStorefront(w http.ResponseWriter, r *http.Request) {
	owner, index, err := storefrontParams(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.Select{Owner: owner, Index: index})
}

type withdrawRequest struct {
	Amount string `json:"amount"`
}

// withdraw only accepts the session account's own storefronts.
func (a *api) withdraw(w http.ResponseWriter, r *http.Request) {
	owner, index, err := storefrontParams(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if owner != a.session.Snapshot().Account {
		writeJSONError(w, http.StatusForbidden, session.ErrForbidden)
		return
	}
	var req withdrawRequest
	if err := decodeOptional(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseOptionalAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.Withdraw{StorefrontIndex: index, Amount: amount})
}

type productRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity uint64 `json:"quantity"`
}

func (a *api) addProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeRequired(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.AddProduct{Name: req.Name, Price: price, Quantity: req.Quantity})
}

func (a *api) removeProduct(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r, "index")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.RemoveProduct{Index: index})
}

type priceRequest struct {
	Price string `json:"price"`
}

func (a *api) updatePrice(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r, "index")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req priceRequest
	if err := decodeRequired(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.UpdatePrice{Index: index, Price: price})
}

type purchaseRequest struct {
	Quantity uint64 `json:"quantity"`
	Payment  string `json:"payment"`
}

func (a *api) purchase(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r, "index")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req purchaseRequest
	if err := decodeRequired(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	payment, err := parseOptionalAmount(req.Payment)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	a.run(w, r, session.Purchase{Index: index, Quantity: req.Quantity, Payment: payment})
}

// uploadImage stages the raw request body for the product and submits it.
func (a *api) uploadImage(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r, "index")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeBadRequest(w, fmt.Errorf("read image: %w", err))
		return
	}
	if _, ok := a.dispatch(w, r, session.StageImage{Index: index, Data: data}); !ok {
		return
	}
	a.run(w, r, session.SubmitImage{})
}

func (a *api) toggleActive(w http.ResponseWriter, r *http.Request) {
	a.run(w, r, session.ToggleContractActive{})
}

func (a *api) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	a.run(w, r, session.EmergencyWithdraw{})
}

func addressParam(r *http.Request, name string) (common.Address, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %s must be a hex address", errBadRequest, name)
	}
	return common.HexToAddress(raw), nil
}

func indexParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return index, nil
}

func storefrontParams(r *http.Request) (common.Address, int, error) {
	owner, err := addressParam(r, "owner")
	if err != nil {
		return common.Address{}, 0, err
	}
	index, err := indexParam(r, "index")
	if err != nil {
		return common.Address{}, 0, err
	}
	return owner, index, nil
}

// parseAmount reads a base-unit decimal amount.
func parseAmount(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: amount required", errBadRequest)
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", errBadRequest, raw, err)
	}
	return amount, nil
}

func parseOptionalAmount(raw string) (*uint256.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return parseAmount(raw)
}

func decodeRequired(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w", errBadRequest, errEmptyBody)
		}
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

func decodeOptional(r *http.Request, dst any) error {
	if err := decodeRequired(r, dst); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	marketerrors "marketfront/core/errors"
	"marketfront/core/session"
	"marketfront/core/types"
	"marketfront/gateway/middleware"
)

var owner = common.HexToAddress("0x00000000000000000000000000000000000000b0")

type fakeSession struct {
	state    session.State
	commands []session.Command
	failOn   map[string]error
	balance  *uint256.Int

	mu   sync.Mutex
	subs []chan session.State
}

func (f *fakeSession) Snapshot() session.State { return f.state }

func (f *fakeSession) Dispatch(_ context.Context, cmd session.Command) (session.State, error) {
	f.commands = append(f.commands, cmd)
	if err := f.failOn[cmd.CommandName()]; err != nil {
		return f.state, err
	}
	f.state.Version++
	return f.state, nil
}

func (f *fakeSession) Balance(_ context.Context, addr common.Address) (*uint256.Int, error) {
	if f.balance == nil {
		return nil, &marketerrors.OperationFailedError{Method: "getUserBalance"}
	}
	return f.balance, nil
}

func (f *fakeSession) Subscribe() (<-chan session.State, func()) {
	updates := make(chan session.State, 4)
	f.mu.Lock()
	f.subs = append(f.subs, updates)
	f.mu.Unlock()
	return updates, func() {}
}

func (f *fakeSession) publish(state session.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, updates := range f.subs {
		updates <- state
	}
}

type recordedMetrics struct {
	outcomes map[string]string
	version  uint64
}

func (m *recordedMetrics) ObserveCommand(command, outcome string, _ time.Duration) {
	if m.outcomes == nil {
		m.outcomes = map[string]string{}
	}
	m.outcomes[command] = outcome
}

func (m *recordedMetrics) SetStateVersion(v uint64) { m.version = v }

func newTestRouter(sess *fakeSession, metrics *recordedMetrics) http.Handler {
	return New(Config{Session: sess, Metrics: metrics, MaxUploadBytes: 16})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestCommandsTranslateRequests(t *testing.T) {
	sess := &fakeSession{state: session.State{Account: owner, Status: types.StatusShopOwner}}
	metrics := &recordedMetrics{}
	h := newTestRouter(sess, metrics)

	cases := []struct {
		method, path, body string
		want               session.Command
	}{
		{http.MethodPost, "/v1/refresh", "", session.Load{}},
		{http.MethodPost, "/v1/refresh", `{"scope":"storefronts","allStorefronts":true}`, session.RefreshStorefronts{All: true}},
		{http.MethodPost, "/v1/rights/request", "", session.RequestShopOwner{}},
		{http.MethodPost, "/v1/storefronts", `{"name":"Lamps"}`, session.AddStorefront{Name: "Lamps"}},
		{http.MethodDelete, "/v1/storefronts/" + owner.Hex() + "/2", "", session.RemoveStorefront{Owner: owner, Index: 2}},
		{http.MethodPost, "/v1/storefronts/" + owner.Hex() + "/1/select", "", session.Select{Owner: owner, Index: 1}},
		{http.MethodPost, "/v1/storefronts/" + owner.Hex() + "/0/withdraw", `{"amount":"5"}`, session.Withdraw{StorefrontIndex: 0, Amount: uint256.NewInt(5)}},
		{http.MethodPost, "/v1/products", `{"name":"lamp","price":"1000","quantity":3}`, session.AddProduct{Name: "lamp", Price: uint256.NewInt(1000), Quantity: 3}},
		{http.MethodDelete, "/v1/products/4", "", session.RemoveProduct{Index: 4}},
		{http.MethodPut, "/v1/products/1/price", `{"price":"7"}`, session.UpdatePrice{Index: 1, Price: uint256.NewInt(7)}},
		{http.MethodPost, "/v1/products/0/purchase", `{"quantity":2}`, session.Purchase{Index: 0, Quantity: 2}},
		{http.MethodPost, "/v1/users/" + owner.Hex() + "/shop-owner", "", session.GrantShopOwner{Target: owner}},
		{http.MethodPost, "/v1/users/" + owner.Hex() + "/admin", "", session.GrantAdmin{Target: owner}},
		{http.MethodDelete, "/v1/users/" + owner.Hex(), "", session.DeleteUser{Target: owner}},
		{http.MethodPost, "/v1/admin/toggle-active", "", session.ToggleContractActive{}},
		{http.MethodPost, "/v1/admin/emergency-withdraw", "", session.EmergencyWithdraw{}},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			sess.commands = nil
			res := do(t, h, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusOK, res.Code, res.Body.String())
			require.Len(t, sess.commands, 1)
			require.Equal(t, tc.want, sess.commands[0])
			require.Equal(t, "ok", metrics.outcomes[tc.want.CommandName()])
		})
	}
	require.Equal(t, sess.state.Version, metrics.version)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{session.ErrForbidden, http.StatusForbidden},
		{session.ErrLimitReached, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", marketerrors.ErrInvalidContentID), http.StatusBadRequest},
		{&marketerrors.OperationFailedError{Method: "addStoreFront"}, http.StatusBadGateway},
		{&marketerrors.InconsistentStateError{Method: "addStoreFront"}, http.StatusConflict},
		{&marketerrors.UnconfirmedError{Method: "addStoreFront", TxHash: "0x01", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{session.ErrContentStoreUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		sess := &fakeSession{failOn: map[string]error{"add_storefront": tc.err}}
		res := do(t, newTestRouter(sess, &recordedMetrics{}), http.MethodPost, "/v1/storefronts", `{"name":"x"}`)
		require.Equal(t, tc.status, res.Code, tc.err.Error())
		var body map[string]string
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
		require.NotEmpty(t, body["error"])
	}
}

func TestRequestValidation(t *testing.T) {
	sess := &fakeSession{}
	h := newTestRouter(sess, &recordedMetrics{})

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/storefronts", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/storefronts", `{"nom":"x"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/products", `{"name":"a","price":"-1","quantity":1}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/v1/products/-1", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/v1/users/0x12", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/refresh", `{"scope":"everything"}`).Code)
	other := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	require.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/v1/storefronts/"+other.Hex()+"/0/withdraw", "").Code)
	require.Empty(t, sess.commands)
}

func TestUploadImageStagesThenSubmits(t *testing.T) {
	sess := &fakeSession{}
	h := newTestRouter(sess, &recordedMetrics{})

	res := do(t, h, http.MethodPost, "/v1/products/3/image", "png-bytes")
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, []session.Command{
		session.StageImage{Index: 3, Data: []byte("png-bytes")},
		session.SubmitImage{},
	}, sess.commands)

	sess.commands = nil
	res = do(t, h, http.MethodPost, "/v1/products/3/image", strings.Repeat("x", 17))
	require.Equal(t, http.StatusRequestEntityTooLarge, res.Code)
	require.Empty(t, sess.commands)

	sess.failOn = map[string]error{"stage_image": session.ErrInvalidArgument}
	res = do(t, h, http.MethodPost, "/v1/products/3/image", "x")
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Len(t, sess.commands, 1)
}

func TestStateAndBalance(t *testing.T) {
	sess := &fakeSession{
		state:   session.State{Account: owner, Status: types.StatusAdmin, Version: 9},
		balance: uint256.NewInt(42),
	}
	h := newTestRouter(sess, &recordedMetrics{})

	res := do(t, h, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, res.Code)
	var state session.State
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &state))
	require.Equal(t, uint64(9), state.Version)
	require.Equal(t, types.StatusAdmin, state.Status)

	res = do(t, h, http.MethodGet, "/v1/balance/"+owner.Hex(), "")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "42")

	sess.balance = nil
	res = do(t, h, http.MethodGet, "/v1/balance/"+owner.Hex(), "")
	require.Equal(t, http.StatusBadGateway, res.Code)
}

func TestHealthz(t *testing.T) {
	h := New(Config{Session: &fakeSession{}, HealthCheck: func(context.Context) error { return fmt.Errorf("ledger unreachable") }})
	res := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	require.NotEmpty(t, res.Header().Get(middleware.HeaderRequestID))

	h = New(Config{Session: &fakeSession{}})
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
}

func TestAdminRoutesRequireAdminScope(t *testing.T) {
	auth := middleware.NewAuthenticator(middleware.AuthConfig{Enabled: true, HMACSecret: "s"}, nil)
	sess := &fakeSession{}
	h := New(Config{Session: sess, Authenticator: auth})
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/toggle-active", bytes.NewReader(nil))
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, sess.commands)
}

func readVersion(ctx context.Context, t *testing.T, conn *websocket.Conn) uint64 {
	t.Helper()
	kind, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, kind)
	var payload struct {
		Version uint64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload.Version
}

func TestStreamPushesNewerSnapshots(t *testing.T) {
	sess := &fakeSession{state: session.State{Account: owner, Version: 3}}
	srv := httptest.NewServer(newTestRouter(sess, &recordedMetrics{}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/stream", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	require.Equal(t, uint64(3), readVersion(ctx, t, conn))

	sess.publish(session.State{Account: owner, Version: 2})
	sess.publish(session.State{Account: owner, Version: 3})
	sess.publish(session.State{Account: owner, Version: 5})
	require.Equal(t, uint64(5), readVersion(ctx, t, conn))
}

func TestStreamRejectsPlainRequests(t *testing.T) {
	sess := &fakeSession{}
	res := do(t, newTestRouter(sess, &recordedMetrics{}), http.MethodGet, "/v1/stream", "")
	require.GreaterOrEqual(t, res.Code, http.StatusBadRequest)
	require.Empty(t, sess.subs)
}

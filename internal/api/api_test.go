package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/crypto/bcrypt"

	"github.com/kameshai/premier-auction/internal/api"
	"github.com/kameshai/premier-auction/internal/auction"
	"github.com/kameshai/premier-auction/internal/authn"
	"github.com/kameshai/premier-auction/internal/config"
	"github.com/kameshai/premier-auction/internal/store"
	"github.com/kameshai/premier-auction/internal/store/memory"
)

const adminPassword = "correct-horse-battery"

type stubReporter struct{}

func (stubReporter) Report(ctx context.Context, p store.Player) (string, error) {
	return "A generational talent.", nil
}

type stubMedia struct{}

func (stubMedia) UploadPlayerImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	return "/media/players/1-" + filename, nil
}

func (stubMedia) UploadFranchiseLogo(ctx context.Context, franchiseID string, r io.Reader) (string, error) {
	return "/media/teams/" + franchiseID + ".png", nil
}

type testServer struct {
	handler http.Handler
	engine  *auction.Engine
	clock   *clockwork.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := newTestServerNoLoad(t)
	require.NoError(t, ts.engine.Load(context.Background()))
	return ts
}

// newTestServerNoLoad builds the full stack but leaves the engine
// unloaded, for exercising the not-ready gates.
func newTestServerNoLoad(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	clk := clockwork.NewFakeClockAt(time.UnixMilli(1700000000000))

	players := memory.NewPlayerRepository(clk)
	franchises := memory.NewFranchiseRepository(clk)
	events := memory.NewEventStore(clk)

	ctx := context.Background()
	require.NoError(t, players.Put(ctx, &store.Player{
		ID: "p101", Name: "Rohan Varma", Club: "Mumbai Mavericks", Type: "Batsman",
		BasePrice: 50, Rating: 88, Image: "/media/players/1-rohan.png",
	}))
	require.NoError(t, franchises.Put(ctx, &store.Franchise{
		ID: "t1", Name: "Falcons", Logo: "/media/teams/t1.png", Color: "#ff0000",
		InitialBudget: 6000, RemainingBudget: 6000,
	}))

	engine := auction.NewEngine(
		config.AuctionConfig{
			BidStep:          50,
			RosterCap:        12,
			SoldResetDelay:   1500 * time.Millisecond,
			DefaultBasePrice: 50,
			DefaultBudget:    6000,
		},
		players, franchises, events,
		stubReporter{},
		logger,
		noop.NewTracerProvider(),
		clk,
	)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	auth := authn.NewService(config.AuthConfig{
		AdminEmail:        "admin@premier.example",
		AdminPasswordHash: string(hash),
		SessionTTL:        time.Hour,
	}, authn.NewMemoryStore(clk), logger)

	router := api.NewRouter(api.RouterConfig{
		Logger: logger,
		Engine: engine,
		Auth:   auth,
		Media:  stubMedia{},
	})

	return &testServer{handler: router, engine: engine, clock: clk}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/login", map[string]string{
		"email":    "admin@premier.example",
		"password": adminPassword,
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp api.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Admin)
	return resp.Token
}

func (ts *testServer) guestToken(t *testing.T) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/guest", map[string]string{
		"email": "viewer@premier.example",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp api.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.False(t, resp.Admin)
	return resp.Token
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/login", map[string]string{
		"email":    "admin@premier.example",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Guest login cannot claim the admin email.
	rr = ts.request(http.MethodPost, "/api/guest", map[string]string{
		"email": "admin@premier.example",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/state", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/auction/raise", nil, "bogus-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetState(t *testing.T) {
	ts := newTestServer(t)
	token := ts.guestToken(t)

	rr := ts.request(http.MethodGet, "/api/state", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	var state api.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Len(t, state.Players, 1)
	assert.Len(t, state.Franchises, 1)
	assert.Equal(t, auction.StatusIdle, state.Auction.Status)
}

func TestReadsReturn503UntilLoaded(t *testing.T) {
	ts := newTestServerNoLoad(t)
	token := ts.guestToken(t)

	for _, path := range []string{"/api/state", "/api/auction"} {
		rr := ts.request(http.MethodGet, path, nil, token)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
		assert.Contains(t, rr.Body.String(), "NOT_READY", path)
	}
}

func TestAuctionFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	rr := ts.request(http.MethodPost, "/api/auction/start", map[string]string{"playerId": "p101"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var snap auction.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, auction.StatusBidding, snap.Status)
	assert.Equal(t, 50, snap.CurrentBid)

	rr = ts.request(http.MethodPost, "/api/auction/raise", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/auction/raise", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, 150, snap.CurrentBid)

	rr = ts.request(http.MethodPost, "/api/auction/bidder", map[string]string{"franchiseId": "t1"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, "t1", snap.HighestBidderID)

	rr = ts.request(http.MethodPost, "/api/auction/confirm", nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, auction.StatusSold, snap.Status)

	rr = ts.request(http.MethodGet, "/api/state", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var state api.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Len(t, state.Franchises, 1)
	assert.Equal(t, 5850, state.Franchises[0].Budget)
	require.Len(t, state.Franchises[0].Players, 1)
	assert.Equal(t, "p101", state.Franchises[0].Players[0].ID)
}

func TestConfirmWithoutBidder(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	rr := ts.request(http.MethodPost, "/api/auction/start", map[string]string{"playerId": "p101"}, token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/auction/confirm", nil, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "NO_BIDDER")
}

func TestStartAuctionUnknownPlayer(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	rr := ts.request(http.MethodPost, "/api/auction/start", map[string]string{"playerId": "p999"}, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "PLAYER_NOT_FOUND")
}

func TestGuestWritesAreSilentNoOps(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	guest := ts.guestToken(t)

	rr := ts.request(http.MethodPost, "/api/auction/start", map[string]string{"playerId": "p101"}, admin)
	require.Equal(t, http.StatusOK, rr.Code)

	// A guest raising the bid succeeds with an unchanged snapshot.
	rr = ts.request(http.MethodPost, "/api/auction/raise", nil, guest)
	require.Equal(t, http.StatusOK, rr.Code)
	var snap auction.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, 50, snap.CurrentBid)

	// A guest delete leaves the catalog intact.
	rr = ts.request(http.MethodDelete, "/api/players/p101", nil, guest)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.request(http.MethodGet, "/api/state", nil, guest)
	var state api.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Len(t, state.Players, 1)

	// A guest reset leaves the session running.
	rr = ts.request(http.MethodPost, "/api/reset", nil, guest)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.request(http.MethodGet, "/api/auction", nil, guest)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, auction.StatusBidding, snap.Status)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(fileField, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-image-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func (ts *testServer) multipartRequest(t *testing.T, path string, body *bytes.Buffer, contentType, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func TestCreatePlayer(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	body, contentType := multipartBody(t, map[string]string{
		"id":   "p200",
		"name": "Asha Rao",
		"club": "Delhi Dragons",
		"type": "All-rounder",
	}, "image", "asha.png")
	rr := ts.multipartRequest(t, "/api/players", body, contentType, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var player store.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &player))
	assert.Equal(t, "p200", player.ID)
	assert.Equal(t, 50, player.BasePrice)
	assert.Equal(t, 80, player.Rating)
	assert.Equal(t, "/media/players/1-asha.png", player.Image)
}

func TestCreatePlayerRequiresImage(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("id", "p200"))
	require.NoError(t, mw.WriteField("name", "Asha Rao"))
	require.NoError(t, mw.Close())

	rr := ts.multipartRequest(t, "/api/players", buf, mw.FormDataContentType(), token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "image is required")
}

func TestCreateAndReleaseFranchise(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	body, contentType := multipartBody(t, map[string]string{
		"name":  "Sharks",
		"color": "#0000ff",
	}, "logo", "sharks.png")
	rr := ts.multipartRequest(t, "/api/franchises", body, contentType, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var franchise auction.Franchise
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &franchise))
	assert.Equal(t, "t1700000000000", franchise.ID)
	assert.Equal(t, 6000, franchise.Budget)
	assert.Equal(t, fmt.Sprintf("/media/teams/%s.png", franchise.ID), franchise.Logo)

	// Sell p101 to the new franchise, then release it.
	rr = ts.request(http.MethodPost, "/api/auction/start", map[string]string{"playerId": "p101"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/auction/bidder", map[string]string{"franchiseId": franchise.ID}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/auction/confirm", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/franchises/"+franchise.ID+"/release", map[string]string{"playerId": "p101"}, token)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/state", nil, token)
	var state api.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	for _, f := range state.Franchises {
		if f.ID == franchise.ID {
			assert.Equal(t, 6000, f.Budget)
			assert.Empty(t, f.Players)
		}
	}
}

func TestResetAuction(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	rr := ts.request(http.MethodPost, "/api/auction/start", map[string]string{"playerId": "p101"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/auction/bidder", map[string]string{"franchiseId": "t1"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/auction/confirm", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/reset", nil, token)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/state", nil, token)
	var state api.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, auction.StatusIdle, state.Auction.Status)
	for _, p := range state.Players {
		assert.False(t, p.IsSold)
	}
	for _, f := range state.Franchises {
		assert.Equal(t, f.InitialBudget, f.Budget)
		assert.Empty(t, f.Players)
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	rr := ts.request(http.MethodPost, "/api/logout", nil, token)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/state", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

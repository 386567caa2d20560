package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/climalink/climalink/chain"
	"github.com/climalink/climalink/eligibility"
	"github.com/climalink/climalink/history"
	"github.com/climalink/climalink/models"
	"github.com/climalink/climalink/txflow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccount = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	testAddrs   = chain.Addresses{
		Token:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Climate: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		DAO:     common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}
)

func snapshot(role eligibility.Role, staked, balance, member bool) eligibility.Snapshot {
	return eligibility.Snapshot{
		Account:            testAccount,
		Role:               role,
		IsMember:           role.IsMember(),
		ContractsAvailable: true,
		Eligibility: eligibility.Eligibility{
			HasStaked:     staked,
			HasCLTBalance: balance,
			CanJoin:       staked && balance && !member,
			AlreadyMember: member,
		},
	}
}

func TestPreflight(t *testing.T) {
	cases := []struct {
		name   string
		action string
		snap   eligibility.Snapshot
		want   string
	}{
		{"register fresh", actionRegister, snapshot(eligibility.RoleNone, false, false, false), ""},
		{"register twice", actionRegister, snapshot(eligibility.RoleReporter, false, false, false), "account is already registered as reporter"},
		{"validator without stake", actionJoinValidator, snapshot(eligibility.RoleReporter, false, true, false), txflow.MsgMustStake},
		{"validator ok", actionJoinValidator, snapshot(eligibility.RoleReporter, true, true, false), ""},
		{"dao member", actionJoinDAO, snapshot(eligibility.RoleDAOMember, true, true, true), txflow.MsgAlreadyMember},
		{"dao without stake", actionJoinDAO, snapshot(eligibility.RoleValidator, false, true, false), txflow.MsgMustStake},
		{"dao without balance", actionJoinDAO, snapshot(eligibility.RoleValidator, true, false, false), txflow.MsgInsufficientCLT},
		{"dao ok", actionJoinDAO, snapshot(eligibility.RoleValidator, true, true, false), ""},
		{"nothing to claim", actionClaim, snapshot(eligibility.RoleReporter, false, false, false), errNothingToClaim.Error()},
		{"contracts unavailable", actionJoinDAO, eligibility.Snapshot{Role: eligibility.RoleNone}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := preflight(tc.action, tc.snap)
			if tc.want == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.want)
			}
		})
	}
}

func TestNextAction(t *testing.T) {
	assert.Equal(t, "register", nextAction(snapshot(eligibility.RoleNone, false, false, false)))
	assert.Equal(t, "stake", nextAction(snapshot(eligibility.RoleReporter, false, true, false)))
	assert.Equal(t, "join-validator", nextAction(snapshot(eligibility.RoleReporter, true, true, false)))
	assert.Equal(t, "join-dao", nextAction(snapshot(eligibility.RoleValidator, true, true, false)))
	assert.Equal(t, "", nextAction(snapshot(eligibility.RoleValidator, true, false, false)))
	assert.Equal(t, "", nextAction(snapshot(eligibility.RoleDAOMember, true, true, true)))
	assert.Equal(t, "", nextAction(eligibility.Snapshot{}))
}

func TestRequests(t *testing.T) {
	contracts, err := chain.NewContracts(nil, testAddrs, nil)
	require.NoError(t, err)

	join := joinDAORequest(contracts, testAccount, chain.Tokens(10))
	require.NoError(t, join.Validate())
	require.True(t, join.RequiresApproval())
	assert.Equal(t, testAddrs.DAO, join.Approval.Spender)
	assert.Equal(t, chain.Tokens(10), join.Approval.Amount)
	assert.Equal(t, []string{txflow.StepApprove, txflow.StepExecute}, join.Steps())

	for _, req := range []txflow.Request{
		stakeRequest(contracts, testAccount, chain.Tokens(100)),
		unstakeRequest(contracts, testAccount, chain.Tokens(1)),
		registerRequest(contracts, testAccount),
		joinValidatorRequest(contracts, testAccount),
		claimRequest(contracts, testAccount),
		submitReportRequest(contracts, testAccount, chain.Report{Latitude: 1, Longitude: 2, Condition: "Rain"}),
		validateReportRequest(contracts, testAccount, big.NewInt(7), true),
		createProposalRequest(contracts, testAccount, "plant trees"),
		voteRequest(contracts, testAccount, big.NewInt(3), false),
		executeProposalRequest(contracts, testAccount, big.NewInt(3)),
	} {
		require.NoError(t, req.Validate(), req.Title)
		assert.False(t, req.RequiresApproval(), req.Title)
		assert.Equal(t, []string{txflow.StepExecute}, req.Steps(), req.Title)
		assert.NotNil(t, req.Estimate, req.Title)
	}

	assert.Equal(t, "Stake 100.0 CLT", stakeRequest(contracts, testAccount, chain.Tokens(100)).Description)
	assert.Equal(t, "Vote against proposal #3", voteRequest(contracts, testAccount, big.NewInt(3), false).Description)
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	network := &chain.Network{ExplorerURL: "https://sepolia.etherscan.io/"}
	show := newProgressPrinter(&buf, network)

	approval := common.HexToHash("0xaa").Hex()
	execute := common.HexToHash("0xbb").Hex()
	st := txflow.State{
		ID:     uuid.New(),
		Title:  "Join DAO",
		Status: txflow.StatusPending,
		Steps: []txflow.Step{
			{Name: txflow.StepApprove, Status: txflow.StepPending},
			{Name: txflow.StepExecute, Status: txflow.StepPending},
		},
	}
	show(st)
	st.Status = txflow.StatusApproving
	st.Steps[0].Status = txflow.StepActive
	show(st)
	st.FeeEstimate = "0.0021 ETH"
	show(st)
	st.Steps[0].Hash = approval
	show(st)
	st.Steps[0].Status = txflow.StepCompleted
	st.Status = txflow.StatusConfirming
	st.Steps[1].Status = txflow.StepActive
	show(st)
	st.Steps[1].Hash = execute
	show(st)
	st.Steps[1].Status = txflow.StepCompleted
	st.Status = txflow.StatusSuccess
	show(st)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Join DAO\n"))
	assert.Contains(t, out, "Estimated fee: 0.0021 ETH")
	assert.Contains(t, out, "[1/2] Approve spending: active")
	assert.Contains(t, out, "[1/2] Approve spending: completed")
	assert.Contains(t, out, "[2/2] Execute: active")
	assert.Contains(t, out, "https://sepolia.etherscan.io/tx/"+approval)
	assert.Contains(t, out, "https://sepolia.etherscan.io/tx/"+execute)
	assert.Equal(t, 1, strings.Count(out, "tx "+approval))
	assert.True(t, strings.HasSuffix(out, "Transaction confirmed.\n"))
}

func TestProgressPrinterError(t *testing.T) {
	var buf bytes.Buffer
	show := newProgressPrinter(&buf, nil)
	st := txflow.State{
		ID:     uuid.New(),
		Title:  "Stake CLT",
		Status: txflow.StatusConfirming,
		Steps:  []txflow.Step{{Name: txflow.StepExecute, Status: txflow.StepActive}},
	}
	show(st)
	st.Status = txflow.StatusError
	st.Steps[0].Status = txflow.StepError
	st.Error = txflow.MsgRejected
	show(st)
	assert.Contains(t, buf.String(), "Error: "+txflow.MsgRejected)
	assert.Contains(t, buf.String(), "[1/1] Execute: error")
}

func TestAPIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("latitude") == "200" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Invalid coordinates"}`))
			return
		}
		switch r.URL.Path {
		case "/api/current":
			_ = json.NewEncoder(w).Encode(models.Current{Temperature: 12.5, Humidity: 81.4, WeatherCondition: "Rain", Confidence: 95})
		case "/api/forecast":
			_ = json.NewEncoder(w).Encode(models.Forecast{Forecast: []models.ForecastEntry{{Confidence: 90}, {Confidence: 85}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	api := newAPIClient(srv.URL+"/", time.Second)
	cur, err := api.Current(context.Background(), 52.5, 13.4)
	require.NoError(t, err)
	assert.Equal(t, "Rain", cur.WeatherCondition)

	fc, err := api.Forecast(context.Background(), 52.5, 13.4)
	require.NoError(t, err)
	assert.Len(t, fc.Forecast, 2)

	_, err = api.Current(context.Background(), 200, 13.4)
	assert.EqualError(t, err, "Invalid coordinates (status 400)")

	r := reportFromCurrent(chain.Report{Latitude: 52.5, Longitude: 13.4}, cur)
	assert.Equal(t, 12.5, r.Temperature)
	assert.Equal(t, uint64(81), r.Humidity)
	assert.Equal(t, "Rain", r.Condition)
}

func TestWsURL(t *testing.T) {
	for in, want := range map[string]string{
		"http://localhost:5000":     "ws://localhost:5000/api/ws",
		"https://api.example.org/":  "wss://api.example.org/api/ws",
		"https://example.org/proxy": "wss://example.org/proxy/api/ws",
	} {
		got, err := wsURL(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := wsURL("ftp://example.org")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req map[string]string
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]string{"id": req["id"], "status": "connected"})
		_ = conn.WriteJSON(map[string]any{"type": "eligibility", "data": eligibility.Snapshot{
			Account: common.HexToAddress(req["address"]),
			Role:    eligibility.RoleReporter,
		}})
		_ = conn.WriteJSON(map[string]string{"error": "bye"})
	}))
	defer srv.Close()

	var got []eligibility.Snapshot
	err := newAPIClient(srv.URL, time.Second).Watch(context.Background(), testAccount, func(s eligibility.Snapshot) {
		got = append(got, s)
	})
	assert.EqualError(t, err, "stream: bye")
	require.Len(t, got, 1)
	assert.Equal(t, testAccount, got[0].Account)
	assert.Equal(t, eligibility.RoleReporter, got[0].Role)
}

func TestHistoryCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")
	store, err := history.NewSQLiteStore(context.Background(), dsn)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, store.Insert(context.Background(), []history.Record{{
		ID:         uuid.New(),
		Account:    strings.ToLower(testAccount.Hex()),
		Title:      "Stake CLT",
		Status:     string(txflow.StatusSuccess),
		TxHash:     "0xabc",
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
	}}))
	require.NoError(t, store.Close())

	var buf bytes.Buffer
	writer := app.Writer
	app.Writer = &buf
	defer func() { app.Writer = writer }()

	err = app.Run([]string{"climalink", "--history-dsn", dsn, "history", "--account", testAccount.Hex()})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Stake CLT")
	assert.Contains(t, buf.String(), "0xabc")

	buf.Reset()
	err = app.Run([]string{"climalink", "--history-dsn", dsn, "history", "--account", "0x0000000000000000000000000000000000000001"})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Stake CLT")
}

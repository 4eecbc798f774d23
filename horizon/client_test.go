package horizon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "GBNZILSTVQZ4R7IKQDGHYGY2QXL5QOFJYQMXPKWRRM5PAV7Y4M67AQUA"
	testClaimant = "GCPQ5BKNMHNWYMJ6GMQOXQXCKEZRYYTF6RYKEJKKJYUIZLHT7NOZ5KX6"
)

const balancePageJSON = `{
  "_embedded": {
    "records": [
      {
        "id": "00000000da0d57da7d4850e7fc10d2a9d0ebc731f7afb40574c03395b17d49149b91f5be",
        "asset": "AQUA:` + testIssuer + `",
        "amount": "1250.5000000",
        "sponsor": "GAXSGZ2JM3LNWOO4WRGADISNMWO4HQLG4QBGUZRKH5ZHL3EQBGX73ICE",
        "last_modified_time": "2021-11-04T10:00:00Z",
        "paging_token": "38888155-00000000da0d57da",
        "claimants": [
          {"destination": "` + testClaimant + `", "predicate": {"unconditional": true}},
          {"destination": "GAXSGZ2JM3LNWOO4WRGADISNMWO4HQLG4QBGUZRKH5ZHL3EQBGX73ICE",
           "predicate": {"not": {"abs_before": "2021-12-01T13:00:00Z", "abs_before_epoch": "1638363600"}}}
        ],
        "_links": {
          "transactions": {"href": "https://horizon.stellar.org/claimable_balances/00/transactions{?cursor,limit,order}", "templated": true}
        }
      }
    ]
  }
}`

func newTestClient(t *testing.T, url string) *Client {
	c, err := NewClient(Config{
		URL:           url,
		PageSize:      2,
		Timeout:       time.Second,
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestClient_ClaimableBalances(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/claimable_balances", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(balancePageJSON))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	balances, err := c.ClaimableBalances(BalanceQuery{Claimant: testClaimant, Asset: "AQUA:" + testIssuer}).All(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 1)

	b := balances[0]
	assert.True(t, b.Amount.Equal(decimal.RequireFromString("1250.5")))
	assert.Equal(t, "38888155-00000000da0d57da", b.PagingToken)
	require.NotNil(t, b.LastModifiedTime)
	assert.Equal(t, 2021, b.LastModifiedTime.Year())
	require.Len(t, b.Claimants, 2)
	assert.True(t, b.Claimants[0].Predicate.Unconditional)
	unlock, ok := b.Claimants[1].UnlockTime()
	assert.True(t, ok)
	assert.Equal(t, "2021-12-01T13:00:00Z", unlock)
	assert.True(t, b.Links.Transactions.Templated)

	assert.Contains(t, gotQuery, "claimant="+testClaimant)
	assert.Contains(t, gotQuery, "order=asc")
	assert.Contains(t, gotQuery, "limit=2")
	assert.NotContains(t, gotQuery, "cursor=")
}

func TestClient_ClaimableBalancesPaging(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			assert.Empty(t, r.URL.Query().Get("cursor"))
			_, _ = fmt.Fprint(w, `{"_embedded":{"records":[
				{"id":"a","asset":"native","amount":"1","paging_token":"p1"},
				{"id":"b","asset":"native","amount":"2","paging_token":"p2"}]}}`)
			return
		}
		assert.Equal(t, "p2", r.URL.Query().Get("cursor"))
		_, _ = fmt.Fprint(w, `{"_embedded":{"records":[]}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	balances, err := c.ClaimableBalances(BalanceQuery{Claimant: testClaimant}).All(context.Background())
	require.NoError(t, err)
	assert.Len(t, balances, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_RejectsRecordWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"_embedded":{"records":[{"asset":"native","amount":"1"}]}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.ClaimableBalances(BalanceQuery{Claimant: testClaimant}).All(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestClient_RetriesUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, `{"_embedded":{"records":[]}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	balances, err := c.ClaimableBalances(BalanceQuery{Claimant: testClaimant}).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, balances)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.ClaimableBalances(BalanceQuery{Claimant: testClaimant}).All(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClient_BadRequestIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.ClaimableBalances(BalanceQuery{Claimant: testClaimant}).All(context.Background())
	assert.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_BalanceOperations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/claimable_balances/known/operations":
			assert.Equal(t, "asc", r.URL.Query().Get("order"))
			assert.Equal(t, strconv.Itoa(50), r.URL.Query().Get("limit"))
			_, _ = fmt.Fprint(w, `{"_embedded":{"records":[
				{"id":"1","type":"create_claimable_balance","created_at":"2021-11-01T09:30:00Z","amount":"100.0000000","transaction_hash":"abc"},
				{"id":"2","type":"claim_claimable_balance","created_at":"2021-11-02T09:30:00Z"}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ops, err := c.BalanceOperations(context.Background(), "known", 0)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "create_claimable_balance", ops[0].Type)
	assert.True(t, ops[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, time.Date(2021, 11, 1, 9, 30, 0, 0, time.UTC), ops[0].CreatedAt.UTC())

	_, err = c.BalanceOperations(context.Background(), "gone", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

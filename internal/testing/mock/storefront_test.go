package mock

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCart(t *testing.T, url string) cartJSON {
	t.Helper()
	resp, err := http.Get(url + "/cart.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var c cartJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	return c
}

func post(t *testing.T, url, path, body string) int {
	t.Helper()
	resp, err := http.Post(url+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestStorefront_CartAPI(t *testing.T) {
	store := NewStorefront("tok")
	store.SetMerchandise(60000)
	store.SetPrice("111", 500)

	srv := httptest.NewServer(store.Handler())
	defer srv.Close()

	c := readCart(t, srv.URL)
	assert.Equal(t, "tok", c.Token)
	assert.Equal(t, int64(60000), c.TotalPrice)
	assert.Equal(t, 1, c.ItemCount)

	assert.Equal(t, http.StatusOK, post(t, srv.URL, "/cart/add.js", `{"id":111,"quantity":1}`))
	c = readCart(t, srv.URL)
	assert.Equal(t, int64(60500), c.TotalPrice)
	assert.Equal(t, 2, c.ItemCount)
	assert.Equal(t, 1, store.Quantity("111"))
	assert.Equal(t, 1, store.AddCalls("111"))

	assert.Equal(t, http.StatusOK, post(t, srv.URL, "/cart/change.js", `{"id":111,"quantity":0}`))
	assert.Equal(t, 0, store.Quantity("111"))
	assert.Equal(t, 1, store.RemoveCalls("111"))

	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL, "/cart/change.js", `{"id":111,"quantity":0}`))
}

func TestStorefront_FailureInjection(t *testing.T) {
	store := NewStorefront("tok")
	srv := httptest.NewServer(store.Handler())
	defer srv.Close()

	store.FailAdd("222", true)
	assert.Equal(t, http.StatusUnprocessableEntity, post(t, srv.URL, "/cart/add.js", `{"id":222,"quantity":1}`))
	assert.Equal(t, 0, store.Quantity("222"))

	store.FailReads(true)
	resp, err := http.Get(srv.URL + "/cart.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRuleBackend(t *testing.T) {
	backend := NewRuleBackend(map[string]any{"id": "gift", "minCartValue": "500", "productIds": "[111]"})
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/cart-rules?shop=s")
	require.NoError(t, err)
	var body struct {
		Rules []map[string]any `json:"rules"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	require.Len(t, body.Rules, 1)
	assert.Equal(t, 1, backend.Fetches())

	resp, err = http.Get(srv.URL + "/api/cart-rules")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, http.StatusOK, post(t, srv.URL, "/api/cart-rules", `{"ruleId":"gift","sessionId":"s1","cartId":"tok","shop":"s"}`))
	require.Len(t, backend.Executions(), 1)
	assert.Equal(t, "gift", backend.Executions()[0].RuleID)
}

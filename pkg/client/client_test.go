package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "s3cret!" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "error", "status_code": 401, "error": "Invalid username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"username": body["login"], "role": "staff"},
		}})
	})
	mux.HandleFunc("POST /api/totals/preview", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{
			"totals": map[string]any{"total_amount": "118.00", "amount_in_words": "Rupees One Hundred Eighteen Only"},
		}})
	})
	mux.HandleFunc("POST /api/invoices", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status": "error", "status_code": 422, "error": "Validation failed",
			"errors": []map[string]string{{"field": "items[0].quantity", "message": "must be greater than zero"}},
		})
	})
	mux.HandleFunc("GET /api/invoices", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PAID", r.URL.Query().Get("status"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"data":   []map[string]any{{"id": "i-1", "number": "INV-20240401-00001", "status": "PAID"}},
			"meta":   map[string]any{"page": 2, "limit": 20, "total": 21, "total_pages": 2},
		})
	})
	mux.HandleFunc("GET /api/khata/parties/{id}/balance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 498, map[string]any{"status": "error", "status_code": 498, "error": "Token expired"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LoginAndPreview(t *testing.T) {
	srv := newTestAPI(t)
	c := New(srv.URL, nil)
	ctx := context.Background()

	res, err := c.Login(ctx, "counter", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "counter", res.User.Username)
	assert.Equal(t, "tok-1", c.Session().Token())

	rate := "100"
	preview, err := c.PreviewTotals(ctx, PreviewInput{Items: []Line{{Quantity: "1", Rate: &rate}}})
	require.NoError(t, err)
	assert.Equal(t, "118.00", preview.Totals.TotalAmount)
	assert.Equal(t, "Rupees One Hundred Eighteen Only", preview.Totals.AmountInWords)
}

func TestClient_FailedLoginKeepsSession(t *testing.T) {
	srv := newTestAPI(t)
	session := NewSession("old")
	fired := false
	session.OnInvalidate(func() { fired = true })
	c := New(srv.URL, session)

	_, err := c.Login(context.Background(), "counter", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "old", session.Token())
	assert.False(t, fired)
}

func TestClient_RejectedTokenInvalidatesSession(t *testing.T) {
	srv := newTestAPI(t)
	session := NewSession("stale")
	calls := 0
	session.OnInvalidate(func() { calls++ })
	c := New(srv.URL, session)

	_, err := c.PartyBalance(context.Background(), "p-1")
	assert.True(t, errors.Is(err, ErrSessionInvalidated))
	assert.Empty(t, session.Token())
	assert.Equal(t, 1, calls)

	// 401 from another endpoint behaves the same.
	session.SetToken("wrong")
	_, err = c.PreviewTotals(context.Background(), PreviewInput{})
	assert.ErrorIs(t, err, ErrSessionInvalidated)
	assert.Equal(t, 2, calls)
}

func TestClient_ValidationErrors(t *testing.T) {
	srv := newTestAPI(t)
	c := New(srv.URL, NewSession("tok-1"))

	_, err := c.CreateInvoice(context.Background(), InvoiceInput{PartyID: "p-1", Items: []Line{{Quantity: "0"}}})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "items[0].quantity", apiErr.Fields[0].Field)
	assert.Equal(t, "tok-1", c.Session().Token())
}

func TestClient_ListInvoices(t *testing.T) {
	srv := newTestAPI(t)
	c := New(srv.URL, NewSession("tok-1"))

	invoices, meta, err := c.ListInvoices(context.Background(), InvoiceFilter{Status: "PAID", Page: 2})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-20240401-00001", invoices[0].Number)
	require.NotNil(t, meta)
	assert.EqualValues(t, 21, meta.Total)
}

package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientGetTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transaction/abc123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"transaction_id": "abc123",
			"amount": 2500,
			"description": "order 42",
			"reference": "ref-42",
			"language": "en",
			"email": "payer@example.com",
			"return_url": "https://shop.example.com/done",
			"gateway_transaction_id": "gw-9",
			"state": {"status": "success", "finished": true}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	tx, err := client.GetTransaction(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if tx.TransactionID != "abc123" || tx.Amount != 2500 {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.State.Status != "success" || !tx.State.Finished {
		t.Fatalf("unexpected state %+v", tx.State)
	}
}

func TestClientGetTransactionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if _, err := client.GetTransaction(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClientGetTransactionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.GetTransaction(context.Background(), "abc123")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want server error", err)
	}
}

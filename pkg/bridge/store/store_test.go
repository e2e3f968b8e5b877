package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatCaseDate(t *testing.T) {
	ts := time.Date(2026, 8, 1, 10, 30, 5, 0, time.UTC)
	if got := formatCaseDate(ts); got != "2026-08-01 10:30:05" {
		t.Fatalf("got %q", got)
	}
}

// openTestStore connects against VOICEBRIDGE_TEST_POSTGRES_DSN; tests
// that need a live database skip when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("VOICEBRIDGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOICEBRIDGE_TEST_POSTGRES_DSN not set")
	}
	st, err := Open(context.Background(), dsn, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func seedClient(t *testing.T, st *Store, clientID, name, email string) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	err := st.pool.QueryRow(ctx,
		`INSERT INTO clients (client_id, name, email) VALUES ($1, $2, $3) RETURNING id`,
		clientID, name, email).Scan(&id)
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	t.Cleanup(func() {
		_, _ = st.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	})
	return id
}

func TestStore_SupportFlow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	clientID := "it-" + uuid.NewString()[:8]
	internalID := seedClient(t, st, clientID, "Ada Lovelace", "ada@example.com")

	var productID int64
	err := st.pool.QueryRow(ctx,
		`INSERT INTO products (name, type) VALUES ('Fiber 600', 'internet') RETURNING id`).Scan(&productID)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = st.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})
	if _, err := st.pool.Exec(ctx,
		`INSERT INTO client_products (client_id, product_id) VALUES ($1, $2)`,
		internalID, productID); err != nil {
		t.Fatalf("seed client product: %v", err)
	}
	if _, err := st.pool.Exec(ctx,
		`INSERT INTO support_cases (client_id, description, status) VALUES ($1, 'router down', 'open')`,
		internalID); err != nil {
		t.Fatalf("seed case: %v", err)
	}

	got, err := st.ClientProducts(ctx, clientID)
	if err != nil {
		t.Fatalf("ClientProducts: %v", err)
	}
	if got.ClientName != "Ada Lovelace" {
		t.Fatalf("client name %q", got.ClientName)
	}
	if len(got.Products) != 1 || got.Products[0].Name != "Fiber 600" || got.Products[0].Type != "internet" {
		t.Fatalf("products %+v", got.Products)
	}
	if len(got.OpenCases) != 1 || got.OpenCases[0].Description != "router down" || got.OpenCases[0].Status != "open" {
		t.Fatalf("open cases %+v", got.OpenCases)
	}
	if len(got.OpenCases[0].CreatedDate) != len("2006-01-02 15:04:05") {
		t.Fatalf("created date %q", got.OpenCases[0].CreatedDate)
	}

	receipt, err := st.CreateSupportCase(ctx, clientID, "no dial tone")
	if err != nil {
		t.Fatalf("CreateSupportCase: %v", err)
	}
	if receipt.CaseID == 0 || receipt.Status != "open" || receipt.ClientName != "Ada Lovelace" {
		t.Fatalf("receipt %+v", receipt)
	}
	if !strings.Contains(receipt.Message, "created successfully for Ada Lovelace") {
		t.Fatalf("message %q", receipt.Message)
	}

	contact, err := st.ClientContact(ctx, clientID)
	if err != nil {
		t.Fatalf("ClientContact: %v", err)
	}
	if contact.Name != "Ada Lovelace" || contact.Email != "ada@example.com" {
		t.Fatalf("contact %+v", contact)
	}
}

func TestStore_UnknownClient(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	missing := "missing-" + uuid.NewString()[:8]

	got, err := st.ClientProducts(ctx, missing)
	if err != nil {
		t.Fatalf("ClientProducts: %v", err)
	}
	if got.ClientName != "" || len(got.Products) != 0 || len(got.OpenCases) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}

	if _, err := st.CreateSupportCase(ctx, missing, "d"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("CreateSupportCase err=%v", err)
	}
	if _, err := st.ClientContact(ctx, missing); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("ClientContact err=%v", err)
	}
}

func TestStore_NullEmailBecomesEmptyContact(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	clientID := "it-" + uuid.NewString()[:8]
	var id int64
	err := st.pool.QueryRow(ctx,
		`INSERT INTO clients (client_id, name) VALUES ($1, 'No Mail') RETURNING id`,
		clientID).Scan(&id)
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	t.Cleanup(func() {
		_, _ = st.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	})

	contact, err := st.ClientContact(ctx, clientID)
	if err != nil {
		t.Fatalf("ClientContact: %v", err)
	}
	if contact.Name != "No Mail" || contact.Email != "" {
		t.Fatalf("contact %+v", contact)
	}
}

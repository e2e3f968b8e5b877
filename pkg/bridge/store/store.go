// Package store backs the support tools with Postgres: client lookup,
// contracted products and support cases.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/soundline/voicebridge/pkg/bridge/store/migrations"
	"github.com/soundline/voicebridge/pkg/bridge/tools"
)

// Store implements tools.Directory on a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ tools.Directory = (*Store)(nil)

// Open connects the pool, verifies it and applies pending migrations.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := migrate(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	logger.Info("support store ready")
	return &Store{pool: pool, logger: logger}, nil
}

func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.Run(db)
}

func (s *Store) Close() {
	s.pool.Close()
}

// ClientProducts returns the client name, contracted products and open
// or in-progress support cases for the given external client id. A
// client with no products yields empty slices, not an error.
func (s *Store) ClientProducts(ctx context.Context, clientID string) (tools.ClientProducts, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.name, p.name, p.type
		FROM clients c
		JOIN client_products cp ON c.id = cp.client_id
		JOIN products p ON cp.product_id = p.id
		WHERE c.client_id = $1`, clientID)
	if err != nil {
		return tools.ClientProducts{}, fmt.Errorf("store: query products: %w", err)
	}
	defer rows.Close()

	result := tools.ClientProducts{
		Products:  []tools.Product{},
		OpenCases: []tools.SupportCase{},
	}
	for rows.Next() {
		var clientName string
		var p tools.Product
		if err := rows.Scan(&clientName, &p.Name, &p.Type); err != nil {
			return tools.ClientProducts{}, fmt.Errorf("store: scan product: %w", err)
		}
		result.ClientName = clientName
		result.Products = append(result.Products, p)
	}
	if err := rows.Err(); err != nil {
		return tools.ClientProducts{}, fmt.Errorf("store: read products: %w", err)
	}

	caseRows, err := s.pool.Query(ctx, `
		SELECT sc.id, sc.description, sc.status, sc.created_date
		FROM support_cases sc
		JOIN clients c ON sc.client_id = c.id
		WHERE c.client_id = $1 AND sc.status IN ('open', 'in_progress')
		ORDER BY sc.created_date DESC`, clientID)
	if err != nil {
		return tools.ClientProducts{}, fmt.Errorf("store: query cases: %w", err)
	}
	defer caseRows.Close()

	for caseRows.Next() {
		var c tools.SupportCase
		var created time.Time
		if err := caseRows.Scan(&c.ID, &c.Description, &c.Status, &created); err != nil {
			return tools.ClientProducts{}, fmt.Errorf("store: scan case: %w", err)
		}
		c.CreatedDate = formatCaseDate(created)
		result.OpenCases = append(result.OpenCases, c)
	}
	if err := caseRows.Err(); err != nil {
		return tools.ClientProducts{}, fmt.Errorf("store: read cases: %w", err)
	}

	s.logger.Info("client products looked up",
		"client_id", clientID,
		"products", len(result.Products),
		"open_cases", len(result.OpenCases))
	return result, nil
}

// CreateSupportCase opens a new case for an existing client.
func (s *Store) CreateSupportCase(ctx context.Context, clientID, description string) (tools.CaseReceipt, error) {
	var internalID int64
	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM clients WHERE client_id = $1`, clientID).
		Scan(&internalID, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return tools.CaseReceipt{}, fmt.Errorf("client with ID %s not found", clientID)
	}
	if err != nil {
		return tools.CaseReceipt{}, fmt.Errorf("store: lookup client: %w", err)
	}

	var caseID int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO support_cases (client_id, description, status)
		VALUES ($1, $2, 'open')
		RETURNING id`, internalID, description).Scan(&caseID)
	if err != nil {
		return tools.CaseReceipt{}, fmt.Errorf("store: create case: %w", err)
	}

	s.logger.Info("support case created", "case_id", caseID, "client_id", clientID)
	return tools.CaseReceipt{
		CaseID:      caseID,
		ClientName:  name,
		Description: description,
		Status:      "open",
		Message:     fmt.Sprintf("Support case #%d created successfully for %s", caseID, name),
	}, nil
}

// ClientContact returns the delivery address for a summary email.
func (s *Store) ClientContact(ctx context.Context, clientID string) (tools.ClientContact, error) {
	var contact tools.ClientContact
	var email *string
	err := s.pool.QueryRow(ctx,
		`SELECT email, name FROM clients WHERE client_id = $1`, clientID).
		Scan(&email, &contact.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return tools.ClientContact{}, fmt.Errorf("client with ID %s not found", clientID)
	}
	if err != nil {
		return tools.ClientContact{}, fmt.Errorf("store: lookup contact: %w", err)
	}
	if email != nil {
		contact.Email = *email
	}
	return contact, nil
}

// formatCaseDate matches the timestamp format the voice agent reads out.
func formatCaseDate(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

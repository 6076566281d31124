package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
)

// LoyaltyRepository defines the interface for the loyalty points ledger.
type LoyaltyRepository interface {
	CreateEntry(executor SQLExecutor, entry *models.LoyaltyLedger) (int64, error)
	GetBalance(executor SQLExecutor, customerPhone string) (int, error)
	GetEntriesByPhone(customerPhone string) ([]models.LoyaltyLedger, error)
}

type loyaltyRepository struct {
	db *sql.DB
}

// NewLoyaltyRepository creates a new instance of LoyaltyRepository.
func NewLoyaltyRepository(db *sql.DB) LoyaltyRepository {
	return &loyaltyRepository{db: db}
}

func (r *loyaltyRepository) CreateEntry(executor SQLExecutor, entry *models.LoyaltyLedger) (int64, error) {
	query := `INSERT INTO loyalty_ledger (customer_phone, points, order_id, note, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		entry.CustomerPhone, entry.Points, entry.OrderID, entry.Note, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating loyalty ledger entry: %v", ErrDatabaseError, err)
	}
	return entry.ID, nil
}

func (r *loyaltyRepository) GetBalance(executor SQLExecutor, customerPhone string) (int, error) {
	if executor == nil {
		executor = r.db
	}
	var balance int
	query := `SELECT COALESCE(SUM(points), 0) FROM loyalty_ledger WHERE customer_phone = $1`
	if err := executor.QueryRow(query, customerPhone).Scan(&balance); err != nil {
		return 0, fmt.Errorf("%w: getting loyalty balance: %v", ErrDatabaseError, err)
	}
	return balance, nil
}

func (r *loyaltyRepository) GetEntriesByPhone(customerPhone string) ([]models.LoyaltyLedger, error) {
	query := `SELECT id, customer_phone, points, order_id, note, created_at
	          FROM loyalty_ledger WHERE customer_phone = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(query, customerPhone)
	if err != nil {
		return nil, fmt.Errorf("%w: getting loyalty ledger entries: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	entries := []models.LoyaltyLedger{}
	for rows.Next() {
		var entry models.LoyaltyLedger
		if err := rows.Scan(
			&entry.ID, &entry.CustomerPhone, &entry.Points, &entry.OrderID,
			&entry.Note, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning loyalty ledger entry: %v", ErrDatabaseError, err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating loyalty ledger entries: %v", ErrDatabaseError, err)
	}
	return entries, nil
}

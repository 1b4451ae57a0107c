package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseService provides CRUD over recurring monthly fixed expenses.
type ExpenseService interface {
	List(ctx context.Context) ([]FixedExpense, error)
	Get(ctx context.Context, id int) (*FixedExpense, error)
	Create(ctx context.Context, in ExpenseInput) (*FixedExpense, error)
	Update(ctx context.Context, id int, in ExpenseInput) (*FixedExpense, error)
	Delete(ctx context.Context, id int) error
}

type expenseService struct {
	pool *pgxpool.Pool
}

// NewExpenseService constructs an ExpenseService backed by PostgreSQL.
func NewExpenseService(pool *pgxpool.Pool) ExpenseService {
	return &expenseService{pool: pool}
}

func (s *expenseService) List(ctx context.Context) ([]FixedExpense, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, amount, created_at
		FROM fixed_expenses
		ORDER BY name, id
	`)
	if err != nil {
		return nil, unavailable("query fixed expenses", err)
	}
	defer rows.Close()

	expenses := []FixedExpense{}
	for rows.Next() {
		var e FixedExpense
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount, &e.CreatedAt); err != nil {
			return nil, unavailable("scan fixed expense", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate fixed expenses", err)
	}
	return expenses, nil
}

func (s *expenseService) Get(ctx context.Context, id int) (*FixedExpense, error) {
	var e FixedExpense
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, amount, created_at FROM fixed_expenses WHERE id = $1", id,
	).Scan(&e.ID, &e.Name, &e.Amount, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("fixed expense", id)
		}
		return nil, unavailable("fetch fixed expense", err)
	}
	return &e, nil
}

func (s *expenseService) Create(ctx context.Context, in ExpenseInput) (*FixedExpense, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var e FixedExpense
	err := s.pool.QueryRow(ctx, `
		INSERT INTO fixed_expenses (name, amount)
		VALUES ($1, $2)
		RETURNING id, name, amount, created_at
	`, in.Name, in.Amount).Scan(&e.ID, &e.Name, &e.Amount, &e.CreatedAt)
	if err != nil {
		return nil, unavailable("create fixed expense", err)
	}
	return &e, nil
}

func (s *expenseService) Update(ctx context.Context, id int, in ExpenseInput) (*FixedExpense, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var e FixedExpense
	err := s.pool.QueryRow(ctx, `
		UPDATE fixed_expenses SET name = $1, amount = $2
		WHERE id = $3
		RETURNING id, name, amount, created_at
	`, in.Name, in.Amount, id).Scan(&e.ID, &e.Name, &e.Amount, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("fixed expense", id)
		}
		return nil, unavailable("update fixed expense", err)
	}
	return &e, nil
}

func (s *expenseService) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM fixed_expenses WHERE id = $1", id)
	if err != nil {
		return unavailable("delete fixed expense", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("fixed expense", id)
	}
	return nil
}

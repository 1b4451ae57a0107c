package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PurchaseService persists purchase documents. Creating a purchase adds its
// quantities to stock; deleting one takes them back out, never below zero.
type PurchaseService interface {
	// List returns one page of purchases, newest first, with their lines.
	// The search text matches supplier name or product name.
	List(ctx context.Context, q ListQuery) (Page[Purchase], error)
	Get(ctx context.Context, id int) (*Purchase, error)
	Create(ctx context.Context, in PurchaseInput) (*Purchase, error)
	// Update changes header fields only.
	Update(ctx context.Context, id int, u PurchaseHeaderUpdate) (*Purchase, error)
	Delete(ctx context.Context, id int) error
}

type purchaseService struct {
	pool *pgxpool.Pool
}

// NewPurchaseService constructs a PurchaseService backed by PostgreSQL.
func NewPurchaseService(pool *pgxpool.Pool) PurchaseService {
	return &purchaseService{pool: pool}
}

const purchaseColumns = `
	p.id, p.purchase_date, p.supplier_name, p.notes, p.total, p.created_at, p.updated_at`

const purchaseSearch = `
	($1 = '' OR p.supplier_name ILIKE '%' || $1 || '%'
	          OR EXISTS (SELECT 1 FROM purchase_items pi
	                     WHERE pi.purchase_id = p.id
	                       AND pi.product_name ILIKE '%' || $1 || '%'))`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.Date, &p.SupplierName, &p.Notes, &p.Total, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *purchaseService) List(ctx context.Context, q ListQuery) (Page[Purchase], error) {
	q = q.Normalize()
	page := Page[Purchase]{Items: []Purchase{}, Page: q.Page, PageSize: q.PageSize}

	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM purchases p WHERE"+purchaseSearch, q.Search,
	).Scan(&page.TotalCount); err != nil {
		return page, unavailable("count purchases", err)
	}

	sql := "SELECT" + purchaseColumns + " FROM purchases p WHERE" + purchaseSearch +
		" ORDER BY p.purchase_date DESC, p.id DESC"
	args := []any{q.Search}
	if q.PageSize > 0 {
		args = append(args, q.PageSize, q.Offset())
		sql += " LIMIT $2 OFFSET $3"
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return page, unavailable("query purchases", err)
	}
	defer rows.Close()

	index := make(map[int]int)
	var ids []int
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return page, unavailable("scan purchase", err)
		}
		p.Items = []LineItem{}
		index[p.ID] = len(page.Items)
		ids = append(ids, p.ID)
		page.Items = append(page.Items, p)
	}
	if err := rows.Err(); err != nil {
		return page, unavailable("iterate purchases", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return page, nil
	}
	lines, err := s.loadLines(ctx, ids)
	if err != nil {
		return page, err
	}
	for purchaseID, ls := range lines {
		page.Items[index[purchaseID]].Items = ls
	}
	return page, nil
}

func (s *purchaseService) Get(ctx context.Context, id int) (*Purchase, error) {
	p, err := scanPurchase(s.pool.QueryRow(ctx, "SELECT"+purchaseColumns+" FROM purchases p WHERE p.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("purchase", id)
		}
		return nil, unavailable("fetch purchase", err)
	}
	lines, err := s.loadLines(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	p.Items = lines[id]
	if p.Items == nil {
		p.Items = []LineItem{}
	}
	return &p, nil
}

func (s *purchaseService) loadLines(ctx context.Context, purchaseIDs []int) (map[int][]LineItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT purchase_id, id, COALESCE(product_id, 0), product_name, quantity, unit_cost, subtotal
		FROM purchase_items
		WHERE purchase_id = ANY($1)
		ORDER BY purchase_id, line_number
	`, purchaseIDs)
	if err != nil {
		return nil, unavailable("query purchase items", err)
	}
	defer rows.Close()

	out := make(map[int][]LineItem)
	for rows.Next() {
		var purchaseID int
		var l LineItem
		if err := rows.Scan(&purchaseID, &l.ID, &l.ProductID, &l.ProductName, &l.Quantity,
			&l.UnitCost, &l.Subtotal); err != nil {
			return nil, unavailable("scan purchase item", err)
		}
		out[purchaseID] = append(out[purchaseID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate purchase items", err)
	}
	return out, nil
}

func (s *purchaseService) Create(ctx context.Context, in PurchaseInput) (*Purchase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	lines := make([]LineItem, len(in.Items))
	received := make(map[int]int)
	for i, l := range in.Items {
		lines[i] = l.Recompute(KindPurchase)
		received[l.ProductID] += l.Quantity
	}
	totals := Aggregate(lines)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	productIDs := make([]int, 0, len(received))
	for id := range received {
		productIDs = append(productIDs, id)
	}
	sort.Ints(productIDs)

	for _, id := range productIDs {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET stock_actual = stock_actual + $1, updated_at = NOW()
			WHERE id = $2
		`, received[id], id)
		if err != nil {
			return nil, unavailable(fmt.Sprintf("increment stock of product %d", id), err)
		}
		if tag.RowsAffected() == 0 {
			return nil, notFound("product", id)
		}
	}

	var purchaseID int
	err = tx.QueryRow(ctx, `
		INSERT INTO purchases (purchase_date, supplier_name, notes, total)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, in.Date.Format("2006-01-02"), in.SupplierName, in.Notes, totals.Total).Scan(&purchaseID)
	if err != nil {
		return nil, unavailable("insert purchase", err)
	}

	for i, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_items (purchase_id, line_number, product_id, product_name, quantity, unit_cost, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, purchaseID, i+1, l.ProductID, l.ProductName, l.Quantity, l.UnitCost, l.Subtotal); err != nil {
			return nil, unavailable(fmt.Sprintf("insert purchase line %d", i+1), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable("commit purchase", err)
	}
	return s.Get(ctx, purchaseID)
}

func (s *purchaseService) Update(ctx context.Context, id int, u PurchaseHeaderUpdate) (*Purchase, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	var date *string
	if u.Date != nil {
		d := u.Date.Format("2006-01-02")
		date = &d
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE purchases
		SET purchase_date = COALESCE($1::date, purchase_date),
		    supplier_name = COALESCE($2, supplier_name),
		    notes         = COALESCE($3, notes),
		    updated_at    = NOW()
		WHERE id = $4
	`, date, u.SupplierName, u.Notes, id)
	if err != nil {
		return nil, unavailable("update purchase", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("purchase", id)
	}
	return s.Get(ctx, id)
}

func (s *purchaseService) Delete(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	if err := tx.QueryRow(ctx, "SELECT id FROM purchases WHERE id = $1 FOR UPDATE", id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("purchase", id)
		}
		return unavailable("lock purchase", err)
	}

	// Units already sold cannot be un-received; stock floors at zero.
	if _, err := tx.Exec(ctx, `
		UPDATE products p
		SET stock_actual = GREATEST(p.stock_actual - r.qty, 0), updated_at = NOW()
		FROM (
		    SELECT product_id, SUM(quantity) AS qty
		    FROM purchase_items
		    WHERE purchase_id = $1 AND product_id IS NOT NULL
		    GROUP BY product_id
		) r
		WHERE p.id = r.product_id
	`, id); err != nil {
		return unavailable("reverse stock", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchases WHERE id = $1", id); err != nil {
		return unavailable("delete purchase", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit purchase deletion", err)
	}
	return nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SaleService persists sale documents. It is the final authority on stock:
// Create locks every referenced product and rejects the whole sale if any
// line exceeds the stock on hand at commit time.
type SaleService interface {
	// List returns one page of sales, newest first, with their lines.
	// The search text matches customer name, payment method, product name or serial number.
	List(ctx context.Context, q ListQuery) (Page[Sale], error)
	// ListBetween returns sale headers (no lines) dated in [from, to], oldest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]Sale, error)
	Get(ctx context.Context, id int) (*Sale, error)
	// Create stores a sale and decrements stock atomically.
	Create(ctx context.Context, in SaleInput) (*Sale, error)
	// Update changes header fields only.
	Update(ctx context.Context, id int, u SaleHeaderUpdate) (*Sale, error)
	// Delete removes a sale and returns its units to stock.
	Delete(ctx context.Context, id int) error
}

type saleService struct {
	pool *pgxpool.Pool
}

// NewSaleService constructs a SaleService backed by PostgreSQL.
func NewSaleService(pool *pgxpool.Pool) SaleService {
	return &saleService{pool: pool}
}

const saleColumns = `
	s.id, s.sale_date, s.customer_name, s.payment_method, s.exchange_rate,
	s.trade_in, s.notes, s.total, s.total_profit, s.created_at, s.updated_at`

const saleSearch = `
	($1 = '' OR s.customer_name ILIKE '%' || $1 || '%'
	          OR s.payment_method ILIKE '%' || $1 || '%'
	          OR EXISTS (SELECT 1 FROM sale_items si
	                     WHERE si.sale_id = s.id
	                       AND (si.product_name ILIKE '%' || $1 || '%'
	                            OR si.serial_number ILIKE '%' || $1 || '%')))`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.Date, &s.CustomerName, &s.PaymentMethod, &s.ExchangeRate,
		&s.TradeIn, &s.Notes, &s.Total, &s.TotalProfit, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (s *saleService) List(ctx context.Context, q ListQuery) (Page[Sale], error) {
	q = q.Normalize()
	page := Page[Sale]{Items: []Sale{}, Page: q.Page, PageSize: q.PageSize}

	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM sales s WHERE"+saleSearch, q.Search,
	).Scan(&page.TotalCount); err != nil {
		return page, unavailable("count sales", err)
	}

	sql := "SELECT" + saleColumns + " FROM sales s WHERE" + saleSearch +
		" ORDER BY s.sale_date DESC, s.id DESC"
	args := []any{q.Search}
	if q.PageSize > 0 {
		args = append(args, q.PageSize, q.Offset())
		sql += " LIMIT $2 OFFSET $3"
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return page, unavailable("query sales", err)
	}
	defer rows.Close()

	index := make(map[int]int)
	var ids []int
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return page, unavailable("scan sale", err)
		}
		sale.Items = []LineItem{}
		index[sale.ID] = len(page.Items)
		ids = append(ids, sale.ID)
		page.Items = append(page.Items, sale)
	}
	if err := rows.Err(); err != nil {
		return page, unavailable("iterate sales", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return page, nil
	}
	lines, err := s.loadLines(ctx, s.pool, ids)
	if err != nil {
		return page, err
	}
	for saleID, ls := range lines {
		page.Items[index[saleID]].Items = ls
	}
	return page, nil
}

func (s *saleService) ListBetween(ctx context.Context, from, to time.Time) ([]Sale, error) {
	rows, err := s.pool.Query(ctx, "SELECT"+saleColumns+`
		FROM sales s
		WHERE s.sale_date >= $1::date AND s.sale_date <= $2::date
		ORDER BY s.sale_date, s.id
	`, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, unavailable("query sales between dates", err)
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, unavailable("scan sale", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate sales", err)
	}
	return sales, nil
}

func (s *saleService) Get(ctx context.Context, id int) (*Sale, error) {
	sale, err := scanSale(s.pool.QueryRow(ctx, "SELECT"+saleColumns+" FROM sales s WHERE s.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("sale", id)
		}
		return nil, unavailable("fetch sale", err)
	}
	lines, err := s.loadLines(ctx, s.pool, []int{id})
	if err != nil {
		return nil, err
	}
	sale.Items = lines[id]
	if sale.Items == nil {
		sale.Items = []LineItem{}
	}
	return &sale, nil
}

// loadLines fetches the lines of the given sales grouped by sale id.
func (s *saleService) loadLines(ctx context.Context, q pgxQuerier, saleIDs []int) (map[int][]LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT sale_id, id, COALESCE(product_id, 0), product_name, quantity,
		       unit_cost, unit_price, serial_number, subtotal, profit
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_number
	`, saleIDs)
	if err != nil {
		return nil, unavailable("query sale items", err)
	}
	defer rows.Close()

	out := make(map[int][]LineItem)
	for rows.Next() {
		var saleID int
		var l LineItem
		if err := rows.Scan(&saleID, &l.ID, &l.ProductID, &l.ProductName, &l.Quantity,
			&l.UnitCost, &l.UnitPrice, &l.SerialNumber, &l.Subtotal, &l.Profit); err != nil {
			return nil, unavailable("scan sale item", err)
		}
		out[saleID] = append(out[saleID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate sale items", err)
	}
	return out, nil
}

func (s *saleService) Create(ctx context.Context, in SaleInput) (*Sale, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	lines := make([]LineItem, len(in.Items))
	wanted := make(map[int]int)
	for i, l := range in.Items {
		lines[i] = l.Recompute(KindSale)
		wanted[l.ProductID] += l.Quantity
	}
	totals := Aggregate(lines)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Lock products in id order so concurrent sales cannot deadlock.
	productIDs := make([]int, 0, len(wanted))
	for id := range wanted {
		productIDs = append(productIDs, id)
	}
	sort.Ints(productIDs)

	for _, id := range productIDs {
		item, err := getProduct(ctx, tx, id, true)
		if err != nil {
			return nil, err
		}
		if wanted[id] > item.StockActual {
			return nil, &StockExceededError{
				ProductID: id,
				ItemName:  item.Name,
				Available: item.StockActual,
				Requested: wanted[id],
			}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock_actual = stock_actual - $1, updated_at = NOW()
			WHERE id = $2
		`, wanted[id], id); err != nil {
			return nil, unavailable(fmt.Sprintf("decrement stock of product %d", id), err)
		}
	}

	var saleID int
	err = tx.QueryRow(ctx, `
		INSERT INTO sales (sale_date, customer_name, payment_method, exchange_rate, trade_in, notes, total, total_profit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, in.Date.Format("2006-01-02"), in.CustomerName, in.PaymentMethod, in.ExchangeRate,
		in.TradeIn, in.Notes, totals.Total, totals.TotalProfit).Scan(&saleID)
	if err != nil {
		return nil, unavailable("insert sale", err)
	}

	for i, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items (sale_id, line_number, product_id, product_name, quantity,
			                        unit_cost, unit_price, serial_number, subtotal, profit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, saleID, i+1, l.ProductID, l.ProductName, l.Quantity,
			l.UnitCost, l.UnitPrice, l.SerialNumber, l.Subtotal, l.Profit); err != nil {
			return nil, unavailable(fmt.Sprintf("insert sale line %d", i+1), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable("commit sale", err)
	}
	return s.Get(ctx, saleID)
}

func (s *saleService) Update(ctx context.Context, id int, u SaleHeaderUpdate) (*Sale, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	var date *string
	if u.Date != nil {
		d := u.Date.Format("2006-01-02")
		date = &d
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE sales
		SET sale_date      = COALESCE($1::date, sale_date),
		    customer_name  = COALESCE($2, customer_name),
		    payment_method = COALESCE($3, payment_method),
		    trade_in       = COALESCE($4, trade_in),
		    notes          = COALESCE($5, notes),
		    updated_at     = NOW()
		WHERE id = $6
	`, date, u.CustomerName, u.PaymentMethod, u.TradeIn, u.Notes, id)
	if err != nil {
		return nil, unavailable("update sale", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("sale", id)
	}
	return s.Get(ctx, id)
}

func (s *saleService) Delete(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	if err := tx.QueryRow(ctx, "SELECT id FROM sales WHERE id = $1 FOR UPDATE", id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("sale", id)
		}
		return unavailable("lock sale", err)
	}

	// Return sold units to products that still exist.
	if _, err := tx.Exec(ctx, `
		UPDATE products p
		SET stock_actual = p.stock_actual + r.qty, updated_at = NOW()
		FROM (
		    SELECT product_id, SUM(quantity) AS qty
		    FROM sale_items
		    WHERE sale_id = $1 AND product_id IS NOT NULL
		    GROUP BY product_id
		) r
		WHERE p.id = r.product_id
	`, id); err != nil {
		return unavailable("restore stock", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM sales WHERE id = $1", id); err != nil {
		return unavailable("delete sale", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit sale deletion", err)
	}
	return nil
}

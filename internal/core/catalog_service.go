package core

import (
	"context"
	"errors"
	"fmt"

	"inventory-console/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService manages categories and catalog items.
// Stock is only changed here by explicit edits; sales and purchases adjust
// it inside their own transactions.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name, description string) (*Category, error)
	// DeleteCategory removes a category; its products become uncategorized.
	DeleteCategory(ctx context.Context, id int) error

	ListProducts(ctx context.Context, filter CatalogFilter) ([]CatalogItem, error)
	GetProduct(ctx context.Context, id int) (*CatalogItem, error)
	// GetProductsByIDs returns the requested products keyed by id. Unknown
	// ids are simply absent from the map.
	GetProductsByIDs(ctx context.Context, ids []int) (map[int]CatalogItem, error)
	CreateProduct(ctx context.Context, in ProductInput) (*CatalogItem, error)
	UpdateProduct(ctx context.Context, id int, in ProductInput) (*CatalogItem, error)
	DeleteProduct(ctx context.Context, id int) error
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

const productColumns = `
	p.id, p.name, p.description, p.cost_price, p.sale_price,
	p.stock_actual, p.stock_minimo, p.category_id, COALESCE(c.name, ''),
	p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row) (CatalogItem, error) {
	var it CatalogItem
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.CostPrice, &it.SalePrice,
		&it.StockActual, &it.StockMinimo, &it.CategoryID, &it.CategoryName,
		&it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// sanitized clamps malformed stored values and logs what it changed.
func sanitized(ctx context.Context, it CatalogItem) CatalogItem {
	clean, warnings := SanitizeCatalogItem(it)
	for _, w := range warnings {
		logger.FromContext(ctx).Warn("malformed catalog value", "product_id", it.ID, "detail", w)
	}
	return clean
}

// ── Categories ────────────────────────────────────────────────────────────────

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, created_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, unavailable("query categories", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, unavailable("scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate categories", err)
	}
	return categories, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	if name == "" {
		return nil, invalid("name", "is required")
	}
	var c Category
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, created_at
	`, name, description).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, invalid("name", "category %q already exists", name)
		}
		return nil, unavailable("create category", err)
	}
	return &c, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return unavailable("delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("category", id)
	}
	return nil
}

// ── Products ─────────────────────────────────────────────────────────────────

func (s *catalogService) ListProducts(ctx context.Context, filter CatalogFilter) ([]CatalogItem, error) {
	q := "SELECT" + productColumns + productFrom + " WHERE true"
	var args []any
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		q += fmt.Sprintf(" AND p.category_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		q += fmt.Sprintf(" AND (p.name ILIKE '%%' || $%d || '%%' OR p.description ILIKE '%%' || $%d || '%%')", len(args), len(args))
	}
	q += " ORDER BY p.name, p.id"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, unavailable("query products", err)
	}
	defer rows.Close()

	items := []CatalogItem{}
	for rows.Next() {
		it, err := scanProduct(rows)
		if err != nil {
			return nil, unavailable("scan product", err)
		}
		items = append(items, sanitized(ctx, it))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate products", err)
	}
	return items, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*CatalogItem, error) {
	return getProduct(ctx, s.pool, id, false)
}

// getProduct loads one product, optionally locking its row for update.
func getProduct(ctx context.Context, q pgxQuerier, id int, forUpdate bool) (*CatalogItem, error) {
	sql := "SELECT" + productColumns + productFrom + " WHERE p.id = $1"
	if forUpdate {
		sql += " FOR UPDATE OF p"
	}
	it, err := scanProduct(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("product", id)
		}
		return nil, unavailable("fetch product", err)
	}
	it = sanitized(ctx, it)
	return &it, nil
}

func (s *catalogService) GetProductsByIDs(ctx context.Context, ids []int) (map[int]CatalogItem, error) {
	out := make(map[int]CatalogItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, "SELECT"+productColumns+productFrom+" WHERE p.id = ANY($1)", ids)
	if err != nil {
		return nil, unavailable("query products by id", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanProduct(rows)
		if err != nil {
			return nil, unavailable("scan product", err)
		}
		out[it.ID] = sanitized(ctx, it)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate products", err)
	}
	return out, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*CatalogItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, cost_price, sale_price, stock_actual, stock_minimo, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, in.Name, in.Description, in.CostPrice, in.SalePrice, in.StockActual, in.StockMinimo, in.CategoryID).Scan(&id)
	if err != nil {
		return nil, productWriteError("create product", err)
	}
	return s.GetProduct(ctx, id)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int, in ProductInput) (*CatalogItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, description = $2, cost_price = $3, sale_price = $4,
		    stock_actual = $5, stock_minimo = $6, category_id = $7, updated_at = NOW()
		WHERE id = $8
	`, in.Name, in.Description, in.CostPrice, in.SalePrice, in.StockActual, in.StockMinimo, in.CategoryID, id)
	if err != nil {
		return nil, productWriteError("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("product", id)
	}
	return s.GetProduct(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return unavailable("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("product", id)
	}
	return nil
}

// productWriteError turns a foreign-key violation on category_id into a
// validation error.
func productWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return invalid("category_id", "category does not exist")
	}
	return unavailable(op, err)
}

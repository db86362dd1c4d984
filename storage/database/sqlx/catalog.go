package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
)

type categoryRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Kind      string    `db:"kind"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

var categoryColumns = []string{"id", "name", "kind", "created_at", "updated_at"}

type productRow struct {
	ID          string          `db:"id"`
	SKU         string          `db:"sku"`
	Name        string          `db:"name"`
	CategoryID  string          `db:"category_id"`
	Karat       int             `db:"karat"`
	WeightGrams decimal.Decimal `db:"weight_grams"`
	WagePct     decimal.Decimal `db:"wage_pct"`
	StoneValue  decimal.Decimal `db:"stone_value"`
	Quantity    int             `db:"quantity"`
	IsActive    bool            `db:"is_active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   null.Time       `db:"updated_at"`
}

var productColumns = []string{
	"id", "sku", "name", "category_id", "karat", "weight_grams", "wage_pct",
	"stone_value", "quantity", "is_active", "created_at", "updated_at",
}

type stockEntryRow struct {
	ID        string      `db:"id"`
	ProductID string      `db:"product_id"`
	Delta     int         `db:"delta"`
	Reason    string      `db:"reason"`
	Note      string      `db:"note"`
	ByUserID  null.String `db:"by_user_id"`
	At        time.Time   `db:"at"`
}

var stockEntryColumns = []string{"id", "product_id", "delta", "reason", "note", "by_user_id", "at"}

type catalogRepository struct {
	db core.DBExecutor
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db core.DBExecutor) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo catalogRepository) unpackCategory(r categoryRow) catalog.Category {
	return catalog.Category{
		ID:        r.ID,
		Name:      r.Name,
		Kind:      r.Kind,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (repo catalogRepository) packProduct(prod catalog.Product) productRow {
	return productRow{
		ID:          prod.ID,
		SKU:         prod.SKU,
		Name:        prod.Name,
		CategoryID:  prod.CategoryID,
		Karat:       prod.Karat,
		WeightGrams: prod.WeightGrams,
		WagePct:     prod.WagePct,
		StoneValue:  prod.StoneValue,
		Quantity:    prod.Quantity,
		IsActive:    prod.IsActive == nil || *prod.IsActive,
		CreatedAt:   prod.CreatedAt.UTC(),
		UpdatedAt:   null.NewTime(prod.UpdatedAt.UTC(), !prod.UpdatedAt.IsZero()),
	}
}

func (repo catalogRepository) unpackProduct(r productRow) catalog.Product {
	isActive := r.IsActive
	return catalog.Product{
		ID:          r.ID,
		SKU:         r.SKU,
		Name:        r.Name,
		CategoryID:  r.CategoryID,
		Karat:       r.Karat,
		WeightGrams: r.WeightGrams,
		WagePct:     r.WagePct,
		StoneValue:  r.StoneValue,
		Quantity:    r.Quantity,
		IsActive:    &isActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func (repo catalogRepository) unpackProducts(rows []productRow) []catalog.Product {
	prods := make([]catalog.Product, 0, len(rows))
	for _, r := range rows {
		prods = append(prods, repo.unpackProduct(r))
	}
	return prods
}

func (repo catalogRepository) CheckCategoryNameUniqueness(ctx context.Context, name string, exec ...core.DBExecutor) error {
	table, err := tenantTable(ctx, "category")
	if err != nil {
		return err
	}

	query, args, err := psql.Select("COUNT(*)").From(table).
		Where(sq.Expr("LOWER(name) = LOWER(?)", name)).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var count int
	if err = executor(repo.db, exec).GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking category uniqueness")
	}
	if count > 0 {
		return catalog.ErrCategoryExists
	}
	return nil
}

func (repo catalogRepository) CreateCategory(ctx context.Context, cat catalog.Category, exec ...core.DBExecutor) (catalog.Category, error) {
	table, err := tenantTable(ctx, "category")
	if err != nil {
		return catalog.Category{}, err
	}

	cat.ID = uuid.New().String()
	query, args, err := psql.Insert(table).
		Columns(categoryColumns...).
		Values(cat.ID, cat.Name, cat.Kind, cat.CreatedAt.UTC(), null.NewTime(cat.UpdatedAt.UTC(), !cat.UpdatedAt.IsZero())).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return catalog.Category{}, errors.Wrap(err, "building query")
	}

	var saved categoryRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "") {
			return catalog.Category{}, catalog.ErrCategoryExists
		}
		return catalog.Category{}, errors.Wrap(err, "inserting category")
	}
	return repo.unpackCategory(saved), nil
}

func (repo catalogRepository) QueryCategories(ctx context.Context, exec ...core.DBExecutor) ([]catalog.Category, error) {
	table, err := tenantTable(ctx, "category")
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select(categoryColumns...).From(table).OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []categoryRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}

	cats := make([]catalog.Category, 0, len(rows))
	for _, r := range rows {
		cats = append(cats, repo.unpackCategory(r))
	}
	return cats, nil
}

func (repo catalogRepository) GetCategory(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Category, error) {
	table, err := tenantTable(ctx, "category")
	if err != nil {
		return catalog.Category{}, err
	}
	if _, err = uuid.Parse(id); err != nil {
		return catalog.Category{}, catalog.ErrCategoryNotFound
	}

	query, args, err := psql.Select(categoryColumns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return catalog.Category{}, errors.Wrap(err, "building query")
	}
	var r categoryRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return catalog.Category{}, trapNoRowsErr(err, catalog.ErrCategoryNotFound, "finding category")
	}
	return repo.unpackCategory(r), nil
}

func (repo catalogRepository) UpdateCategory(ctx context.Context, cat catalog.Category, exec ...core.DBExecutor) (catalog.Category, error) {
	table, err := tenantTable(ctx, "category")
	if err != nil {
		return catalog.Category{}, err
	}

	// only save set fields
	q := psql.Update(table).
		Set("updated_at", null.NewTime(cat.UpdatedAt.UTC(), !cat.UpdatedAt.IsZero()))
	if cat.Name != "" {
		q = q.Set("name", cat.Name)
	}
	if cat.Kind != "" {
		q = q.Set("kind", cat.Kind)
	}

	query, args, err := q.Where(sq.Eq{"id": cat.ID}).Suffix("RETURNING *").ToSql()
	if err != nil {
		return catalog.Category{}, errors.Wrap(err, "building query")
	}

	var saved categoryRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "") {
			return catalog.Category{}, catalog.ErrCategoryExists
		}
		return catalog.Category{}, trapNoRowsErr(err, catalog.ErrCategoryNotFound, "updating category")
	}
	return repo.unpackCategory(saved), nil
}

func (repo catalogRepository) DeleteCategory(ctx context.Context, id string, exec ...core.DBExecutor) error {
	table, err := tenantTable(ctx, "category")
	if err != nil {
		return err
	}

	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		if isPqError(err, pqForeignKeyViolation, "") {
			return catalog.ErrCategoryInUse
		}
		return errors.Wrap(err, "deleting category")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting category")
	}
	if cnt == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

func (repo catalogRepository) CheckSKUUniqueness(ctx context.Context, sku string, excludedProducts []catalog.Product, exec ...core.DBExecutor) error {
	table, err := tenantTable(ctx, "product")
	if err != nil {
		return err
	}

	q := psql.Select("COUNT(*)").From(table).Where(sq.Expr("LOWER(sku) = LOWER(?)", sku))
	if len(excludedProducts) > 0 {
		ids := make([]string, 0, len(excludedProducts))
		for _, p := range excludedProducts {
			ids = append(ids, p.ID)
		}
		q = q.Where(sq.NotEq{"id": ids})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var count int
	if err = executor(repo.db, exec).GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking SKU uniqueness")
	}
	if count > 0 {
		return catalog.ErrSKUExists
	}
	return nil
}

func (repo catalogRepository) CreateProduct(ctx context.Context, prod catalog.Product, exec ...core.DBExecutor) (catalog.Product, error) {
	table, err := tenantTable(ctx, "product")
	if err != nil {
		return catalog.Product{}, err
	}

	prod.ID = uuid.New().String()
	r := repo.packProduct(prod)

	query, args, err := psql.Insert(table).
		Columns(productColumns...).
		Values(r.ID, r.SKU, r.Name, r.CategoryID, r.Karat, r.WeightGrams, r.WagePct, r.StoneValue, r.Quantity, r.IsActive, r.CreatedAt, r.UpdatedAt).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return catalog.Product{}, errors.Wrap(err, "building query")
	}

	var saved productRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "") {
			return catalog.Product{}, catalog.ErrSKUExists
		}
		if isPqError(err, pqForeignKeyViolation, "") {
			return catalog.Product{}, catalog.ErrCategoryNotFound
		}
		return catalog.Product{}, errors.Wrap(err, "inserting product")
	}
	return repo.unpackProduct(saved), nil
}

func (repo catalogRepository) QueryProducts(ctx context.Context, filter *catalog.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]catalog.Product, error) {
	table, err := tenantTable(ctx, "product")
	if err != nil {
		return nil, err
	}

	q := psql.Select(productColumns...).From(table)
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{sq.ILike{"sku": val}, sq.ILike{"name": val}})
		}
		if filter.CategoryID != "" {
			q = q.Where(sq.Eq{"category_id": filter.CategoryID})
		}
		if filter.Karat != 0 {
			q = q.Where(sq.Eq{"karat": filter.Karat})
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.WeightFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"weight_grams": filter.WeightFrom})
		}
		if !filter.WeightTo.IsZero() {
			q = q.Where(sq.LtOrEq{"weight_grams": filter.WeightTo})
		}
	}

	q = applyOrdering(q, ordering, map[string]struct{}{
		"sku": {}, "name": {}, "karat": {}, "weight_grams": {}, "quantity": {}, "created_at": {},
	}, "created_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []productRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying products")
	}
	return repo.unpackProducts(rows), nil
}

func (repo catalogRepository) GetProduct(ctx context.Context, filter catalog.GetFilter, exec ...core.DBExecutor) (catalog.Product, error) {
	table, err := tenantTable(ctx, "product")
	if err != nil {
		return catalog.Product{}, err
	}

	q := psql.Select(productColumns...).From(table)
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return catalog.Product{}, catalog.ErrNotFound
		}
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.SKU != "":
		q = q.Where(sq.Expr("LOWER(sku) = LOWER(?)", filter.SKU))
	default:
		return catalog.Product{}, catalog.ErrNotFound
	}

	query, args, err := q.ToSql()
	if err != nil {
		return catalog.Product{}, errors.Wrap(err, "building query")
	}
	var r productRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return catalog.Product{}, trapNoRowsErr(err, catalog.ErrNotFound, "finding product")
	}
	return repo.unpackProduct(r), nil
}

func (repo catalogRepository) UpdateProduct(ctx context.Context, prod catalog.Product, exec ...core.DBExecutor) (catalog.Product, error) {
	table, err := tenantTable(ctx, "product")
	if err != nil {
		return catalog.Product{}, err
	}

	// only save set fields; quantity moves through AdjustStock alone
	q := psql.Update(table).
		Set("updated_at", null.NewTime(prod.UpdatedAt.UTC(), !prod.UpdatedAt.IsZero()))
	if prod.SKU != "" {
		q = q.Set("sku", prod.SKU)
	}
	if prod.Name != "" {
		q = q.Set("name", prod.Name)
	}
	if prod.CategoryID != "" {
		q = q.Set("category_id", prod.CategoryID)
	}
	if prod.Karat != 0 {
		q = q.Set("karat", prod.Karat)
	}
	if !prod.WeightGrams.IsZero() {
		q = q.Set("weight_grams", prod.WeightGrams)
	}
	if !prod.WagePct.IsZero() {
		q = q.Set("wage_pct", prod.WagePct)
	}
	if !prod.StoneValue.IsZero() {
		q = q.Set("stone_value", prod.StoneValue)
	}
	if prod.IsActive != nil {
		q = q.Set("is_active", *prod.IsActive)
	}

	query, args, err := q.Where(sq.Eq{"id": prod.ID}).Suffix("RETURNING *").ToSql()
	if err != nil {
		return catalog.Product{}, errors.Wrap(err, "building query")
	}

	var saved productRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "") {
			return catalog.Product{}, catalog.ErrSKUExists
		}
		if isPqError(err, pqForeignKeyViolation, "") {
			return catalog.Product{}, catalog.ErrCategoryNotFound
		}
		return catalog.Product{}, trapNoRowsErr(err, catalog.ErrNotFound, "updating product")
	}
	return repo.unpackProduct(saved), nil
}

func (repo catalogRepository) DeleteProductsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	table, err := tenantTable(ctx, "product")
	if err != nil {
		return 0, err
	}

	query, args, err := psql.Delete(table).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting products")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting products")
	}
	return int(cnt), nil
}

// AdjustStock applies the delta and records the movement as one writable
// CTE, so it is atomic on any executor and needs no explicit transaction.
// The quantity check constraint turns an oversell into ErrInsufficientStock.
func (repo catalogRepository) AdjustStock(ctx context.Context, e catalog.StockEntry, exec ...core.DBExecutor) (catalog.Product, error) {
	productTable, err := tenantTable(ctx, "product")
	if err != nil {
		return catalog.Product{}, err
	}
	entryTable, err := tenantTable(ctx, "stock_entry")
	if err != nil {
		return catalog.Product{}, err
	}
	if _, err = uuid.Parse(e.ProductID); err != nil {
		return catalog.Product{}, catalog.ErrNotFound
	}

	query := fmt.Sprintf(`
		WITH adjusted AS (
			UPDATE %s SET quantity = quantity + $1, updated_at = $2
			WHERE id = $3
			RETURNING *
		), logged AS (
			INSERT INTO %s (id, product_id, delta, reason, note, by_user_id, at)
			SELECT $4, id, $1, $5, $6, $7, $2 FROM adjusted
		)
		SELECT %s FROM adjusted`,
		productTable, entryTable, strings.Join(productColumns, ", "))

	var saved productRow
	err = executor(repo.db, exec).GetContext(ctx, &saved, query,
		e.Delta, e.At.UTC(), e.ProductID,
		uuid.New().String(), e.Reason, e.Note, null.NewString(e.ByUserID, e.ByUserID != ""))
	if err != nil {
		if isPqError(err, pqCheckViolation, "") {
			return catalog.Product{}, catalog.ErrInsufficientStock
		}
		return catalog.Product{}, trapNoRowsErr(err, catalog.ErrNotFound, "adjusting stock")
	}
	return repo.unpackProduct(saved), nil
}

func (repo catalogRepository) QueryStockEntries(ctx context.Context, productID string, exec ...core.DBExecutor) ([]catalog.StockEntry, error) {
	table, err := tenantTable(ctx, "stock_entry")
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select(stockEntryColumns...).From(table).
		Where(sq.Eq{"product_id": productID}).
		OrderBy("at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []stockEntryRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying stock entries")
	}

	entries := make([]catalog.StockEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, catalog.StockEntry{
			ID:        r.ID,
			ProductID: r.ProductID,
			Delta:     r.Delta,
			Reason:    r.Reason,
			Note:      r.Note,
			ByUserID:  r.ByUserID.String,
			At:        r.At,
		})
	}
	return entries, nil
}

package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
)

// catalogRepository holds categories, products and the stock ledger behind
// one lock ordering: category, then product, then stock.
type catalogRepository struct {
	categories *categoryTable
	products   *productTable
	stock      *stockTable
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{categories: db.category, products: db.product, stock: db.stock}
}

func (repo *catalogRepository) queryCategories(schema string) []catalog.Category {
	rows := repo.categories.table[schema]
	cats := make([]catalog.Category, 0, len(rows))
	for _, c := range rows {
		cats = append(cats, *c)
	}
	return cats
}

func (repo *catalogRepository) queryProducts(schema string) []catalog.Product {
	rows := repo.products.table[schema]
	prods := make([]catalog.Product, 0, len(rows))
	for _, p := range rows {
		prods = append(prods, *p)
	}
	return prods
}

func (repo *catalogRepository) CheckCategoryNameUniqueness(ctx context.Context, name string, _ ...core.DBExecutor) error {
	schema, err := schemaOf(ctx)
	if err != nil {
		return err
	}
	repo.categories.RLock()
	defer repo.categories.RUnlock()

	for _, cat := range repo.queryCategories(schema) {
		if strings.EqualFold(cat.Name, name) {
			return catalog.ErrCategoryExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateCategory(ctx context.Context, cat catalog.Category, _ ...core.DBExecutor) (catalog.Category, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return catalog.Category{}, err
	}
	repo.categories.Lock()
	defer repo.categories.Unlock()

	for _, existing := range repo.queryCategories(schema) {
		if strings.EqualFold(existing.Name, cat.Name) {
			return catalog.Category{}, catalog.ErrCategoryExists
		}
	}
	cat.ID = uuid.New().String()
	rows, ok := repo.categories.table[schema]
	if !ok {
		rows = make(map[string]*catalog.Category)
		repo.categories.table[schema] = rows
	}
	rows[cat.ID] = &cat
	return cat, nil
}

func (repo *catalogRepository) QueryCategories(ctx context.Context, _ ...core.DBExecutor) ([]catalog.Category, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.categories.RLock()
	defer repo.categories.RUnlock()

	cats := repo.queryCategories(schema)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (repo *catalogRepository) GetCategory(ctx context.Context, id string, _ ...core.DBExecutor) (catalog.Category, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return catalog.Category{}, err
	}
	repo.categories.RLock()
	defer repo.categories.RUnlock()

	if cat, ok := repo.categories.table[schema][id]; ok {
		return *cat, nil
	}
	return catalog.Category{}, catalog.ErrCategoryNotFound
}

func (repo *catalogRepository) UpdateCategory(ctx context.Context, cat catalog.Category, _ ...core.DBExecutor) (catalog.Category, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return catalog.Category{}, err
	}
	repo.categories.Lock()
	defer repo.categories.Unlock()

	orig, ok := repo.categories.table[schema][cat.ID]
	if !ok {
		return catalog.Category{}, catalog.ErrCategoryNotFound
	}
	for _, existing := range repo.queryCategories(schema) {
		if existing.ID != cat.ID && cat.Name != "" && strings.EqualFold(existing.Name, cat.Name) {
			return catalog.Category{}, catalog.ErrCategoryExists
		}
	}

	// only save set fields
	if cat.Name != "" {
		orig.Name = cat.Name
	}
	if cat.Kind != "" {
		orig.Kind = cat.Kind
	}
	orig.UpdatedAt = cat.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteCategory(ctx context.Context, id string, _ ...core.DBExecutor) error {
	schema, err := schemaOf(ctx)
	if err != nil {
		return err
	}
	repo.categories.Lock()
	defer repo.categories.Unlock()
	repo.products.RLock()
	defer repo.products.RUnlock()

	if _, ok := repo.categories.table[schema][id]; !ok {
		return catalog.ErrCategoryNotFound
	}
	for _, prod := range repo.queryProducts(schema) {
		if prod.CategoryID == id {
			return catalog.ErrCategoryInUse
		}
	}
	delete(repo.categories.table[schema], id)
	return nil
}

func (repo *catalogRepository) CheckSKUUniqueness(ctx context.Context, sku string, excludedProducts []catalog.Product, _ ...core.DBExecutor) error {
	schema, err := schemaOf(ctx)
	if err != nil {
		return err
	}
	repo.products.RLock()
	defer repo.products.RUnlock()

	excluded := make(map[string]struct{}, len(excludedProducts))
	for _, prod := range excludedProducts {
		excluded[prod.ID] = struct{}{}
	}
	for _, prod := range repo.queryProducts(schema) {
		if _, ok := excluded[prod.ID]; ok {
			continue
		}
		if strings.EqualFold(prod.SKU, sku) {
			return catalog.ErrSKUExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateProduct(ctx context.Context, prod catalog.Product, _ ...core.DBExecutor) (catalog.Product, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	repo.categories.RLock()
	_, catOK := repo.categories.table[schema][prod.CategoryID]
	repo.categories.RUnlock()
	if !catOK {
		return catalog.Product{}, catalog.ErrCategoryNotFound
	}

	repo.products.Lock()
	defer repo.products.Unlock()

	for _, existing := range repo.queryProducts(schema) {
		if strings.EqualFold(existing.SKU, prod.SKU) {
			return catalog.Product{}, catalog.ErrSKUExists
		}
	}
	prod.ID = uuid.New().String()
	if prod.IsActive == nil {
		active := true
		prod.IsActive = &active
	}
	rows, ok := repo.products.table[schema]
	if !ok {
		rows = make(map[string]*catalog.Product)
		repo.products.table[schema] = rows
	}
	rows[prod.ID] = &prod
	return prod, nil
}

func (repo *catalogRepository) QueryProducts(ctx context.Context, filter *catalog.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]catalog.Product, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.products.RLock()
	defer repo.products.RUnlock()

	prods := repo.queryProducts(schema)
	if filter != nil && !filter.IsEmpty() {
		filtered := prods[:0]
		for _, p := range prods {
			if matchProduct(p, filter) {
				filtered = append(filtered, p)
			}
		}
		prods = filtered
	}
	sortProducts(prods, ordering)
	return prods, nil
}

func matchProduct(p catalog.Product, filter *catalog.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(p.SKU), s) &&
			!strings.Contains(strings.ToLower(p.Name), s) {
			return false
		}
	}
	if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
		return false
	}
	if filter.Karat != 0 && p.Karat != filter.Karat {
		return false
	}
	if filter.IsActive != nil {
		active := p.IsActive == nil || *p.IsActive
		if active != *filter.IsActive {
			return false
		}
	}
	if !filter.WeightFrom.IsZero() && p.WeightGrams.LessThan(filter.WeightFrom) {
		return false
	}
	if !filter.WeightTo.IsZero() && p.WeightGrams.GreaterThan(filter.WeightTo) {
		return false
	}
	return true
}

func sortProducts(prods []catalog.Product, ordering []core.DBOrdering) {
	ord := firstOrdering(ordering, core.DBOrdering{Field: "created_at"})
	sort.SliceStable(prods, func(i, j int) bool {
		a, b := prods[i], prods[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "sku":
			if a.SKU != b.SKU {
				return a.SKU < b.SKU
			}
		case "name":
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case "karat":
			if a.Karat != b.Karat {
				return a.Karat < b.Karat
			}
		case "weight_grams":
			if !a.WeightGrams.Equal(b.WeightGrams) {
				return a.WeightGrams.LessThan(b.WeightGrams)
			}
		case "quantity":
			if a.Quantity != b.Quantity {
				return a.Quantity < b.Quantity
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

func (repo *catalogRepository) GetProduct(ctx context.Context, filter catalog.GetFilter, _ ...core.DBExecutor) (catalog.Product, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	repo.products.RLock()
	defer repo.products.RUnlock()

	switch {
	case filter.ID != "":
		if prod, ok := repo.products.table[schema][filter.ID]; ok {
			return *prod, nil
		}
	case filter.SKU != "":
		for _, prod := range repo.queryProducts(schema) {
			if strings.EqualFold(prod.SKU, filter.SKU) {
				return prod, nil
			}
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (repo *catalogRepository) UpdateProduct(ctx context.Context, prod catalog.Product, _ ...core.DBExecutor) (catalog.Product, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	if prod.CategoryID != "" {
		repo.categories.RLock()
		_, catOK := repo.categories.table[schema][prod.CategoryID]
		repo.categories.RUnlock()
		if !catOK {
			return catalog.Product{}, catalog.ErrCategoryNotFound
		}
	}

	repo.products.Lock()
	defer repo.products.Unlock()

	orig, ok := repo.products.table[schema][prod.ID]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	for _, existing := range repo.queryProducts(schema) {
		if existing.ID != prod.ID && prod.SKU != "" && strings.EqualFold(existing.SKU, prod.SKU) {
			return catalog.Product{}, catalog.ErrSKUExists
		}
	}

	// only save set fields; quantity moves through AdjustStock alone
	if prod.SKU != "" {
		orig.SKU = prod.SKU
	}
	if prod.Name != "" {
		orig.Name = prod.Name
	}
	if prod.CategoryID != "" {
		orig.CategoryID = prod.CategoryID
	}
	if prod.Karat != 0 {
		orig.Karat = prod.Karat
	}
	if !prod.WeightGrams.IsZero() {
		orig.WeightGrams = prod.WeightGrams
	}
	if !prod.WagePct.IsZero() {
		orig.WagePct = prod.WagePct
	}
	if !prod.StoneValue.IsZero() {
		orig.StoneValue = prod.StoneValue
	}
	if prod.IsActive != nil {
		orig.IsActive = prod.IsActive
	}
	orig.UpdatedAt = prod.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteProductsByID(ctx context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return 0, err
	}
	repo.products.Lock()
	defer repo.products.Unlock()

	rows := repo.products.table[schema]
	var cnt int
	for _, id := range ids {
		if _, ok := rows[id]; ok {
			delete(rows, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *catalogRepository) AdjustStock(ctx context.Context, e catalog.StockEntry, _ ...core.DBExecutor) (catalog.Product, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	repo.products.Lock()
	defer repo.products.Unlock()
	repo.stock.Lock()
	defer repo.stock.Unlock()

	prod, ok := repo.products.table[schema][e.ProductID]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if prod.Quantity+e.Delta < 0 {
		return catalog.Product{}, catalog.ErrInsufficientStock
	}
	prod.Quantity += e.Delta
	prod.UpdatedAt = e.At

	e.ID = uuid.New().String()
	rows, ok := repo.stock.table[schema]
	if !ok {
		rows = make(map[string]*catalog.StockEntry)
		repo.stock.table[schema] = rows
	}
	rows[e.ID] = &e
	return *prod, nil
}

func (repo *catalogRepository) QueryStockEntries(ctx context.Context, productID string, _ ...core.DBExecutor) ([]catalog.StockEntry, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.stock.RLock()
	defer repo.stock.RUnlock()

	var entries []catalog.StockEntry
	for _, e := range repo.stock.table[schema] {
		if e.ProductID == productID {
			entries = append(entries, *e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].At.Equal(entries[j].At) {
			return entries[i].At.After(entries[j].At)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

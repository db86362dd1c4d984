package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrSKUExists         = errors.New("a product with this SKU already exists")
	ErrCategoryExists    = errors.New("a category with this name already exists")
	ErrCategoryInUse     = errors.New("category still has products")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type (
	// Repository persists the catalog. Zero-valued fields on UpdateProduct /
	// UpdateCategory are left unchanged.
	Repository interface {
		CheckCategoryNameUniqueness(ctx context.Context, name string, exec ...core.DBExecutor) error
		CreateCategory(ctx context.Context, cat Category, exec ...core.DBExecutor) (Category, error)
		QueryCategories(ctx context.Context, exec ...core.DBExecutor) ([]Category, error)
		GetCategory(ctx context.Context, id string, exec ...core.DBExecutor) (Category, error)
		UpdateCategory(ctx context.Context, cat Category, exec ...core.DBExecutor) (Category, error)
		// DeleteCategory returns ErrCategoryInUse while products reference it.
		DeleteCategory(ctx context.Context, id string, exec ...core.DBExecutor) error

		CheckSKUUniqueness(ctx context.Context, sku string, excludedProducts []Product, exec ...core.DBExecutor) error
		CreateProduct(ctx context.Context, prod Product, exec ...core.DBExecutor) (Product, error)
		QueryProducts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Product, error)
		GetProduct(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Product, error)
		UpdateProduct(ctx context.Context, prod Product, exec ...core.DBExecutor) (Product, error)
		DeleteProductsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		// AdjustStock applies the entry's delta to the product quantity and
		// records the entry in one transaction. A delta that would take the
		// quantity below zero returns ErrInsufficientStock.
		AdjustStock(ctx context.Context, e StockEntry, exec ...core.DBExecutor) (Product, error)
		QueryStockEntries(ctx context.Context, productID string, exec ...core.DBExecutor) ([]StockEntry, error)
	}

	Service interface {
		CheckCategoryNameUniqueness(ctx context.Context, name string) error
		CreateCategory(ctx context.Context, nc NewCategory) (Category, error)
		QueryCategories(ctx context.Context) ([]Category, error)
		GetCategory(ctx context.Context, id string) (Category, error)
		UpdateCategory(ctx context.Context, id string, uc UpdateCategory) (Category, error)
		DeleteCategory(ctx context.Context, id string) error

		CheckSKUUniqueness(ctx context.Context, sku string, exclProds ...Product) error
		CreateProduct(ctx context.Context, np NewProduct) (Product, error)
		QueryProducts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Product, error)
		GetByID(ctx context.Context, id string) (Product, error)
		GetBySKU(ctx context.Context, sku string) (Product, error)
		UpdateProduct(ctx context.Context, id string, up UpdateProduct) (Product, error)
		DeleteProducts(ctx context.Context, ids ...string) error

		AdjustStock(ctx context.Context, productID string, sa StockAdjustment, byUserID string) (Product, error)
		StockHistory(ctx context.Context, productID string) ([]StockEntry, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckCategoryNameUniqueness(ctx context.Context, name string) error {
	if err := svc.repo.CheckCategoryNameUniqueness(ctx, name); err != nil {
		if err == ErrCategoryExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	now := time.Now().UTC()
	cat := Category{
		Name:      nc.Name,
		Kind:      nc.Kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cat.Kind == "" {
		cat.Kind = KindGold
	}
	return svc.repo.CreateCategory(ctx, cat)
}

func (svc *service) QueryCategories(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryCategories(ctx)
}

func (svc *service) GetCategory(ctx context.Context, id string) (Category, error) {
	return svc.repo.GetCategory(ctx, id)
}

func (svc *service) UpdateCategory(ctx context.Context, id string, uc UpdateCategory) (Category, error) {
	cat := Category{
		ID:        id,
		Name:      uc.Name,
		Kind:      uc.Kind,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateCategory(ctx, cat)
}

func (svc *service) DeleteCategory(ctx context.Context, id string) error {
	if err := svc.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Cause(err) == ErrCategoryInUse {
			return core.NewValidationError(err)
		}
		return err
	}
	return nil
}

func (svc *service) CheckSKUUniqueness(ctx context.Context, sku string, exclProds ...Product) error {
	if sku == "" {
		return nil
	}
	if err := svc.repo.CheckSKUUniqueness(ctx, sku, exclProds); err != nil {
		if err == ErrSKUExists {
			return core.NewValidationError(err, core.FieldError{Field: "sku", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) CreateProduct(ctx context.Context, np NewProduct) (Product, error) {
	now := time.Now().UTC()
	active := true
	karat := np.Karat
	if karat == 0 {
		karat = 18
	}
	prod := Product{
		SKU:         np.SKU,
		Name:        np.Name,
		CategoryID:  np.CategoryID,
		Karat:       karat,
		WeightGrams: np.WeightGrams,
		WagePct:     np.WagePct,
		StoneValue:  np.StoneValue,
		IsActive:    &active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	prod, err := svc.repo.CreateProduct(ctx, prod)
	if err != nil {
		return Product{}, err
	}

	// an opening quantity enters through the ledger like any other move
	if np.Quantity > 0 {
		return svc.repo.AdjustStock(ctx, StockEntry{
			ProductID: prod.ID,
			Delta:     np.Quantity,
			Reason:    ReasonInitial,
			At:        now,
		})
	}
	return prod, nil
}

func (svc *service) QueryProducts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Product, error) {
	return svc.repo.QueryProducts(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Product, error) {
	return svc.repo.GetProduct(ctx, GetFilter{ID: id})
}

func (svc *service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return svc.repo.GetProduct(ctx, GetFilter{SKU: core.CleanString(sku, true /* lower */)})
}

func (svc *service) UpdateProduct(ctx context.Context, id string, up UpdateProduct) (Product, error) {
	prod := Product{
		ID:         id,
		SKU:        up.SKU,
		Name:       up.Name,
		CategoryID: up.CategoryID,
		Karat:      up.Karat,
		IsActive:   up.IsActive,
		UpdatedAt:  time.Now().UTC(),
	}
	if up.WeightGrams.Valid {
		prod.WeightGrams = up.WeightGrams.Decimal
	}
	if up.WagePct.Valid {
		prod.WagePct = up.WagePct.Decimal
	}
	if up.StoneValue.Valid {
		prod.StoneValue = up.StoneValue.Decimal
	}
	return svc.repo.UpdateProduct(ctx, prod)
}

func (svc *service) DeleteProducts(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteProductsByID(ctx, ids)
	return err
}

func (svc *service) AdjustStock(ctx context.Context, productID string, sa StockAdjustment, byUserID string) (Product, error) {
	prod, err := svc.repo.AdjustStock(ctx, StockEntry{
		ProductID: productID,
		Delta:     sa.Delta,
		Reason:    sa.Reason,
		Note:      sa.Note,
		ByUserID:  byUserID,
		At:        time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrInsufficientStock {
			return Product{}, core.NewValidationError(err, core.FieldError{Field: "delta", Error: err.Error()})
		}
		return Product{}, err
	}
	return prod, nil
}

func (svc *service) StockHistory(ctx context.Context, productID string) ([]StockEntry, error) {
	if _, err := svc.repo.GetProduct(ctx, GetFilter{ID: productID}); err != nil {
		return nil, err
	}
	return svc.repo.QueryStockEntries(ctx, productID)
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core/catalog"
)

type catalogApi struct {
	svc      catalog.Service
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc catalog.Service, validate *validator.Validate) {
	api := catalogApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/categories", auth...)
	cg.GET("", api.queryCategories)
	cg.GET("/:id", api.retrieveCategory)
	cg.POST("", api.createCategory, managerMiddleware())
	cg.PUT("/:id", api.updateCategory, managerMiddleware())
	cg.DELETE("/:id", api.destroyCategory, managerMiddleware())

	pg := g.Group("/products", auth...)
	pg.GET("", api.queryProducts)
	pg.GET("/:id", api.retrieveProduct)
	pg.POST("", api.createProduct, managerMiddleware())
	pg.PUT("/:id", api.updateProduct, managerMiddleware())
	pg.DELETE("/:id", api.destroyProduct, managerMiddleware())
	pg.DELETE("", api.destroyProducts, managerMiddleware())
	pg.POST("/:id/stock", api.adjustStock, managerMiddleware())
	pg.GET("/:id/stock", api.stockHistory, managerMiddleware())
}

// Category handlers

func (api *catalogApi) queryCategories(ctx echo.Context) error {
	cats, err := api.svc.QueryCategories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	if cats == nil {
		cats = []catalog.Category{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *catalogApi) retrieveCategory(ctx echo.Context) error {
	cat, err := api.svc.GetCategory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrCategoryNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding category by ID")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *catalogApi) createCategory(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var data catalog.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	cat, err := api.svc.CreateCategory(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *catalogApi) updateCategory(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	cat, err := api.svc.GetCategory(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrCategoryNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding category by ID")
	}

	var data catalog.UpdateCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCategory")
	}
	if err := data.Validate(reqCtx, cat, api.validate, api.svc); err != nil {
		return err
	}

	cat, err = api.svc.UpdateCategory(reqCtx, cat.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *catalogApi) destroyCategory(ctx echo.Context) error {
	if err := api.svc.DeleteCategory(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == catalog.ErrCategoryNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Product handlers

func (api *catalogApi) queryProducts(ctx echo.Context) error {
	filter := new(catalog.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Product{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	prods, err := api.svc.QueryProducts(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying products")
	}
	if prods == nil {
		prods = []catalog.Product{}
	}
	return ctx.JSON(http.StatusOK, prods)
}

func (api *catalogApi) retrieveProduct(ctx echo.Context) error {
	prod, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding product by ID")
	}
	return ctx.JSON(http.StatusOK, prod)
}

func (api *catalogApi) createProduct(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var data catalog.NewProduct
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProduct")
	}
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	prod, err := api.svc.CreateProduct(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating product")
	}
	return ctx.JSON(http.StatusCreated, prod)
}

func (api *catalogApi) updateProduct(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	prod, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding product by ID")
	}

	var data catalog.UpdateProduct
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProduct")
	}
	if err := data.Validate(reqCtx, prod, api.validate, api.svc); err != nil {
		return err
	}

	prod, err = api.svc.UpdateProduct(reqCtx, prod.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating product")
	}
	return ctx.JSON(http.StatusOK, prod)
}

func (api *catalogApi) destroyProduct(ctx echo.Context) error {
	if err := api.svc.DeleteProducts(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting product")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) destroyProducts(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteProducts(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting products")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Stock handlers

func (api *catalogApi) adjustStock(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var data catalog.StockAdjustment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StockAdjustment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	prod, err := api.svc.AdjustStock(reqCtx, ctx.Param("id"), data, claims.Subject)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adjusting stock")
	}
	return ctx.JSON(http.StatusOK, prod)
}

func (api *catalogApi) stockHistory(ctx echo.Context) error {
	entries, err := api.svc.StockHistory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying stock history")
	}
	if entries == nil {
		entries = []catalog.StockEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

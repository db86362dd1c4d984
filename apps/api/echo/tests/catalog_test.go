package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/user"
	"github.com/zargarco/zargar/tests"
)

func Test_catalogApi_categories(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	owner := testutil.CreateUser(t, demoCtx, usrRepo, "آرش", "arash", "arash@demo.test", "", []string{user.RoleShopOwner}, true)
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "نیما", "nima", "nima@demo.test", "", []string{user.RoleShopCashier}, true)

	ownerToken := getToken(t, owner, demo)
	cashierToken := getToken(t, cashier, demo)

	var bracelets catalog.Category
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "cashier cannot create", token: cashierToken,
			body:     marchallObj(t, catalog.NewCategory{Name: "دستبند"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: ownerToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "bad kind", token: ownerToken,
			body:     marchallObj(t, catalog.NewCategory{Name: "دستبند", Kind: "silver"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"kind": "kind must be one of [gold coin stone misc]"}),
		},
		{
			name: "created", token: ownerToken,
			body: marchallObj(t, catalog.NewCategory{Name: "دستبند"}), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate name", token: ownerToken,
			body:     marchallObj(t, catalog.NewCategory{Name: "دستبند"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "a category with this name already exists"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/categories"
		tt.shop = "demo"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &bracelets); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if bracelets.ID == "" {
					t.Error("failed! empty category ID")
				}
				if bracelets.Kind != catalog.KindGold { // the default kind
					t.Errorf("failed! kind = %q; want %q", bracelets.Kind, catalog.KindGold)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	coins := testutil.CreateCategory(t, demoCtx, catRepo, "سکه", catalog.KindCoin)

	t.Run("browsing needs no manager role", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/categories", "demo", cashierToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData []catalog.Category
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(respData) != 2 {
			t.Fatalf("failed! len = %v; want 2", len(respData))
		}
		if respData[0].Name != "دستبند" { // name ordered
			t.Errorf("failed! first = %q", respData[0].Name)
		}
	})

	t.Run("update kind", func(t *testing.T) {
		body := marchallObj(t, catalog.UpdateCategory{Kind: catalog.KindMisc})
		req, rec := newAuthRequest(http.MethodPut, "/v1/categories/"+bracelets.ID, "demo", ownerToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData catalog.Category
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if respData.Kind != catalog.KindMisc {
			t.Errorf("failed! kind = %q; want %q", respData.Kind, catalog.KindMisc)
		}
		if respData.Name != bracelets.Name {
			t.Errorf("failed! name changed to %q", respData.Name)
		}
	})

	t.Run("renaming over an existing name", func(t *testing.T) {
		body := marchallObj(t, catalog.UpdateCategory{Name: coins.Name})
		req, rec := newAuthRequest(http.MethodPut, "/v1/categories/"+bracelets.ID, "demo", ownerToken, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "a category with this name already exists"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve unknown", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/categories/00000000-0000-4000-8000-000000000000", "demo", ownerToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("a category holding products cannot be deleted", func(t *testing.T) {
		testutil.CreateProduct(t, demoCtx, catRepo, coins, "c-501", "سکه تمام بهار", 24, "8.133", "0", 2)

		req, rec := newAuthRequest(http.MethodDelete, "/v1/categories/"+coins.ID, "demo", ownerToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "category still has products"})}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/categories/"+coins.ID, "demo", ownerToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! category gone; code = %v", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		spare := testutil.CreateCategory(t, demoCtx, catRepo, "متفرقه", catalog.KindMisc)

		req, rec := newAuthRequest(http.MethodDelete, "/v1/categories/"+spare.ID, "demo", ownerToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/categories/"+spare.ID, "demo", ownerToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_catalogApi_products(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	owner := testutil.CreateUser(t, demoCtx, usrRepo, "آرش", "arash", "arash@demo.test", "", []string{user.RoleShopOwner}, true)
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "نیما", "nima", "nima@demo.test", "", []string{user.RoleShopCashier}, true)

	rings := testutil.CreateCategory(t, demoCtx, catRepo, "انگشتر", catalog.KindGold)
	coins := testutil.CreateCategory(t, demoCtx, catRepo, "سکه", catalog.KindCoin)

	ownerToken := getToken(t, owner, demo)
	cashierToken := getToken(t, cashier, demo)

	newProd := func(sku, name, catID string, karat int, weight, wage string, qty int) []byte {
		return marchallObj(t, catalog.NewProduct{
			SKU:         sku,
			Name:        name,
			CategoryID:  catID,
			Karat:       karat,
			WeightGrams: decimal.RequireFromString(weight),
			WagePct:     decimal.RequireFromString(wage),
			Quantity:    qty,
		})
	}

	var ring catalog.Product
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "cashier cannot create", token: cashierToken,
			body:     newProd("r-101", "انگشتر نگین‌دار", rings.ID, 0, "4.750", "14", 3),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: ownerToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"sku":         "this field is required",
				"name":        "this field is required",
				"category_id": "this field is required",
			}),
		},
		{
			name: "malformed category", token: ownerToken,
			body:     newProd("r-101", "انگشتر نگین‌دار", "lol", 0, "4.750", "14", 3),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"category_id": "category_id must be a valid version 4 UUID"}),
		},
		{
			name: "unknown category", token: ownerToken,
			body:     newProd("r-101", "انگشتر نگین‌دار", "3f6fb6f0-41cf-4cfe-8f0c-0f65b0cbd8b1", 0, "4.750", "14", 3),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"category_id": "category not found"}),
		},
		{
			name: "gold needs a weight", token: ownerToken,
			body:     newProd("r-101", "انگشتر نگین‌دار", rings.ID, 0, "0", "14", 3),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"weight_grams": "weight must be greater than zero for gold products"}),
		},
		{
			name: "negative weight", token: ownerToken,
			body:     newProd("c-500", "سکه", coins.ID, 24, "-1", "0", 1),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"weight_grams": "weight cannot be negative"}),
		},
		{
			name: "bad karat", token: ownerToken,
			body:     newProd("r-101", "انگشتر نگین‌دار", rings.ID, 19, "4.750", "14", 3),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"karat": "karat must be one of [18 21 22 24]"}),
		},
		{
			name: "created", token: ownerToken,
			body: newProd("R-101", "انگشتر نگین‌دار", rings.ID, 0, "4.750", "14", 3), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate SKU", token: ownerToken,
			body:     newProd("r-101", "انگشتر دوم", rings.ID, 18, "2", "10", 0),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"sku": "a product with this SKU already exists"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/products"
		tt.shop = "demo"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &ring); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if ring.ID == "" {
					t.Error("failed! empty product ID")
				}
				if ring.SKU != "r-101" { // lowercased on the way in
					t.Errorf("failed! sku = %q; want %q", ring.SKU, "r-101")
				}
				if ring.Karat != 18 { // the retail default
					t.Errorf("failed! karat = %v; want 18", ring.Karat)
				}
				if ring.Quantity != 3 {
					t.Errorf("failed! quantity = %v; want 3", ring.Quantity)
				}
				if ring.IsActive == nil || !*ring.IsActive {
					t.Error("failed! new product not active")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("opening quantity enters the ledger", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/products/"+ring.ID+"/stock", "demo", ownerToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData []catalog.StockEntry
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(respData) != 1 {
			t.Fatalf("failed! len = %v; want 1", len(respData))
		}
		if respData[0].Reason != catalog.ReasonInitial || respData[0].Delta != 3 {
			t.Errorf("failed! entry = (%q, %v)", respData[0].Reason, respData[0].Delta)
		}
	})

	t.Run("stock history is manager-only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/products/"+ring.ID+"/stock", "demo", cashierToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	coin := testutil.CreateProduct(t, demoCtx, catRepo, coins, "c-501", "سکه تمام بهار", 24, "8.133", "0", 5)
	band := testutil.CreateProduct(t, demoCtx, catRepo, rings, "r-102", "حلقه ساده", 18, "2.150", "7", 1)

	path := func(search, categoryID string, karat int, weightFrom, weightTo string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if categoryID != "" {
			v.Add("category_id", categoryID)
		}
		if karat != 0 {
			v.Add("karat", strconv.Itoa(karat))
		}
		if weightFrom != "" {
			v.Add("weight_from", weightFrom)
		}
		if weightTo != "" {
			v.Add("weight_to", weightTo)
		}
		return "/v1/products?" + v.Encode()
	}

	queries := []httpTest{
		{name: "Get all", path: "/v1/products", wantData: marchallList(t, ring, coin, band)},
		{name: "search by name", path: path("سکه", "", 0, "", ""), wantData: marchallList(t, coin)},
		{name: "search by SKU", path: path("r-10", "", 0, "", ""), wantData: marchallList(t, ring, band)},
		{name: "search unknown", path: path("گردنبند", "", 0, "", ""), wantData: marchallList(t)},
		{name: "category", path: path("", coins.ID, 0, "", ""), wantData: marchallList(t, coin)},
		{name: "karat", path: path("", "", 24, "", ""), wantData: marchallList(t, coin)},
		{name: "weight window", path: path("", "", 0, "3", "9"), wantData: marchallList(t, ring, coin)},
		{name: "cashier can browse", path: "/v1/products", token: cashierToken, wantData: marchallList(t, ring, coin, band)},
	}
	for _, tt := range queries {
		tt.method = http.MethodGet
		tt.shop = "demo"
		tt.wantCode = http.StatusOK
		if tt.token == "" {
			tt.token = ownerToken
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("deactivated products stay queryable", func(t *testing.T) {
		body := marchallObj(t, catalog.UpdateProduct{IsActive: new(bool)})
		req, rec := newAuthRequest(http.MethodPut, "/v1/products/"+band.ID, "demo", ownerToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/products?is_active=false", "demo", ownerToken)
		app.ServeHTTP(rec, req)
		var respData []catalog.Product
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(respData) != 1 || respData[0].ID != band.ID {
			t.Errorf("failed! data = %s", rec.Body.String())
		}
	})

	t.Run("update reprices the piece", func(t *testing.T) {
		body := marchallObj(t, catalog.UpdateProduct{
			WagePct:    decimal.NewNullDecimal(decimal.RequireFromString("18")),
			StoneValue: decimal.NewNullDecimal(decimal.RequireFromString("1500000")),
		})
		req, rec := newAuthRequest(http.MethodPut, "/v1/products/"+ring.ID, "demo", ownerToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData catalog.Product
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !respData.WagePct.Equal(decimal.RequireFromString("18")) {
			t.Errorf("failed! wage_pct = %v; want 18", respData.WagePct)
		}
		if !respData.WeightGrams.Equal(ring.WeightGrams) {
			t.Errorf("failed! weight changed to %v", respData.WeightGrams)
		}
		if respData.Quantity != ring.Quantity {
			t.Errorf("failed! quantity changed to %v", respData.Quantity)
		}
	})

	t.Run("update cannot reuse a taken SKU", func(t *testing.T) {
		body := marchallObj(t, catalog.UpdateProduct{SKU: "C-501"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/products/"+ring.ID, "demo", ownerToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"sku": "a product with this SKU already exists"}),
		}, rec)
	})

	t.Run("delete many", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/products?id="+coin.ID+"&id="+band.ID, "demo", ownerToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/products", "demo", ownerToken)
		app.ServeHTTP(rec, req)
		var respData []catalog.Product
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(respData) != 1 || respData[0].ID != ring.ID {
			t.Errorf("failed! data = %s", rec.Body.String())
		}
	})
}

func Test_catalogApi_stock(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	owner := testutil.CreateUser(t, demoCtx, usrRepo, "آرش", "arash", "arash@demo.test", "", []string{user.RoleShopOwner}, true)
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "نیما", "nima", "nima@demo.test", "", []string{user.RoleShopCashier}, true)

	necklaces := testutil.CreateCategory(t, demoCtx, catRepo, "گردنبند", catalog.KindGold)
	prod := testutil.CreateProduct(t, demoCtx, catRepo, necklaces, "n-301", "گردنبند فیوژن", 18, "12.480", "22", 5)

	ownerToken := getToken(t, owner, demo)

	adjust := func(delta int, reason, note string) []byte {
		return marchallObj(t, catalog.StockAdjustment{Delta: delta, Reason: reason, Note: note})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "cashier cannot adjust", token: getToken(t, cashier, demo), body: adjust(1, "", ""),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: ownerToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"delta": "this field is required"}),
		},
		{
			name: "bad reason", token: ownerToken, body: adjust(1, "theft", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"reason": "reason must be one of [initial purchase sale adjust]"}),
		},
		{
			name: "never below zero", token: ownerToken, body: adjust(-9, catalog.ReasonSale, ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"delta": "insufficient stock"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/products/" + prod.ID + "/stock"
		tt.shop = "demo"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	applyStock := func(t *testing.T, body []byte) catalog.Product {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/products/"+prod.ID+"/stock", "demo", ownerToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("adjust failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData catalog.Product
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return respData
	}

	t.Run("sale and restock", func(t *testing.T) {
		if got := applyStock(t, adjust(-2, catalog.ReasonSale, "فروش حضوری")); got.Quantity != 3 {
			t.Errorf("failed! quantity = %v; want 3", got.Quantity)
		}
		if got := applyStock(t, adjust(4, "", "")); got.Quantity != 7 { // reason defaults to adjust
			t.Errorf("failed! quantity = %v; want 7", got.Quantity)
		}
	})

	t.Run("the ledger keeps every move", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/products/"+prod.ID+"/stock", "demo", ownerToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData []catalog.StockEntry
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(respData) != 2 {
			t.Fatalf("failed! len = %v; want 2", len(respData))
		}
		// newest first
		if respData[0].Delta != 4 || respData[0].Reason != catalog.ReasonAdjust {
			t.Errorf("failed! entry = (%v, %q)", respData[0].Delta, respData[0].Reason)
		}
		if respData[1].Delta != -2 || respData[1].Reason != catalog.ReasonSale || respData[1].Note != "فروش حضوری" {
			t.Errorf("failed! entry = (%v, %q, %q)", respData[1].Delta, respData[1].Reason, respData[1].Note)
		}
		if respData[1].ByUserID != owner.ID {
			t.Errorf("failed! by_user_id = %q; want %q", respData[1].ByUserID, owner.ID)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/products/00000000-0000-4000-8000-000000000000/stock", "demo", ownerToken, adjust(1, "", ""))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})
}

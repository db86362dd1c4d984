package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core/goldprice"
	"github.com/zargarco/zargar/core/user"
	"github.com/zargarco/zargar/tests"
)

func Test_goldPriceApi(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	owner := testutil.CreateUser(t, demoCtx, usrRepo, "آرش", "arash", "arash@demo.test", "", []string{user.RoleShopOwner}, true)
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "نیما", "nima", "nima@demo.test", "", []string{user.RoleShopCashier}, true)

	ownerToken := getToken(t, owner, demo)
	cashierToken := getToken(t, cashier, demo)

	var quote goldprice.GoldPrice
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "cashier cannot set the price", token: cashierToken,
			body:     marchallObj(t, goldprice.SetGoldPrice{PricePerGram: decimal.RequireFromString("4000000")}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "missing price", token: ownerToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"price_per_gram": "price must be greater than zero"}),
		},
		{
			name: "fractional toman", token: ownerToken,
			body:     marchallObj(t, goldprice.SetGoldPrice{PricePerGram: decimal.RequireFromString("4000000.5")}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"price_per_gram": "price must be a whole toman amount"}),
		},
		{
			name: "bad source", token: ownerToken,
			body:     marchallObj(t, goldprice.SetGoldPrice{PricePerGram: decimal.RequireFromString("4000000"), Source: "telegram"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"source": "source must be one of [manual board]"}),
		},
		{
			name: "posted", token: ownerToken, wantCode: http.StatusCreated,
			body: marchallObj(t, goldprice.SetGoldPrice{PricePerGram: decimal.RequireFromString("4000000")}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/gold-price"
		tt.shop = "demo"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &quote); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if quote.ID == "" {
					t.Error("failed! empty quote ID")
				}
				if !quote.PricePerGram.Equal(decimal.RequireFromString("4000000")) {
					t.Errorf("failed! price = %v; want 4000000", quote.PricePerGram)
				}
				if quote.Source != goldprice.SourceManual { // the default source
					t.Errorf("failed! source = %q; want %q", quote.Source, goldprice.SourceManual)
				}
				if quote.ByUserID != owner.ID {
					t.Errorf("failed! by_user_id = %q; want %q", quote.ByUserID, owner.ID)
				}
				if quote.At.IsZero() {
					t.Error("failed! quote not timestamped")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("the latest quote wins", func(t *testing.T) {
		body := marchallObj(t, goldprice.SetGoldPrice{PricePerGram: decimal.RequireFromString("4050000"), Source: goldprice.SourceBoard})
		req, rec := newAuthRequest(http.MethodPost, "/v1/gold-price", "demo", ownerToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/gold-price", "demo", cashierToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData goldprice.GoldPrice
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !respData.PricePerGram.Equal(decimal.RequireFromString("4050000")) {
			t.Errorf("failed! price = %v; want 4050000", respData.PricePerGram)
		}
		if respData.Source != goldprice.SourceBoard {
			t.Errorf("failed! source = %q; want %q", respData.Source, goldprice.SourceBoard)
		}
	})

	t.Run("a fresh shop has no quote", func(t *testing.T) {
		pasargad, pasargadCtx := seedShop(t, "pasargad")
		sara := testutil.CreateUser(t, pasargadCtx, usrRepo, "سارا", "sara", "sara@pasargad.test", "", []string{user.RoleShopOwner}, true)

		req, rec := newAuthRequest(http.MethodGet, "/v1/gold-price", "pasargad", getToken(t, sara, pasargad))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("history", func(t *testing.T) {
		now := time.Now().UTC()
		seedPrice := func(price string, at time.Time) {
			t.Helper()
			_, err := goldRepo.CreateGoldPrice(demoCtx, goldprice.GoldPrice{
				PricePerGram: decimal.RequireFromString(price),
				Source:       goldprice.SourceManual,
				At:           at,
				ByUserID:     owner.ID,
			})
			if err != nil {
				t.Fatalf("CreateGoldPrice() failed: %v", err)
			}
		}
		seedPrice("3900000", now.Add(-48*time.Hour))
		seedPrice("3950000", now.Add(-24*time.Hour))

		histories := []struct {
			name       string
			from, to   time.Time
			wantLen    int
			wantNewest string
			wantOldest string
		}{
			{name: "open ended", wantLen: 4, wantNewest: "4050000", wantOldest: "3900000"},
			{name: "from cuts the old days", from: now.Add(-36 * time.Hour), wantLen: 3, wantNewest: "4050000", wantOldest: "3950000"},
			{name: "to is exclusive", to: now.Add(-12 * time.Hour), wantLen: 2, wantNewest: "3950000", wantOldest: "3900000"},
		}
		for _, ht := range histories {
			t.Run(ht.name, func(t *testing.T) {
				v := make(url.Values)
				if !ht.from.IsZero() {
					v.Add("from", ht.from.Format(time.RFC3339))
				}
				if !ht.to.IsZero() {
					v.Add("to", ht.to.Format(time.RFC3339))
				}
				req, rec := newAuthRequest(http.MethodGet, "/v1/gold-price/history?"+v.Encode(), "demo", cashierToken)
				app.ServeHTTP(rec, req)

				if rec.Code != http.StatusOK {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				var respData []goldprice.GoldPrice
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if len(respData) != ht.wantLen {
					t.Fatalf("failed! len = %v; want %v", len(respData), ht.wantLen)
				}
				// newest first
				if !respData[0].PricePerGram.Equal(decimal.RequireFromString(ht.wantNewest)) {
					t.Errorf("failed! newest = %v; want %v", respData[0].PricePerGram, ht.wantNewest)
				}
				if !respData[ht.wantLen-1].PricePerGram.Equal(decimal.RequireFromString(ht.wantOldest)) {
					t.Errorf("failed! oldest = %v; want %v", respData[ht.wantLen-1].PricePerGram, ht.wantOldest)
				}
			})
		}
	})
}

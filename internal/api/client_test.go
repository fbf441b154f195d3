package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sreejithpm/fieldsync/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token", 0, nil)
}

// The request timeout must bound the small fetches only. The product payload
// can legitimately take longer than any of them, so it answers to its
// caller's deadline alone.
func TestRequestTimeoutSparesProductFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte(`{"data":[{"code":"P1","name":"Soap"}]}`))
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, "test-token", 20*time.Millisecond, nil)

	if _, err := c.GetCustomers(context.Background()); err == nil {
		t.Fatal("expected the customer fetch to hit the request timeout")
	}
	if _, err := c.GetAreas(context.Background()); err == nil {
		t.Fatal("expected the area fetch to hit the request timeout")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	products, err := c.GetProductDetails(ctx)
	if err != nil {
		t.Fatalf("GetProductDetails: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("got %d products, want 1", len(products))
	}
}

func TestProductFetchHonorsCallerDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, "test-token", time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.GetProductDetails(ctx); err == nil {
		t.Fatal("expected the product fetch to hit the caller's deadline")
	}
}

func TestGetCustomersEnvelopeShapes(t *testing.T) {
	bodies := map[string]string{
		"bare array": `[{"code":"C1","name":"A"},{"code":"C2","name":"B"}]`,
		"data key":   `{"data":[{"code":"C1","name":"A"},{"code":"C2","name":"B"}]}`,
		"debtors":    `{"debtors":[{"code":"C1","name":"A"},{"code":"C2","name":"B"}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
					t.Errorf("Authorization = %q", got)
				}
				w.Write([]byte(body))
			})

			customers, err := c.GetCustomers(context.Background())
			if err != nil {
				t.Fatalf("GetCustomers: %v", err)
			}
			if len(customers) != 2 {
				t.Errorf("got %d customers, want 2", len(customers))
			}
		})
	}
}

func TestGetCustomersSkipsUnidentified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"code":"C1","name":"A"},{"code":"","name":"ghost"},{"name":"no code"}]`))
	})

	customers, err := c.GetCustomers(context.Background())
	if err != nil {
		t.Fatalf("GetCustomers: %v", err)
	}
	if len(customers) != 1 || customers[0].Code != "C1" {
		t.Errorf("customers = %+v, want only C1", customers)
	}
}

func TestGetCustomersServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := c.GetCustomers(context.Background()); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestGetAreasShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"envelope", `{"success":true,"areas":["North","South","North"]}`, 2},
		{"bare strings", `["East","West"]`, 2},
		{"unknown shape", `{"something":"else"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			areas, err := c.GetAreas(context.Background())
			if err != nil {
				t.Fatalf("GetAreas: %v", err)
			}
			if len(areas) != tt.want {
				t.Errorf("got %d areas, want %d", len(areas), tt.want)
			}
		})
	}
}

func TestGetProductDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/product/get-product-details" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":[
			{"code":"P1","name":"Soap","batches":[{"batch_no":"B1","MRP":"20"}]},
			{"code":"","name":"dropped"}
		]}`))
	})

	products, err := c.GetProductDetails(context.Background())
	if err != nil {
		t.Fatalf("GetProductDetails: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	if len(products[0].Batches) != 1 || products[0].Batches[0].MRP != 20 {
		t.Errorf("batches: %+v", products[0].Batches)
	}
}

func TestSaveCollectionPostsJSON(t *testing.T) {
	var received model.OfflineCollection
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/save/" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	col := model.OfflineCollection{LocalID: "col-1", CustomerCode: "C1", Amount: 150, PaymentType: model.PaymentCash}
	if err := c.SaveCollection(context.Background(), col); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}
	if received.LocalID != "col-1" || received.Amount != 150 {
		t.Errorf("server received %+v", received)
	}
}

func TestSaveOrderRejectedByServer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"duplicate"}`, http.StatusConflict)
	})

	err := c.SaveOrder(context.Background(), model.OfflineOrder{LocalID: "ord-1"})
	if err == nil {
		t.Fatal("expected error on 409")
	}
}

func TestDecodeRecordListUnknownKey(t *testing.T) {
	if _, err := decodeRecordList([]byte(`{"wrong":[]}`), "data", "debtors"); err == nil {
		t.Fatal("expected error for unknown envelope key")
	}
	if _, err := decodeRecordList([]byte(`"just a string"`), "data"); err == nil {
		t.Fatal("expected error for non-list body")
	}
}

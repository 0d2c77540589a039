//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 4 {
		t.Fatalf("expected 4 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var ring *productResponse
	for i := range products {
		if products[i].ID == "ring-solitaire-01" {
			ring = &products[i]
			break
		}
	}

	if ring == nil {
		t.Fatal("product ring-solitaire-01 not found")
	}
	if ring.Name != "Aurelia Solitaire Ring" {
		t.Errorf("name: got %q, want %q", ring.Name, "Aurelia Solitaire Ring")
	}
	if num(t, ring.Price) != 1249 {
		t.Errorf("price: got %v, want 1249", ring.Price)
	}
	if ring.SKU != "AUR-RNG-001" {
		t.Errorf("sku: got %q, want %q", ring.SKU, "AUR-RNG-001")
	}
	if ring.Collection != "Solitaire" {
		t.Errorf("collection: got %q, want %q", ring.Collection, "Solitaire")
	}
	if ring.Image.Thumbnail == "" {
		t.Error("image.thumbnail is empty")
	}
	if ring.Image.Mobile == "" {
		t.Error("image.mobile is empty")
	}
	if ring.Image.Desktop == "" {
		t.Error("image.desktop is empty")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/pendant-opal-01")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != "pendant-opal-01" {
		t.Errorf("id: got %q, want %q", product.ID, "pendant-opal-01")
	}
	if product.Name != "Opal Teardrop Pendant" {
		t.Errorf("name: got %q, want %q", product.Name, "Opal Teardrop Pendant")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

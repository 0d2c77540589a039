//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestQuote_GlobalMode(t *testing.T) {
	req := quoteRequest{
		Lines: []cartLineRequest{
			{ProductID: "ring-solitaire-01", Price: "1249.00", Quantity: 1},
		},
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.Mode != "global" {
		t.Errorf("mode: got %q, want %q", quote.Mode, "global")
	}
	// spring15: 15% of 1249.00 = 187.35
	if got := num(t, quote.DiscountAmount); got != 187.35 {
		t.Errorf("discount: got %v, want 187.35", got)
	}
	if got := num(t, quote.FinalAmount); got != 1061.65 {
		t.Errorf("final: got %v, want 1061.65", got)
	}
	if quote.SelectedDiscount == nil || quote.SelectedDiscount.DiscountID != "spring15" {
		t.Errorf("selected discount: got %+v, want spring15", quote.SelectedDiscount)
	}
}

func TestQuote_BestDiscountPerLine(t *testing.T) {
	// pendant-opal-01 at 389.00 is covered by both spring15 (58.35 off)
	// and meridian50 (50.00 off); the larger one must win.
	req := quoteRequest{
		Lines: []cartLineRequest{
			{ProductID: "pendant-opal-01", Price: "389.00", Quantity: 1},
		},
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if got := num(t, quote.DiscountAmount); got != 58.35 {
		t.Errorf("discount: got %v, want 58.35", got)
	}
	if quote.SelectedDiscount == nil || quote.SelectedDiscount.DiscountID != "spring15" {
		t.Errorf("selected discount: got %+v, want spring15", quote.SelectedDiscount)
	}
}

func TestQuote_UserMode(t *testing.T) {
	// vip-demo is entitled to spring15 only; the quote must run in user
	// mode against that pool.
	req := quoteRequest{
		UserID: "vip-demo",
		Lines: []cartLineRequest{
			{ProductID: "pendant-opal-01", Price: "389.00", Quantity: 1},
		},
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.Mode != "user" {
		t.Errorf("mode: got %q, want %q", quote.Mode, "user")
	}
	if got := num(t, quote.DiscountAmount); got != 58.35 {
		t.Errorf("discount: got %v, want 58.35", got)
	}
}

func TestQuote_UnknownUserFallsToGlobal(t *testing.T) {
	req := quoteRequest{
		UserID: "nobody-here",
		Lines: []cartLineRequest{
			{ProductID: "ring-solitaire-01", Price: "1249.00", Quantity: 1},
		},
	}
	resp := doPost(t, "/api/cart/quote", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.Mode != "global" {
		t.Errorf("mode: got %q, want %q", quote.Mode, "global")
	}
}

func TestQuote_EmptyLines(t *testing.T) {
	resp := doPost(t, "/api/cart/quote", quoteRequest{Lines: []cartLineRequest{}})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// Package auth holds the API key read model used to authenticate
// order-placement and admin requests.
package auth

import "context"

// Scope names understood by the security handler.
const (
	ScopePlaceOrder    = "place_order"
	ScopeManageCatalog = "manage_catalog"
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants the named scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

package gateway

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type PurchaseResult struct {
	ProductID     string `json:"product_id"`
	PurchaseToken string `json:"purchase_token"`
}

// PurchaseProvider is the in-app purchase contract. A verified purchase is
// chained into a device top-up of the product's value.
type PurchaseProvider interface {
	ListProducts(ctx context.Context, ids []string) ([]Product, error)
	Purchase(ctx context.Context, productID, cardID string) (*PurchaseResult, error)
	VerifyPurchase(ctx context.Context, purchaseToken string) (bool, error)
}

type SimulatedProvider struct {
	mu      sync.Mutex
	catalog map[string]Product
	issued  map[string]string // purchase token -> product id
}

func NewSimulatedProvider(catalog []Product) *SimulatedProvider {
	provider := &SimulatedProvider{
		catalog: make(map[string]Product, len(catalog)),
		issued:  make(map[string]string),
	}
	for _, product := range catalog {
		provider.catalog[product.ID] = product
	}
	return provider
}

func (p *SimulatedProvider) ListProducts(ctx context.Context, ids []string) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// No filter means the whole catalog.
	if len(ids) == 0 {
		products := make([]Product, 0, len(p.catalog))
		for _, product := range p.catalog {
			products = append(products, product)
		}
		sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
		return products, nil
	}

	var products []Product
	for _, id := range ids {
		if product, found := p.catalog[id]; found {
			products = append(products, product)
		}
	}

	return products, nil
}

func (p *SimulatedProvider) Purchase(ctx context.Context, productID, cardID string) (*PurchaseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, found := p.catalog[productID]; !found {
		return nil, ErrUnknownProduct
	}

	purchaseToken := uuid.NewString()
	p.issued[purchaseToken] = productID

	return &PurchaseResult{
		ProductID:     productID,
		PurchaseToken: purchaseToken,
	}, nil
}

// VerifyPurchase consumes the purchase token: a second verification of the
// same token reports false.
func (p *SimulatedProvider) VerifyPurchase(ctx context.Context, purchaseToken string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, found := p.issued[purchaseToken]; !found {
		return false, nil
	}

	delete(p.issued, purchaseToken)
	return true, nil
}

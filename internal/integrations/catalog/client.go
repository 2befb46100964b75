// Package catalog is the read-only client for the remote product API. The
// catalog is an external collaborator: the cart engine only ever consumes
// product lookups from here.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *Cache
	cacheTTL   time.Duration
}

func NewClient(baseURL string, timeout time.Duration, cache *Cache, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

func (c *Client) List(ctx context.Context) ([]domain.Product, error) {
	key := c.cache.key("products", "")
	if raw, ok := c.cache.get(ctx, key); ok {
		var products []domain.Product
		if err := json.Unmarshal([]byte(raw), &products); err == nil {
			return products, nil
		}
	}

	var products []domain.Product
	if err := c.getJSON(ctx, c.baseURL+"/products", &products); err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(products); err == nil {
		c.cache.set(ctx, key, string(raw), c.cacheTTL)
	}
	return products, nil
}

func (c *Client) Get(ctx context.Context, id string) (domain.Product, error) {
	key := c.cache.key("product", id)
	if raw, ok := c.cache.get(ctx, key); ok {
		var product domain.Product
		if err := json.Unmarshal([]byte(raw), &product); err == nil {
			return product, nil
		}
	}

	var product domain.Product
	if err := c.getJSON(ctx, fmt.Sprintf("%s/products/%s", c.baseURL, id), &product); err != nil {
		return domain.Product{}, err
	}
	if raw, err := json.Marshal(product); err == nil {
		c.cache.set(ctx, key, string(raw), c.cacheTTL)
	}
	return product, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrProductNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("catalog responded with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

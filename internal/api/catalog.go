// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"github.com/jeranaias/polychat-tui/internal/model"
)

// =============================================================================
// MODEL CATALOG CLIENT
// =============================================================================

// CatalogClient reads the model catalog service. It is consumed by the
// UI's model selector directly, not by the state managers.
type CatalogClient struct {
	client *Client
}

// NewCatalogClient creates a catalog client on top of the shared plumbing.
func NewCatalogClient(client *Client) *CatalogClient {
	return &CatalogClient{client: client}
}

// ListModels returns every provider's models, keyed by provider.
func (c *CatalogClient) ListModels(ctx context.Context) (map[string][]model.CatalogModel, error) {
	var catalog map[string][]model.CatalogModel
	if err := c.client.doWithRetry(ctx, http.MethodGet, "/models", nil, &catalog); err != nil {
		return nil, err
	}

	// The provider key is implicit in the map; stamp it on each entry so
	// flattened views keep the association.
	for provider, models := range catalog {
		for i := range models {
			models[i].Provider = provider
		}
		catalog[provider] = models
	}
	return catalog, nil
}

// ListProviderModels returns one provider's models.
func (c *CatalogClient) ListProviderModels(ctx context.Context, provider string) ([]model.CatalogModel, error) {
	var models []model.CatalogModel
	path := "/models/" + url.PathEscape(provider)
	if err := c.client.doWithRetry(ctx, http.MethodGet, path, nil, &models); err != nil {
		return nil, err
	}
	for i := range models {
		models[i].Provider = provider
	}
	return models, nil
}

// Flatten converts a provider→models catalog into one sorted slice for
// selector views. Providers sort alphabetically, models keep their
// catalog order within each provider.
func Flatten(catalog map[string][]model.CatalogModel) []model.CatalogModel {
	providers := make([]string, 0, len(catalog))
	for provider := range catalog {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	var flat []model.CatalogModel
	for _, provider := range providers {
		flat = append(flat, catalog[provider]...)
	}
	return flat
}

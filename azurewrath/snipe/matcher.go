package snipe

import (
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
)

// Matches reports whether a single config accepts the deal. A nil
// AssetID means the config applies to every item; nil price bounds are
// unbounded on that side.
func Matches(cfg *models.SnipeConfig, deal *models.SnipeDeal) bool {
	if cfg.AssetID != nil && *cfg.AssetID != deal.AssetID {
		return false
	}
	if deal.Deal < cfg.MinDeal {
		return false
	}
	if cfg.MinPrice != nil && deal.Price < *cfg.MinPrice {
		return false
	}
	if cfg.MaxPrice != nil && deal.Price > *cfg.MaxPrice {
		return false
	}
	return true
}

// FirstMatch walks the user's configs in id order and returns the first
// one that accepts the deal, or nil when none do. Configs are assumed
// pre-filtered to enabled ones.
func FirstMatch(configs []*models.SnipeConfig, deal *models.SnipeDeal) *models.SnipeConfig {
	for _, cfg := range configs {
		if Matches(cfg, deal) {
			return cfg
		}
	}
	return nil
}

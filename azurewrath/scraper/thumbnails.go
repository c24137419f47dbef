package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const thumbnailEndpoint = "https://thumbnails.roblox.com/v1/assets"

// ThumbnailClient resolves asset thumbnail URLs from the Roblox
// thumbnails API. Resolved URLs are kept in an LRU cache because the
// catalog barely changes between cycles.
type ThumbnailClient struct {
	http  *http.Client
	cache *lru.Cache
}

func NewThumbnailClient(cacheSize int) *ThumbnailClient {
	cache, _ := lru.New(cacheSize)
	return &ThumbnailClient{
		http:  &http.Client{Timeout: 10 * time.Second},
		cache: cache,
	}
}

type thumbnailResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

// ImageURL returns the thumbnail URL for an asset, hitting the API only
// on cache miss. A failed lookup is not cached so the next call retries.
func (c *ThumbnailClient) ImageURL(ctx context.Context, assetID int64) (string, error) {
	if cached, ok := c.cache.Get(assetID); ok {
		return cached.(string), nil
	}

	url := fmt.Sprintf("%s?assetIds=%s&size=420x420&format=Png", thumbnailEndpoint, strconv.FormatInt(assetID, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build thumbnail request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thumbnail API returned status %d", resp.StatusCode)
	}

	var body thumbnailResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode thumbnail response: %w", err)
	}

	for _, entry := range body.Data {
		if entry.TargetID == assetID && entry.State == "Completed" && entry.ImageURL != "" {
			c.cache.Add(assetID, entry.ImageURL)
			return entry.ImageURL, nil
		}
	}
	return "", fmt.Errorf("no completed thumbnail for asset %d", assetID)
}

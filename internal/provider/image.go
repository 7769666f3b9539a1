package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBannerBytes caps banner downloads.
const maxBannerBytes = 8 << 20

// Banner is a downloaded show image.
type Banner struct {
	URL         string
	ContentType string
	Data        []byte
}

// Size returns the image size in bytes.
func (b Banner) Size() int {
	return len(b.Data)
}

// BannerFetcher downloads show banners.
type BannerFetcher struct {
	client *http.Client
}

// NewBannerFetcher creates a fetcher. A nil client uses a 15s timeout.
func NewBannerFetcher(client *http.Client) *BannerFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &BannerFetcher{client: client}
}

// Fetch downloads the image at url.
func (f *BannerFetcher) Fetch(ctx context.Context, url string) (Banner, error) {
	if strings.TrimSpace(url) == "" {
		return Banner{}, &ProviderError{Provider: "image", Code: CodeInvalid, Message: "banner url is empty"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Banner{}, fmt.Errorf("failed to build banner request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Banner{}, fmt.Errorf("failed to download banner: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Banner{}, NotFound("image", "banner %s not found", url)
	case resp.StatusCode != http.StatusOK:
		return Banner{}, &ProviderError{
			Provider: "image",
			Code:     CodeUnavailable,
			Message:  fmt.Sprintf("banner download failed with status %d", resp.StatusCode),
			Retry:    resp.StatusCode >= 500,
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBannerBytes+1))
	if err != nil {
		return Banner{}, fmt.Errorf("failed to read banner: %w", err)
	}
	if len(data) > maxBannerBytes {
		return Banner{}, &ProviderError{Provider: "image", Code: CodeInvalid, Message: "banner exceeds size limit"}
	}
	return Banner{URL: url, ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

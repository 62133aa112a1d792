package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const iconCDNFormat = "https://assets.coincap.io/assets/icons/%s@2x.png"

// IconCache downloads and caches per-instrument icons for the UI layer.
// Everything here is best-effort: a missing icon never blocks anything.
type IconCache struct {
	basePath string
	client   *http.Client
}

// NewIconCache creates an icon cache rooted at basePath.
func NewIconCache(basePath string) (*IconCache, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create icon directory: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconCache{
		basePath: basePath,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// Fetch downloads the icon for a symbol unless it is already cached.
// Icons are resized to 24x24 pixels for consistent display. Returns the
// local file path on success.
func (c *IconCache) Fetch(ctx context.Context, symbol string) (string, error) {
	// Sanitize symbol to prevent path traversal
	safeSymbol := sanitizeSymbol(symbol)
	if safeSymbol == "" {
		return "", fmt.Errorf("invalid symbol: %s", symbol)
	}

	filePath := filepath.Join(c.basePath, strings.ToLower(safeSymbol)+".png")
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Cache hit
	}

	// The CDN indexes by base asset, so strip the quote suffix first
	// (BTCUSDT -> btc).
	asset := strings.ToLower(baseAsset(safeSymbol))
	url := fmt.Sprintf(iconCDNFormat, asset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resizedImg := imaging.Resize(srcImg, 24, 24, imaging.Lanczos)
	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// Path returns where a symbol's icon lives, cached or not.
func (c *IconCache) Path(symbol string) string {
	return filepath.Join(c.basePath, strings.ToLower(sanitizeSymbol(symbol))+".png")
}

var quoteSuffixes = []string{"USDT", "BUSD", "USDC", "BTC", "ETH"}

func baseAsset(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, suffix := range quoteSuffixes {
		if len(upper) > len(suffix) && strings.HasSuffix(upper, suffix) {
			return upper[:len(upper)-len(suffix)]
		}
	}
	return upper
}

func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}

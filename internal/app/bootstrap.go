package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"
	"github.com/Jhaamlal/Equals-Crypto/internal/infra"
	"github.com/Jhaamlal/Equals-Crypto/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Store
	Icons   *infra.IconCache
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, icons)
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("Bootstrapping Equals-Crypto...")

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized")

	iconPath, err := defaultIconPath()
	if err != nil {
		return err
	}
	icons, err := infra.NewIconCache(iconPath)
	if err != nil {
		return err
	}
	b.Icons = icons
	slog.Info("Icon cache ready")

	return nil
}

// WarmIcons fetches icons for every instrument across the persisted
// watchlists in the background. Best-effort.
func (b *Bootstrap) WarmIcons(ctx context.Context, lists []domain.Watchlist) {
	uniqueSymbols := make(map[string]struct{})
	for _, w := range lists {
		for _, c := range w.Coins {
			uniqueSymbols[c.Symbol] = struct{}{}
		}
	}
	if len(uniqueSymbols) == 0 {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for symbol := range uniqueSymbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			if _, err := b.Icons.Fetch(ctx, sym); err != nil {
				slog.Debug("icon fetch failed", slog.String("symbol", sym), slog.Any("error", err))
			}
		}(symbol)
	}

	wg.Wait()
	slog.Info("Icon warmup completed", slog.Int("symbols", len(uniqueSymbols)))
}

// defaultIconPath resolves the icon cache directory based on OS
func defaultIconPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "EqualsCrypto", "assets", "icons"), nil
}

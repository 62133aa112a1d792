package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jhaamlal/Equals-Crypto/internal/app"
	"github.com/Jhaamlal/Equals-Crypto/internal/domain"
	"github.com/Jhaamlal/Equals-Crypto/internal/feed"
	"github.com/Jhaamlal/Equals-Crypto/internal/infra/binance"
	"github.com/Jhaamlal/Equals-Crypto/internal/search"
	"github.com/Jhaamlal/Equals-Crypto/internal/watchlist"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; env vars override config values either way
	_ = godotenv.Load()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize("configs/config.yaml"); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := watchlist.NewStore(bootstrap.Storage)
	go bootstrap.WarmIcons(ctx, store.All())

	dialer := binance.NewDialer(cfg.API.Binance.WSURL)
	manager := feed.NewManager(dialer,
		time.Duration(cfg.Feed.TeardownGraceMS)*time.Millisecond,
		cfg.Feed.InboxSize,
	)
	manager.Start(ctx)
	defer manager.Stop()

	catalog := binance.NewClient(cfg)
	searcher := search.NewSearcher(catalog, func(term string, items []domain.Instrument) {
		slog.Info("search results", slog.String("term", term), slog.Int("count", len(items)))
	})
	debouncer := search.NewDebouncer(
		time.Duration(cfg.Search.DebounceMS)*time.Millisecond,
		func(term string) { searcher.Search(ctx, term) },
	)
	defer debouncer.Close()

	// Select the first persisted watchlist, if any, and open its feed.
	selected := ""
	if lists := store.All(); len(lists) > 0 {
		selected = lists[0].ID
		slog.Info("selected watchlist", slog.String("id", selected), slog.String("name", lists[0].Name))
	}
	manager.SetTarget(selected, store.All())

	slog.Info("Equals-Crypto running. Press Ctrl+C to exit.")

	// Stand-in for the UI layer: periodically report live prices, falling
	// back to each instrument's last known static price.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down gracefully...")
			return
		case <-ticker.C:
			reportPrices(manager, store, selected)
		}
	}
}

func reportPrices(manager *feed.Manager, store *watchlist.Store, selected string) {
	w, ok := store.Get(selected)
	if !ok {
		return
	}
	prices := manager.CurrentPrices()
	for _, coin := range w.Coins {
		price := coin.Price
		pct := coin.PriceChangePercent
		if live, ok := prices[coin.Symbol]; ok {
			price = live.Price
			pct = live.ChangePercent
		}
		slog.Info("quote",
			slog.String("symbol", coin.Symbol),
			slog.String("price", price.String()),
			slog.String("change_pct", pct.String()),
			slog.String("state", string(manager.State())),
		)
	}
}

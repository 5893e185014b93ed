package api

import (
	"context"
	"fmt"
	"time"
)

// AllMids fetches the current mid price for every coin, keyed by coin symbol.
// Prices are decimal strings.
func (c *Client) AllMids(ctx context.Context) (map[string]string, error) {
	var mids map[string]string
	payload := map[string]any{"type": "allMids"}
	if err := c.query(ctx, payload, &mids); err != nil {
		return nil, fmt.Errorf("all mids: %w", err)
	}
	return mids, nil
}

// L2Book fetches an orderbook snapshot for one coin.
func (c *Client) L2Book(ctx context.Context, coin string) (*L2Book, error) {
	var book L2Book
	payload := map[string]any{"type": "l2Book", "coin": coin}
	if err := c.query(ctx, payload, &book); err != nil {
		return nil, fmt.Errorf("l2 book %s: %w", coin, err)
	}
	return &book, nil
}

// CandleSnapshot fetches historical candles for a coin over [start, end].
func (c *Client) CandleSnapshot(ctx context.Context, coin, interval string, start, end time.Time) ([]Candle, error) {
	var candles []Candle
	payload := map[string]any{
		"type": "candleSnapshot",
		"req": map[string]any{
			"coin":      coin,
			"interval":  interval,
			"startTime": start.UnixMilli(),
			"endTime":   end.UnixMilli(),
		},
	}
	if err := c.query(ctx, payload, &candles); err != nil {
		return nil, fmt.Errorf("candle snapshot %s/%s: %w", coin, interval, err)
	}
	return candles, nil
}

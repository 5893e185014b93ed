package api

// Level is one price level in an orderbook snapshot.
type Level struct {
	Px string `json:"px"` // Price
	Sz string `json:"sz"` // Total size at this level
	N  int    `json:"n"`  // Number of orders
}

// L2Book is an orderbook snapshot. Levels[0] are bids, Levels[1] asks, both
// sorted best-first.
type L2Book struct {
	Coin   string    `json:"coin"`
	Time   int64     `json:"time"` // ms since epoch
	Levels [][]Level `json:"levels"`
}

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime  int64  `json:"t"` // ms since epoch
	CloseTime int64  `json:"T"`
	Coin      string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	Trades    int    `json:"n"`
}

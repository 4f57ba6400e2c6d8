package domain

import "time"

// Coin is one observation of a tracked asset: the attributes CoinGecko
// reported for it at a single snapshot instant. (id, last_updated) is the
// natural key; re-observing the same coin at the same instant overwrites
// the row, otherwise a new row is appended.
type Coin struct {
	ID                           string     `json:"id"`
	Symbol                       string     `json:"symbol"`
	Name                         string     `json:"name"`
	Image                        string     `json:"image"`
	CurrentPrice                 float64    `json:"current_price"`
	MarketCap                    int64      `json:"market_cap"`
	MarketCapRank                int        `json:"market_cap_rank"`
	FullyDilutedValuation        *int64     `json:"fully_diluted_valuation"`
	TotalVolume                  int64      `json:"total_volume"`
	High24h                      float64    `json:"high_24h"`
	Low24h                       float64    `json:"low_24h"`
	PriceChange24h               float64    `json:"price_change_24h"`
	PriceChangePercentage24h     float64    `json:"price_change_percentage_24h"`
	MarketCapChange24h           int64      `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h float64    `json:"market_cap_change_percentage_24h"`
	CirculatingSupply            float64    `json:"circulating_supply"`
	TotalSupply                  *float64   `json:"total_supply"`
	MaxSupply                    *float64   `json:"max_supply"`
	ATH                          float64    `json:"ath"`
	ATHChangePercentage          float64    `json:"ath_change_percentage"`
	ATHDate                      *time.Time `json:"ath_date"`
	ATL                          float64    `json:"atl"`
	ATLChangePercentage          float64    `json:"atl_change_percentage"`
	ATLDate                      *time.Time `json:"atl_date"`
	LastUpdated                  time.Time  `json:"last_updated"`
	Currency                     string     `json:"currency"`
}

// TotalMarketCap is the summed capitalization of the full top-100 set at
// one observation instant. The id is a database surrogate.
type TotalMarketCap struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	TotalMarketCap string    `json:"total_market_cap"`
}

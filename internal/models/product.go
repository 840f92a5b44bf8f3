package models

// ProductRecord holds the internal operational data for one product:
// historical sales, current stock, and the forward production plan.
type ProductRecord struct {
	Code     string `json:"code" badgerhold:"key" toml:"code"`
	Name     string `json:"name" toml:"name"`
	Category string `json:"category" badgerhold:"index" toml:"category"`

	// HistoricalSales are units sold per trailing period, oldest first
	HistoricalSales []float64 `json:"historical_sales" toml:"historical_sales"`
	CurrentStock    int       `json:"current_stock" toml:"current_stock"`
	// ProductionPlan are planned units per upcoming period
	ProductionPlan []float64 `json:"production_plan" toml:"production_plan"`

	// Tags used for document retrieval, e.g. "category:spark_plugs"
	RelevanceTags []string `json:"relevance_tags" toml:"relevance_tags"`
}

// ProductBatch is a disjoint subset of the product universe assigned to one
// batch worker. Consumed read-only by exactly one batch processor.
type ProductBatch struct {
	Index    int      `json:"index"`
	Products []string `json:"products"`
}

// MarketInsight is the externally derived market summary for one product.
// Ephemeral; a nil insight means the insight service was unavailable and the
// product proceeds on internal data alone.
type MarketInsight struct {
	ProductCode string   `json:"product_code"`
	Summary     string   `json:"summary"`
	KeyFindings []string `json:"key_findings"`
	// Confidence in 0..1 as reported by the provider
	Confidence float64 `json:"confidence"`
	Provider   string  `json:"provider"`
}

// FusedDataset merges market insight with internal operational data for one
// product. Input to the forecast model; ephemeral.
type FusedDataset struct {
	ProductCode string         `json:"product_code"`
	Product     ProductRecord  `json:"product"`
	Insight     *MarketInsight `json:"insight,omitempty"`

	// Derived features
	HistoricalTrend Trend  `json:"historical_trend"`
	InventoryStatus string `json:"inventory_status"` // "adequate" or "low"
	MarketSignal    string `json:"market_signal"`    // "expanding", "contracting", or "flat"
}

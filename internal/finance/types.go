package finance

// yahooChartResp is the subset of the v8 chart payload used for daily closes.
type yahooChartResp struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"chart"`
}

type yahooResult struct {
	Meta       yahooMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []yahooQuote `json:"quote"`
	} `json:"indicators"`
}

// yahooMeta carries the exchange offset needed to turn bar timestamps into dates.
type yahooMeta struct {
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	ExchangeName string `json:"exchangeName"`
	GmtOffset    int64  `json:"gmtoffset"`
	Timezone     string `json:"timezone"`
}

// yahooQuote holds closes; missing sessions arrive as null and decode to 0.
type yahooQuote struct {
	Close []float64 `json:"close"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

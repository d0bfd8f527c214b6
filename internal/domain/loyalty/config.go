package loyalty

// Config holds the loyalty discount options. Defaults match a fresh install
// of the module.
type Config struct {
	Enabled         bool   `default:"true" usage:"Enable the loyalty discount"`
	SortOrder       int    `default:"998" usage:"Position of the loyalty line in the order-total breakdown"`
	Period          string `default:"year" usage:"Lookback period for cumulative spend: alltime, year, quarter or month"`
	Table           string `default:"1000:5,1500:7.5,2000:10,3000:12.5,5000:15" usage:"Discount tiers as threshold:percentage pairs"`
	IncludeShipping bool   `default:"true" usage:"Include shipping cost in the discount basis"`
	IncludeTax      bool   `default:"true" usage:"Include product tax in the discount basis"`
	RecalculateTax  bool   `default:"false" usage:"Reduce order tax by the discounted share"`
	OrderStatus     string `default:"3" usage:"Qualifying order status: empty for any, N for status >= N, or a comma list"`
}

// settings is the validated form of Config, derived on every evaluation so
// configuration changes apply immediately.
type settings struct {
	table    Table
	period   Period
	statuses StatusFilter
}

func (c Config) compile() (settings, error) {
	table, err := ParseTable(c.Table)
	if err != nil {
		return settings{}, err
	}
	period, err := ParsePeriod(c.Period)
	if err != nil {
		return settings{}, err
	}
	statuses, err := ParseStatusFilter(c.OrderStatus)
	if err != nil {
		return settings{}, err
	}
	return settings{table: table, period: period, statuses: statuses}, nil
}

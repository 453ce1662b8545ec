package engine

// Config holds the tunables of the analytics engine
type Config struct {
	OverloadDerating         float64 `mapstructure:"overload_derating"`
	OverloadRatioThreshold   float64 `mapstructure:"overload_ratio_threshold"`
	DefaultWindowDays        int     `mapstructure:"default_window_days"`
	CustomerDefaultThreshold float64 `mapstructure:"customer_default_threshold"`

	// ClampNegativeDeltas zeroes counter deltas that go backwards (meter reset
	// or rollover). The device is reported in Metric.Anomalies either way.
	ClampNegativeDeltas bool `mapstructure:"clamp_negative_deltas"`

	QueryBatchSize     int `mapstructure:"query_batch_size"`     // devices per store query, 0 = all
	MaxParallelQueries int `mapstructure:"max_parallel_queries"` // concurrent batches

	HumidityScale    float64 `mapstructure:"humidity_scale"`
	TemperatureScale float64 `mapstructure:"temperature_scale"`
}

// DefaultConfig returns the settings the dashboards were calibrated with
func DefaultConfig() Config {
	return Config{
		OverloadDerating:         0.8,
		OverloadRatioThreshold:   0.75,
		DefaultWindowDays:        30,
		CustomerDefaultThreshold: 20.0,
		ClampNegativeDeltas:      true,
		QueryBatchSize:           200,
		MaxParallelQueries:       4,
		HumidityScale:            4.108,
		TemperatureScale:         1.833,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.OverloadDerating <= 0 {
		c.OverloadDerating = d.OverloadDerating
	}
	if c.OverloadRatioThreshold <= 0 {
		c.OverloadRatioThreshold = d.OverloadRatioThreshold
	}
	if c.DefaultWindowDays <= 0 {
		c.DefaultWindowDays = d.DefaultWindowDays
	}
	if c.MaxParallelQueries <= 0 {
		c.MaxParallelQueries = 1
	}
	return c
}

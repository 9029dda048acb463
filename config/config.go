// Package config holds the rollbook run configuration, loaded with Viper
// from a TOML file and ROLLBOOK_* environment variables.
package config

// Config is the root rollbook configuration.
type Config struct {
	Directory DirectoryConfig `mapstructure:"directory"`
	Cohorts   CohortsConfig   `mapstructure:"cohorts"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// DirectoryConfig configures how the person directory is reached and paged.
type DirectoryConfig struct {
	BaseURL   string  `mapstructure:"base_url"`   // directory service root, e.g. https://example.breezechms.com/api
	APIKey    string  `mapstructure:"api_key"`    // bound to ROLLBOOK_DIRECTORY_API_KEY
	PageSize  int     `mapstructure:"page_size"`  // people per listing page
	DetailRPS float64 `mapstructure:"detail_rps"` // lifecycle detail fetches per second, 0 = unthrottled
}

// CohortsConfig configures cohort reconstruction.
type CohortsConfig struct {
	// MemberCategories are the canonical category names counted as cohort
	// membership. Labels in change reports are normalized before being
	// compared against these.
	MemberCategories []string `mapstructure:"member_categories"`

	// Anchors is the number of year-start snapshot dates to reconstruct,
	// counting backwards from the start of the current year.
	Anchors int `mapstructure:"anchors"`
}

// MatchingConfig configures record matching and allocation.
type MatchingConfig struct {
	// LookbackYears is how many prior years to search when a record does
	// not resolve in its own year.
	LookbackYears int `mapstructure:"lookback_years"`

	// Buckets is the fixed, ordered list of destination categories. Order
	// matters: it is the deterministic tie-break for allocation. The
	// catch-all "Overall" bucket is appended if absent.
	Buckets []string `mapstructure:"buckets"`
}

// CacheConfig configures the lifecycle date cache.
type CacheConfig struct {
	Path string `mapstructure:"path"` // sqlite file path
}

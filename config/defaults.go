package config

import "github.com/spf13/viper"

// Defaults applied before any config file or environment override.
const (
	DefaultPageSize      = 500
	DefaultDetailRPS     = 4.0
	DefaultAnchors       = 3
	DefaultLookbackYears = 3
	DefaultCachePath     = "rollbook.db"
)

// DefaultMemberCategories are the category names counted as cohort
// membership when the config file does not override them.
var DefaultMemberCategories = []string{"Member", "Regular Attender"}

// DefaultBuckets is the default destination bucket order.
var DefaultBuckets = []string{"First Service", "Second Service", "Overall"}

// SetDefaults registers every default on the given Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("directory.page_size", DefaultPageSize)
	v.SetDefault("directory.detail_rps", DefaultDetailRPS)
	v.SetDefault("cohorts.member_categories", DefaultMemberCategories)
	v.SetDefault("cohorts.anchors", DefaultAnchors)
	v.SetDefault("matching.lookback_years", DefaultLookbackYears)
	v.SetDefault("matching.buckets", DefaultBuckets)
	v.SetDefault("cache.path", DefaultCachePath)
}

package config

import "github.com/casteleyn/rollbook/errors"

// Validate rejects configurations the pipeline cannot run with. Errors
// carry hints for the user.
func (c *Config) Validate() error {
	if c.Directory.PageSize <= 0 {
		return errors.WithHint(
			errors.Newf("directory.page_size must be positive, got %d", c.Directory.PageSize),
			"set directory.page_size to a value like 500",
		)
	}
	if c.Directory.DetailRPS < 0 {
		return errors.Newf("directory.detail_rps must not be negative, got %g", c.Directory.DetailRPS)
	}
	if c.Cohorts.Anchors <= 0 {
		return errors.WithHint(
			errors.Newf("cohorts.anchors must be positive, got %d", c.Cohorts.Anchors),
			"anchors is the number of year-start snapshots to reconstruct; 3 covers this year and the two before",
		)
	}
	if len(c.Cohorts.MemberCategories) == 0 {
		return errors.WithHint(
			errors.New("cohorts.member_categories must not be empty"),
			`list the category names that count as membership, e.g. ["Member", "Regular Attender"]`,
		)
	}
	if c.Matching.LookbackYears < 0 {
		return errors.Newf("matching.lookback_years must not be negative, got %d", c.Matching.LookbackYears)
	}
	if len(c.Matching.Buckets) == 0 {
		return errors.WithHint(
			errors.New("matching.buckets must not be empty"),
			"buckets define the destination categories for per-year counts",
		)
	}
	seen := make(map[string]bool, len(c.Matching.Buckets))
	for _, b := range c.Matching.Buckets {
		if b == "" {
			return errors.New("matching.buckets must not contain an empty name")
		}
		if seen[b] {
			return errors.Newf("matching.buckets contains %q twice; order must be unambiguous", b)
		}
		seen[b] = true
	}
	if c.Cache.Path == "" {
		return errors.New("cache.path must not be empty")
	}
	return nil
}

// BucketOrder returns the configured bucket order with the catch-all
// "Overall" bucket appended when it is not already present.
func (c *Config) BucketOrder() []string {
	for _, b := range c.Matching.Buckets {
		if b == "Overall" {
			return c.Matching.Buckets
		}
	}
	return append(append([]string{}, c.Matching.Buckets...), "Overall")
}

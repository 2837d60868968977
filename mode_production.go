//go:build stable_production

package stable

const developmentDefault = false

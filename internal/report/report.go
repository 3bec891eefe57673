// Package report derives statistics, listings, exports and cost analysis
// from stored outage records. Everything here is read-only.
package report

import "errors"

// ErrInvalidArgument is returned for out-of-range report parameters.
var ErrInvalidArgument = errors.New("report: invalid argument")

// DefaultRecentLimit is used when no limit is given for recent outages.
const DefaultRecentLimit = 5

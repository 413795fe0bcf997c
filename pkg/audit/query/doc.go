// Package query provides validation and defaulting for audit record
// queries.
//
// Validate rejects a query before it reaches a storage backend when
// any parameter is out of range:
//
//   - Limit within [0, MaxLimit], Offset >= 0
//   - SortBy one of request_time, recorded_time, confidence, duration
//   - SortOrder "asc" or "desc"
//   - StartTime before EndTime
//   - Confidence bounds within [0,1] with min <= max
//   - Outcome one of "success", "error", "blocked"
//
// Whitelisting the sort field here is what lets the SQLite backend
// interpolate it into ORDER BY safely.
//
// ApplyDefaults fills in the limit (100), sort field (request_time),
// and sort order (desc) the HTTP and CLI surfaces rely on.
package query

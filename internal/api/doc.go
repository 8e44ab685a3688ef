// Package api hosts the local read API over the catalog database. Notable
// routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /api/list/{pageType}/{keyword}[/page/{n}] for cached listings.
//   - GET /api/groups for identifier prefixes and their sizes.
//   - GET /api/reference/{table} for reference table snapshots.
//   - GET /api/plan?url= for the linkids a scrape of a remote page can skip.
//   - POST /api/import/{table} and POST /api/cache/invalidate for writers.
package api

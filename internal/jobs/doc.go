// Package jobs keeps a SQLite ledger of finished dubbing requests and
// cleanup sweeps.
//
// The HTTP path writes to the ledger best effort: a failed insert is logged
// and never fails the request. The CLI reads it for `jobs list`, `jobs show`
// and `status`. Rows older than the configured retention are pruned by the
// sweep.
package jobs

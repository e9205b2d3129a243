// Package staging sweeps the scratch and output directories.
//
// Request files are named after their request ID, so a sweep can remove
// scratch leftovers older than a cutoff, orphans from a previous process,
// and served outputs past their retention. Sweeps are recorded in the job
// ledger.
package staging

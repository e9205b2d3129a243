// Package daemon runs the long-lived dengbej web service.
//
// It owns the instance lock, the HTTP listener and its routes, the scheduled
// sweep of scratch and output files, and the status snapshot reported to the
// CLI. Request handling is delegated to the dubbing controller; the daemon only
// translates between HTTP and controller calls.
package daemon

// Command dengbej runs the Kurdish dubbing web service and its maintenance
// tools.
//
// `dengbej serve` starts the HTTP server. The remaining commands inspect
// configuration, check dependencies, read the job ledger, sweep old files,
// render SRT documents from segment JSON, and send a test notification. They
// work directly against the configured directories and ledger, so no running
// server is needed.
package main

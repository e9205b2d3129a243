// Package preflight provides readiness checks for the binaries, directories
// and hosted services dengbej depends on.
//
// These checks run in two contexts:
//   - The server runs RunAll at startup and logs every failing check; a
//     failing check never prevents startup because requests report their
//     own errors.
//   - The CLI "dengbej status" command and the /healthz endpoint render the
//     same results.
//
// Checks for optional integrations are skipped when the integration is off.
package preflight

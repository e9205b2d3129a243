// Package testsupport holds helpers shared by package tests: temp-dir
// configurations, stub binaries, ledger setup and file fixtures.
package testsupport

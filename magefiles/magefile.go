//go:build mage

// Package main provides build targets for pantry using Mage.
//
// Usage:
//
//	mage build             Compile the pantry binary to bin/
//	mage test:all          Run every test
//	mage test:race         Run every test under the race detector
//	mage test:contention   Repeat the lock contention tests
//	mage lint              Run golangci-lint
//	mage vet               Run go vet
//	mage serve             Build and serve with a local data directory
//	mage clean             Remove build artifacts
//	mage install           Install pantry to GOPATH/bin
package main

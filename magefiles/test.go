//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs every test under the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Contention repeats the store's lock contention tests to shake out
// timing-dependent failures.
func (Test) Contention() error {
	return sh.RunV(binGo, "test", "-race", "-count=20",
		"-run", "Contention|Concurrent|HeldLock|WaitsOut",
		"./internal/sqlite/...")
}

//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binDir = "bin"

type Build mg.Namespace

// Builds the skintool binary into bin/.
func (Build) Tool() error {
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return err
	}
	out := filepath.Join(binDir, "skintool")
	fmt.Println("Building", out)
	return sh.RunV("go", "build", "-o", out, "./cmd/skintool")
}

type Test mg.Namespace

// Runs every package's tests.
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Runs the driver and core packages under the race detector.
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./internal/rig/...", "./pkg/...")
}

// Vets all packages.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

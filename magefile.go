//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Build

// Build compiles the tabconv binary into the bin/ directory.
func Build() error {
	fmt.Println("Building...")
	return sh.Run("go", "build", "-o", "./bin/tabconv", "./cmd/tabconv")
}

// Install copies the tabconv binary to /usr/local/bin.
func Install() error {
	mg.Deps(Build)
	fmt.Println("Installing...")
	return sh.Run("cp", "bin/tabconv", "/usr/local/bin/tabconv")
}

// Test runs the unit tests. Container backed tests are skipped with -short.
func Test() error {
	fmt.Println("Running Tests...")
	return sh.Run("go", "test", "-short", "./...")
}

// Integration runs every test, including the PostgreSQL container test (needs Docker).
func Integration() error {
	fmt.Println("Running Integration Tests...")
	return sh.Run("go", "test", "-v", "-timeout", "5m", "./...")
}

// Synth runs the SQL synthesizer tests only.
func Synth() error {
	fmt.Println("Running SQL Synthesizer Tests...")
	return sh.Run("go", "test", "-v", "-run", "^Test(CreateTable|CreateIndex|Insert)", "github.com/darianmavgo/tabconv/converters/sqlgen")
}

// Clean removes the bin directory and test outputs.
func Clean() error {
	fmt.Println("Cleaning...")
	if err := os.RemoveAll("bin"); err != nil {
		return err
	}
	return os.RemoveAll("test_output")
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Check runs formatting and linting checks (fmt, vet).
func Check() error {
	mg.Deps(Fmt, Vet)
	return nil
}

// Fmt runs go fmt ./...
func Fmt() error {
	fmt.Println("Running go fmt...")
	return sh.Run("go", "fmt", "./...")
}

// Vet runs go vet ./...
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}

//go:build mage

// Package main contains Mage build targets for omnisense developer tooling.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "omnisense"
	cmdPkg  = "./cmd/omnisense"
)

// localDirs are created by Init: the default data directory and the
// secrets directory read at startup.
var localDirs = []string{
	".omnisense",
	".secrets",
}

// Init creates the local data and secrets directories.
func Init() error {
	for _, dir := range localDirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	keyFile := filepath.Join(".secrets", "gemini-api-key")
	if _, err := os.Stat(keyFile); os.IsNotExist(err) {
		fmt.Printf("Put your Gemini API key in %s or set OMNISENSE_API_KEY.\n", keyFile)
	}
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Vet runs go vet on every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the test suite with the race detector after vetting.
func Test() error {
	mg.Deps(Vet)
	return sh.RunV("go", "test", "-race", "./...")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints package, file, and test counts for the module.
func Stats() error {
	var s stats
	pkgs := map[string]bool{}
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		pkgs[filepath.Dir(path)] = true
		if !strings.HasSuffix(path, "_test.go") {
			s.files++
			return nil
		}
		s.testFiles++
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		s.tests += countTests(string(data))
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Packages:          %d\n", len(pkgs))
	fmt.Printf("Source files:      %d\n", s.files)
	fmt.Printf("Test files:        %d\n", s.testFiles)
	fmt.Printf("Test functions:    %d\n", s.tests)
	return nil
}

type stats struct {
	files, testFiles, tests int
}

// countTests counts top-level Test functions in a Go source file.
func countTests(src string) int {
	n := 0
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(line, "func Test") && strings.Contains(line, "(t *testing.T)") {
			n++
		}
	}
	return n
}

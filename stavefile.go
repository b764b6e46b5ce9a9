//go:build stave

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

// Default target when running `stave` with no arguments.
var Default = Build

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"s": Smoke,
}

const (
	binaryName = "crate"
	mainPkg    = "./cmd/crate"
	binDir     = "bin"
	modulePath = "github.com/jamesainslie/crate"
)

// corePkgs hold the detection and resolution logic; Cover reports them.
var corePkgs = []string{
	"./pkg/crate/normalize/...",
	"./pkg/crate/group/...",
	"./pkg/crate/keeper/...",
	"./pkg/crate/resolve/...",
	"./pkg/crate/tags/...",
	"./pkg/crate/scanner/...",
}

// All lints, tests and builds.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Build compiles the crate binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}
	return sh.RunV("go", "build", "-ldflags", buildLdflags(), "-o", binaryPath(), mainPkg)
}

// Install copies the built binary to GOBIN, GOPATH/bin or /usr/local/bin.
func Install() error {
	st.Deps(Build)

	bin, err := installDir()
	if err != nil {
		return err
	}
	dst := filepath.Join(bin, filepath.Base(binaryPath()))
	if st.Verbose() {
		fmt.Printf("Installing %s to %s\n", binaryPath(), dst)
	}
	return sh.Copy(dst, binaryPath())
}

// Test runs all tests with race detection.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Cover writes a coverage profile for the core packages to coverage.out
// and prints the per-function summary.
func Cover() error {
	args := append([]string{"test", "-covermode=atomic", "-coverprofile=coverage.out"}, corePkgs...)
	if err := sh.RunV("go", args...); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Smoke builds crate and runs a dry-run report over $CRATE_SMOKE_SOURCE
// (and $CRATE_SMOKE_COMPARE when set). Nothing is modified.
func Smoke() error {
	st.Deps(Build)

	source := os.Getenv("CRATE_SMOKE_SOURCE")
	if source == "" {
		return errors.New("set CRATE_SMOKE_SOURCE to a music folder")
	}
	args := []string{"dupes", "--source", source, "--dry-run", "-o", "plain"}
	if compare := os.Getenv("CRATE_SMOKE_COMPARE"); compare != "" {
		args = append(args, "--compare", compare)
	}
	if st.Verbose() {
		args = append(args, "--verbose")
	}
	return sh.RunV(binaryPath(), args...)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts and coverage output.
func Clean() error {
	if err := sh.Rm("coverage.out"); err != nil {
		return err
	}
	return sh.Rm(binDir + "/")
}

func binaryPath() string {
	out := filepath.Join(binDir, binaryName)
	if runtime.GOOS == "windows" {
		out += ".exe"
	}
	return out
}

func installDir() (string, error) {
	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return "", fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin != "" {
		return bin, nil
	}
	gopath, err := sh.Output(gocmd, "env", "GOPATH")
	if err != nil {
		return "", fmt.Errorf("determining GOPATH: %w", err)
	}
	if gopath == "" {
		return "/usr/local/bin", nil
	}
	return filepath.Join(gopath, "bin"), nil
}

// buildLdflags injects version, commit and build date into cmd/crate.
func buildLdflags() string {
	version := "dev"
	commit := "unknown"
	date := time.Now().Format(time.RFC3339)

	if v, err := sh.Output("git", "describe", "--tags", "--always"); err == nil && v != "" {
		version = strings.TrimSpace(v)
	}
	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && c != "" {
		commit = strings.TrimSpace(c)
	}

	pkg := modulePath + "/cmd/crate"
	return fmt.Sprintf("-X %s.version=%s -X %s.commit=%s -X %s.date=%s",
		pkg, version, pkg, commit, pkg, date)
}

//go:build mage

package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var (
	Go = "go"

	binary  = filepath.Join("bin", "cwt-verifier")
	mainPkg = "./cmd/verifier"
)

// Build compiles every package and the service binary.
func Build() error {
	fmt.Println("Building...")
	if err := sh.Run(Go, "build", "./..."); err != nil {
		return err
	}
	return sh.Run(Go, "build", "-o", binary, mainPkg)
}

// Clean deletes any build artifacts.
func Clean() {
	fmt.Println("Cleaning...")
	_ = os.RemoveAll("bin")
	_ = os.Remove("coverage.out")
}

// Run starts the service with the dev config. CONFIG_PATH overrides the config file.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(binary)
}

// Test runs unit tests without coverage.
// The mage `-v` option will trigger a verbose output of the test
func Test() error {
	return runTests()
}

// CITest runs unit tests with coverage as a part of CI.
// The mage `-v` option will trigger a verbose output of the test
func CITest() error {
	return runTests("-covermode=atomic", "-coverprofile=coverage.out")
}

// Lint runs golangci-lint over the module.
func Lint() error {
	linter := "golangci-lint"
	if err := installIfNotPresent(linter, "github.com/golangci/golangci-lint/cmd/golangci-lint@latest"); err != nil {
		return err
	}
	return sh.RunV(findOnPathOrGoPath(linter), "run", "./...")
}

func runTests(extraTestArgs ...string) error {
	args := []string{"test"}
	if mg.Verbose() {
		args = append(args, "-v")
	}
	args = append(args, "-race")
	args = append(args, extraTestArgs...)
	args = append(args, "./...")
	testEnv := map[string]string{
		"CGO_ENABLED": "1",
		"GO111MODULE": "on",
	}
	writer := ColorizeTestStdout()
	fmt.Printf("%+v\n", args)
	_, err := sh.Exec(testEnv, writer, os.Stderr, Go, args...)
	return err
}

func ColorizeTestOutput(w io.Writer) io.Writer {
	writer := NewRegexpWriter(w, `PASS.*`, "\033[32m$0\033[0m")
	return NewRegexpWriter(writer, `FAIL.*`, "\033[31m$0\033[0m")
}

// ColorizeTestStdout colors pass and fail lines when stdout is a terminal.
func ColorizeTestStdout() io.Writer {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return ColorizeTestOutput(os.Stdout)
	}
	return os.Stdout
}

type regexpWriter struct {
	inner io.Writer
	re    *regexp.Regexp
	repl  []byte
}

func NewRegexpWriter(inner io.Writer, re string, repl string) io.Writer {
	return &regexpWriter{inner, regexp.MustCompile(re), []byte(repl)}
}

func (w *regexpWriter) Write(p []byte) (int, error) {
	r := w.re.ReplaceAll(p, w.repl)
	n, err := w.inner.Write(r)
	if n > len(r) {
		n = len(r)
	}
	return n, err
}

// installIfNotPresent installs a go based tool (if not already installed)
func installIfNotPresent(execName, goPackage string) error {
	if findOnPathOrGoPath(execName) != "" {
		return nil
	}
	fmt.Printf("Attempting to go install %s\n", execName)
	cmd := exec.Command(Go, "install", goPackage)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func findOnPathOrGoPath(execName string) string {
	if p, err := exec.LookPath(execName); err == nil {
		return p
	}
	p := filepath.Join(goPath(), "bin", execName)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	fmt.Printf("Could not find %s on PATH or in GOPATH/bin\n", execName)
	return ""
}

func goPath() string {
	if goPath, ok := os.LookupEnv("GOPATH"); ok {
		return strings.Split(goPath, string(os.PathListSeparator))[0]
	}
	usr, err := user.Current()
	if err != nil {
		logrus.Fatal(err)
		return ""
	}
	return filepath.Join(usr.HomeDir, Go)
}

// CBT runs clean; build; test.
func CBT() error {
	Clean()
	if err := Build(); err != nil {
		return err
	}
	return Test()
}

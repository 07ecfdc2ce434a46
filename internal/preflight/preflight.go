package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/regexyl/instantcards/internal/config"
)

// Result reports the outcome of a single readiness check. Optional marks
// checks whose failure degrades functionality instead of blocking it.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll evaluates every check for the given config: required binaries,
// working directories, and service credentials.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckBinary("MeCab", cfg.Tokenizer.Binary),
		CheckBinary("FFmpeg", cfg.FFmpegBinary()),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Storage.Backend == "local" {
		results = append(results, CheckDirectoryAccess("Storage root", cfg.Storage.Root))
	}

	// The transcriber is optional: jobs that start from SRT text never
	// contact it, so a missing key only blocks audio sources.
	results = append(results,
		CheckCredential("Transcriber", cfg.Transcriber.APIKey, true),
		CheckCredential("Translator", cfg.Translator.APIKey, false),
		CheckCredential("Cards API", cfg.Cards.APIKey, false),
	)
	return results
}

// CheckBinary reports whether the named executable resolves on PATH.
func CheckBinary(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Ready (command: %s)", resolved)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable
// and writable by this process.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCredential reports whether an API key is configured.
func CheckCredential(name, key string, optional bool) Result {
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Optional: optional, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: "Configured"}
}

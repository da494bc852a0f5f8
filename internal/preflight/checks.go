package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"sarchain/internal/config"
	"sarchain/internal/deps"
	"sarchain/internal/scene"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
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

// CheckOutputDir passes when path is an accessible directory, or when it does
// not exist yet and its nearest existing ancestor is writable.
func CheckOutputDir(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := filepath.Dir(path)
	for {
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckFile verifies that path is a readable regular file.
func CheckFile(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckInputs verifies each input exists and carries a parseable
// acquisition timestamp.
func CheckInputs(inputs []string) []Result {
	results := make([]Result, 0, len(inputs))
	for i, input := range inputs {
		name := fmt.Sprintf("Input %d", i+1)
		if _, err := os.Stat(input); err != nil {
			results = append(results, Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", input, err)})
			continue
		}
		ts, err := scene.ParseAcquisitionTime(input)
		if err != nil {
			results = append(results, Result{Name: name, Detail: err.Error()})
			continue
		}
		results = append(results, Result{
			Name:   name,
			Passed: true,
			Detail: fmt.Sprintf("%s (acquired %s)", filepath.Base(input), ts.Format("2006-01-02 15:04:05")),
		})
	}
	return results
}

// CheckSystemDeps evaluates the external executables for the given config.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "SNAP gpt",
			Command:     cfg.Engine.GPTBinary,
			Description: "Required for every engine stage and the unwrap export",
		},
		{
			Name:        "SNAPHU",
			Command:     cfg.Unwrap.SnaphuBinary,
			Description: "Runs the discovered unwrapping command",
			Optional:    true,
		},
	})
}

package snaphu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"sarchain/internal/logging"
	"sarchain/internal/services"
	"sarchain/internal/toolexec"
)

// DefaultConfigName is the file the SNAP export writes into each work directory.
const DefaultConfigName = "snaphu.conf"

var commandPattern = regexp.MustCompile(`^#\s*(snaphu -f snaphu\.conf.*)$`)

// Runner streams a shell command.
type Runner interface {
	Stream(ctx context.Context, command, dir string, onLine func(string)) (toolexec.Result, error)
}

// Report summarizes one discovery attempt.
type Report struct {
	BaseDir    string
	WorkDir    string
	ConfigPath string
	Command    string
	Ran        bool
	Result     toolexec.Result
	// Err is the advisory failure, if any.
	Err error
}

// Discovery finds and runs the embedded unwrapping command.
type Discovery struct {
	runner     Runner
	logger     *slog.Logger
	configName string
}

// Option configures Discovery.
type Option func(*Discovery)

// WithLogger sets the discovery logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discovery) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithConfigName overrides the generated config file name.
func WithConfigName(name string) Option {
	return func(d *Discovery) {
		if strings.TrimSpace(name) != "" {
			d.configName = name
		}
	}
}

// New constructs a Discovery that runs commands through runner.
func New(runner Runner, opts ...Option) *Discovery {
	d := &Discovery{runner: runner, logger: logging.NewNop(), configName: DefaultConfigName}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "snaphu")
	return d
}

// DiscoverAndRun selects the newest work directory under baseDir and runs the
// command found in its config file. Outcomes are logged and reported.
func (d *Discovery) DiscoverAndRun(ctx context.Context, baseDir string) Report {
	report := Report{BaseDir: baseDir}
	logger := logging.WithContext(ctx, d.logger)

	workDir, err := LatestSubdir(baseDir)
	if err != nil {
		return d.skip(logger, report, err)
	}
	report.WorkDir = workDir
	report.ConfigPath = filepath.Join(workDir, d.configName)
	logger.Info("selected snaphu work directory", logging.String("dir", workDir))

	command, err := commandFromFile(report.ConfigPath)
	if err != nil {
		return d.skip(logger, report, err)
	}
	report.Command = command
	logger.Info("running snaphu",
		logging.String(logging.FieldEventType, "unwrap_start"),
		logging.String("command", command),
		logging.String("dir", workDir),
	)

	if d.runner == nil {
		return d.skip(logger, report, services.Wrap(services.ErrDiscoverySkipped, "unwrap", "run", "no command runner configured", nil))
	}
	result, err := d.runner.Stream(ctx, command, workDir, func(line string) {
		logger.Info(line, logging.String("source", "snaphu"))
	})
	report.Ran = true
	report.Result = result
	if err != nil {
		report.Err = err
		logger.Warn("snaphu command failed",
			logging.String(logging.FieldEventType, "unwrap_failed"),
			logging.String(logging.FieldSeverity, services.SeverityOf(err).String()),
			logging.Int("exit_code", result.ExitCode),
			logging.Error(err),
		)
		return report
	}
	logger.Info("snaphu command finished",
		logging.String(logging.FieldEventType, "unwrap_complete"),
		logging.Int("exit_code", result.ExitCode),
		logging.Duration("duration", result.Duration),
	)
	return report
}

func (d *Discovery) skip(logger *slog.Logger, report Report, err error) Report {
	report.Err = err
	logger.Warn("snaphu discovery skipped",
		logging.String(logging.FieldEventType, "unwrap_skipped"),
		logging.String("base_dir", report.BaseDir),
		logging.Error(err),
	)
	return report
}

// LatestSubdir returns the immediate subdirectory of baseDir with the newest
// modification time. Symlinks are followed, so a link to a directory counts
// with its target's mtime. Ties go to the first in name order. No
// subdirectories yields services.ErrDiscoverySkipped.
func LatestSubdir(baseDir string) (string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return "", services.Wrap(services.ErrDiscoverySkipped, "unwrap", "list work directories", baseDir, err)
	}
	var (
		newest   string
		newestAt time.Time
	)
	for _, entry := range entries {
		info, err := entry.Info()
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err = os.Stat(filepath.Join(baseDir, entry.Name()))
		}
		if err != nil || !info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest = entry.Name()
			newestAt = info.ModTime()
		}
	}
	if newest == "" {
		return "", services.Wrap(services.ErrDiscoverySkipped, "unwrap", "list work directories",
			fmt.Sprintf("no subdirectories in %s", baseDir), nil)
	}
	return filepath.Join(baseDir, newest), nil
}

// ExtractCommand returns the first embedded snaphu command in r.
func ExtractCommand(r io.Reader) (string, bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if match := commandPattern.FindStringSubmatch(line); match != nil {
			return match[1], true, nil
		}
	}
	return "", false, scanner.Err()
}

func commandFromFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrDiscoverySkipped, "unwrap", "open config", fmt.Sprintf("%s not found", path), nil)
		}
		return "", services.Wrap(services.ErrDiscoverySkipped, "unwrap", "open config", path, err)
	}
	defer file.Close()

	command, ok, err := ExtractCommand(file)
	if err != nil {
		return "", services.Wrap(services.ErrDiscoverySkipped, "unwrap", "read config", path, err)
	}
	if !ok {
		return "", services.Wrap(services.ErrDiscoverySkipped, "unwrap", "read config",
			fmt.Sprintf("no snaphu command in %s", path), nil)
	}
	return command, nil
}

package toolexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"sarchain/internal/logging"
	"sarchain/internal/services"
)

var commandContext = exec.CommandContext

const (
	shellBinary   = "/bin/sh"
	maxLineLength = 1024 * 1024
)

// Result describes a finished process.
type Result struct {
	Command  string
	Dir      string
	ExitCode int
	Stdout   string
	Stderr   string
	// Output is the combined stream. For blocking runs it is stdout followed
	// by stderr; streaming runs only fill Output, in pipe order.
	Output   string
	Duration time.Duration
}

// Invoker launches processes.
type Invoker struct {
	logger *slog.Logger
}

// New constructs an Invoker.
func New(logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Invoker{logger: logger}
}

// RunBlocking runs name with args in dir and waits for it to exit. A start
// failure or non-zero exit is returned as services.ErrExecution.
func (i *Invoker) RunBlocking(ctx context.Context, name string, args []string, dir string) (Result, error) {
	commandLine := strings.Join(append([]string{name}, args...), " ")
	result := Result{Command: commandLine, Dir: dir, ExitCode: -1}

	cmd := commandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := logging.WithContext(ctx, i.logger)
	logger.Debug("running command", logging.String("command", commandLine), logging.String("dir", dir))

	started := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(started)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Output = result.Stdout + result.Stderr
	result.ExitCode = exitCode(cmd, err)

	if err != nil {
		return result, services.Wrap(services.ErrExecution, "exec", name,
			fmt.Sprintf("exit code %d: %s", result.ExitCode, summarize(result.Stderr)), err)
	}
	logger.Debug("command finished",
		logging.String("command", commandLine),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

// Stream is a running shell command whose merged output is consumed lazily.
type Stream struct {
	cmd     *exec.Cmd
	reader  *os.File
	scanner *bufio.Scanner
	output  strings.Builder
	result  Result
	started time.Time
	waited  bool
	waitErr error
}

// RunStreaming starts command through the shell with dir as its working
// directory. The caller must call Wait.
func (i *Invoker) RunStreaming(ctx context.Context, command, dir string) (*Stream, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, services.Wrap(services.ErrUnwrapFailed, "exec", "pipe", command, err)
	}

	cmd := commandContext(ctx, shellBinary, "-c", command) //nolint:gosec
	cmd.Dir = dir
	cmd.Stdout = writer
	cmd.Stderr = writer

	logging.WithContext(ctx, i.logger).Debug("starting shell command",
		logging.String("command", command),
		logging.String("dir", dir),
	)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, services.Wrap(services.ErrUnwrapFailed, "exec", "start", command, err)
	}
	// The child holds its own copy; closing ours lets the reader see EOF.
	_ = writer.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &Stream{
		cmd:     cmd,
		reader:  reader,
		scanner: scanner,
		started: started,
		result:  Result{Command: command, Dir: dir, ExitCode: -1},
	}, nil
}

// Lines yields output lines as they arrive. The sequence is finite and not
// restartable: lines already yielded are never yielded again.
func (s *Stream) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		if s.waited {
			return
		}
		for s.scanner.Scan() {
			line := s.scanner.Text()
			s.output.WriteString(line)
			s.output.WriteByte('\n')
			if !yield(line) {
				return
			}
		}
	}
}

// Wait drains unread output, waits for the process, and reports the result.
// A non-zero exit is returned as services.ErrUnwrapFailed.
func (s *Stream) Wait() (Result, error) {
	if s.waited {
		return s.result, s.waitErr
	}
	for range s.Lines() {
	}
	s.waited = true
	scanErr := s.scanner.Err()
	if scanErr != nil {
		// Keep the pipe from blocking the child.
		_, _ = io.Copy(io.Discard, s.reader)
	}
	_ = s.reader.Close()

	err := s.cmd.Wait()
	s.result.Duration = time.Since(s.started)
	s.result.Output = s.output.String()
	s.result.ExitCode = exitCode(s.cmd, err)

	switch {
	case err != nil:
		s.waitErr = services.Wrap(services.ErrUnwrapFailed, "exec", "shell command",
			fmt.Sprintf("exit code %d", s.result.ExitCode), err)
	case scanErr != nil:
		s.waitErr = services.Wrap(services.ErrUnwrapFailed, "exec", "read output", s.result.Command, scanErr)
	}
	return s.result, s.waitErr
}

// Stream runs command, invoking onLine for each output line as it arrives,
// and returns once the process exits.
func (i *Invoker) Stream(ctx context.Context, command, dir string, onLine func(string)) (Result, error) {
	stream, err := i.RunStreaming(ctx, command, dir)
	if err != nil {
		return Result{Command: command, Dir: dir, ExitCode: -1}, err
	}
	for line := range stream.Lines() {
		if onLine != nil {
			onLine(line)
		}
	}
	return stream.Wait()
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return 0
}

func summarize(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return "no error output"
	}
	lines := strings.Split(trimmed, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

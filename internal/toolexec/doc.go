// Package toolexec runs external programs on behalf of the pipeline.
//
// Two modes exist and their failure policies differ. RunBlocking runs an
// executable to completion, captures stdout and stderr, and treats a non-zero
// exit as fatal (services.ErrExecution). RunStreaming runs a shell command line,
// merges stdout and stderr into one pipe, and hands the caller a lazy sequence
// of output lines as the process produces them; a non-zero exit there is
// advisory (services.ErrUnwrapFailed).
//
// No timeouts are applied. Cancelling the context kills the process.
package toolexec

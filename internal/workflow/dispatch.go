package workflow

import (
	"log/slog"
	"path/filepath"
	"strings"

	"sarchain/internal/logging"
	"sarchain/internal/services"
)

// Dispatch applies the severity policy to a command's error. Advisory errors
// are logged as warnings and swallowed; fatal errors are logged and returned.
func Dispatch(logger *slog.Logger, err error) error {
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	severity := services.SeverityOf(err)
	attrs := []logging.Attr{
		logging.String(logging.FieldSeverity, severity.String()),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	}
	if severity == services.SeverityAdvisory {
		logger.Warn("completed with warnings", logging.Args(attrs...)...)
		return nil
	}
	logger.Error("run failed", logging.Args(attrs...)...)
	return err
}

func productName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

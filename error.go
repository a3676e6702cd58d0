package nelson

import (
	"log/slog"
	"os"

	"github.com/stvp/rollbar"
)

// ErrorReporter receives unexpected errors that do not stop the command, such as a report that could not be
// delivered or a run that could not be saved
type ErrorReporter interface {
	ReportError(err error)
}

// errorService logs every error and forwards it to Rollbar when a token is configured in ROLLBAR_TOKEN.  Data
// consists only of the error and a stack trace.
type errorService struct {
	logger  *slog.Logger
	enabled bool
}

func newErrorService(logger *slog.Logger, enabled bool) *errorService {
	token := os.Getenv("ROLLBAR_TOKEN")
	if token == "" {
		enabled = false
	}
	if enabled {
		rollbar.Token = token
		switch env := os.Getenv("NELSON_ENVIRONMENT"); env {
		case "development":
			rollbar.Environment = "development"
		default:
			rollbar.Environment = "production"
		}
	}
	return &errorService{logger: logger, enabled: enabled}
}

// ReportError logs err and sends it to Rollbar
func (e *errorService) ReportError(err error) {
	if err == nil {
		return
	}
	e.logger.Error("unexpected error", "err", err)
	if e.enabled {
		rollbar.Error(rollbar.ERR, err)
	}
}

// flush blocks until queued errors are sent
func (e *errorService) flush() {
	if e.enabled {
		rollbar.Wait()
	}
}

package browser

import (
	"context"
	"errors"

	"github.com/use-agent/flowscout/models"
)

// categorizeError wraps raw errors into typed SearchErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.SearchError {
	return categorize(err, models.ErrCodeNavigation, msg)
}

// crashError is categorizeError for failures of the browser itself.
func crashError(err error, msg string) *models.SearchError {
	return categorize(err, models.ErrCodeBrowserCrash, msg)
}

func categorize(err error, fallback, msg string) *models.SearchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewSearchError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewSearchError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewSearchError(fallback, msg, err)
	}
}

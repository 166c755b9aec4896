package listeners

import (
	"context"

	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/services"
)

// StatusChangeHandler is implemented by services.CompletionDetector.
type StatusChangeHandler interface {
	HandleStatusChange(ctx context.Context, change models.StatusChange) (*services.RewardResult, error)
}

const (
	outcomeHandled   = "handled"
	outcomeIgnored   = "ignored"
	outcomeMalformed = "malformed"
	outcomeFailed    = "failed"
)

package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/club-events/repositories"
)

func intPtr(i int) *int {
	return &i
}

// handleRepositoryError translates repository sentinels into service errors.
func handleRepositoryError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return fmt.Errorf("%s: %w", msg, ErrEventNotFound)
	case errors.Is(err, repositories.ErrClubNotFound):
		return fmt.Errorf("%s: %w", msg, ErrClubNotFound)
	case errors.Is(err, repositories.ErrMatchNotFound):
		return fmt.Errorf("%s: %w", msg, ErrMatchNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

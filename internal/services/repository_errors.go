package services

import (
	"errors"
	"fmt"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/repositories"
)

// mapRepositoryError lifts storage failures into service sentinels so
// handlers never inspect repository types. The subject names the record for
// the error message.
func mapRepositoryError(err error, subject string) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrNotFound, subject)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %s", ErrConflict, subject)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %s", ErrUnavailable, subject)
		}
	}
	return err
}

package notion

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/apperr"
)

// NormalizePageID validates a page identifier and returns its canonical
// hyphenated form. The service hands out ids with hyphens but accepts
// them without, so both spellings are taken here too.
func NormalizePageID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("notion: invalid page id %q: %w", id, apperr.ErrConfig)
	}
	return u.String(), nil
}

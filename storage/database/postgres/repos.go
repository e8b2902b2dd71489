package pgrepos

import (
	"strings"

	"github.com/mwalimux/elimisha/core"
)

// orderByClause renders the requested ordering, falling back to the
// default column. Fields come from code, never from user input.
func orderByClause(ordering []core.DBOrdering, defaultField string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + defaultField
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

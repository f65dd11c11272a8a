package service

import (
	"strconv"
	"strings"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

// parseID parses a path identifier. Only positive integers are valid.
func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidID(name, raw)
	}
	return id, nil
}

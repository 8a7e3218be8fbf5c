package util

import (
	"fmt"
	"strconv"
)

// ParseID parses a positive integer path parameter.
func ParseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrInvalidArgument, s)
	}
	return uint(id), nil
}

package dingtalk

import (
	"fmt"

	"github.com/dingtalk-contrib/dap/sdk/id"
)

// NewID generates an ID with an optional prefix.  The ID generated is
// suitable for an AuthURL state parameter.
func NewID(optionalPrefix string) (string, error) {
	const op = "dingtalk.NewID"
	newID, err := id.New(optionalPrefix)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w", op, ErrIDGeneratorFailed)
	}
	return newID, nil
}

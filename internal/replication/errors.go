package replication

import (
	"fmt"

	"repcore/internal/neterr"
)

func errUnknownFunctionIndex(index int) error {
	return fmt.Errorf("%w: index %d", neterr.ErrUnknownFunctionIndex, index)
}

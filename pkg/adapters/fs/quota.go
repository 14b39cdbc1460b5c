package fs

import (
	"fmt"

	"github.com/aretw0/moments/pkg/core"
)

// classify tags device-capacity failures with core.ErrQuotaExceeded so the
// service can report them as a quota storage error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isNoSpace(err) {
		return fmt.Errorf("%w: %w", core.ErrQuotaExceeded, err)
	}
	return err
}

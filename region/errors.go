package region

import (
	"fmt"

	"github.com/alxdb/nvtree/errors"
)

// ErrOutOfSpace is returned by AllocBlock when every block in the
// region is already allocated.
var ErrOutOfSpace = errors.Errorf("region: out of space")

// ErrOpenFailure wraps any error that prevents a region's backing
// file from being created, sized, or mapped.
var ErrOpenFailure = fmt.Errorf("region: open failure")

// ErrIntegrityFailure marks a superblock magic mismatch detected on
// reopen: Open fails with an error wrapping it, and that case is not
// logged. A whole-region checksum mismatch does not use this error and
// does not fail Open; Open logs it and reports it through its
// integrityOK result.
var ErrIntegrityFailure = fmt.Errorf("region: integrity failure")

func wrapOpenFailure(cause error) error {
	return errors.Wrap(fmt.Errorf("%w: %v", ErrOpenFailure, cause))
}

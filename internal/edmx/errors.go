package edmx

import (
	"errors"
	"fmt"
)

// ErrStructural is wrapped by every StructuralError.
var ErrStructural = errors.New("edmx: not a metadata document")

// StructuralError reports a document with no Edmx root or no Schema blocks.
// No partial model accompanies it.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", ErrStructural.Error(), e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

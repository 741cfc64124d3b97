package wire

import "fmt"

// errMisaligned reports a fatal decode error for a chained element that does
// not start on the protocol-required boundary.
func errMisaligned(what string, offset int) error {
	return fmt.Errorf("wire: %s at offset %d is not aligned", what, offset)
}

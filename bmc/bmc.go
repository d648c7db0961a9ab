/*Package bmc provides control of Boston Micromachines deformable mirrors.

The driver binds the vendor SDK through cgo and is compiled in with the
'bmc' build tag, so the rest of the module builds on machines without
the SDK installed.  Patterns are fractions of the actuator stroke in
[0,1]; the SDK clamps anything outside that range.
*/
package bmc

import "fmt"

// Error is an error code from the BMC SDK with its describing string
type Error struct {
	code int
	text string
}

// Error satisfies the error interface
func (e Error) Error() string {
	return fmt.Sprintf("%d - %s", e.code, e.text)
}

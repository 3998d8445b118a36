package diag

import (
	"errors"
	"fmt"
)

// Defect is a violated internal invariant. Defects are raised with Bugf
// and abort the analysis of the current unit.
type Defect struct {
	Msg string
}

func (d *Defect) Error() string {
	return "internal error: " + d.Msg
}

// Bugf panics with a *Defect.
func Bugf(format string, args ...interface{}) {
	panic(&Defect{Msg: fmt.Sprintf(format, args...)})
}

// Assert raises a defect unless cond holds.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		Bugf(format, args...)
	}
}

// Recover converts a *Defect panic into an error stored in *errp. Other
// panics are re-raised. It must be called directly by a deferred function:
//
//	defer diag.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	d, ok := r.(*Defect)
	if !ok {
		panic(r)
	}
	*errp = d
}

// IsDefect reports whether err is or wraps a *Defect.
func IsDefect(err error) bool {
	var d *Defect
	return errors.As(err, &d)
}

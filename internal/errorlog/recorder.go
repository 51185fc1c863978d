package errorlog

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"errorlog/pkg/errors"
)

// recorder turns recovered panic values into records.
type recorder struct {
	viewPath string
	now      func() time.Time
}

// capture describes one recovered fault.
type capture struct {
	record    *Record
	category  errors.Category
	message   string
	rendering string
}

// build creates the record for panic value v raised while serving the
// request described by env. stack is the goroutine stack taken at recovery.
func (rc recorder) build(id string, v any, stack []byte, env Environ) capture {
	category := errors.Categorize(v)
	message := errors.Message(v)
	rendering := renderTrace(category, message, v, stack)

	rec := NewRecord(
		id,
		string(category),
		rendering,
		rc.now().Format(time.ANSIC),
		EntryURL(rc.viewPath, id),
		env,
	)

	return capture{
		record:    rec,
		category:  category,
		message:   message,
		rendering: rendering,
	}
}

// renderTrace formats the fault header, its cause chain and a stack. Faults
// carrying their own stack show the creation site; other values show the
// stack at recovery, which still includes the panicking frames.
func renderTrace(category errors.Category, message string, v any, stack []byte) string {
	var b strings.Builder

	fmt.Fprintf(&b, "panic: %s: %s\n", category, message)

	if err, ok := v.(error); ok {
		for cause := stderrors.Unwrap(err); cause != nil; cause = stderrors.Unwrap(cause) {
			fmt.Fprintf(&b, "caused by: %s: %s\n", errors.Categorize(cause), cause.Error())
		}
	}

	b.WriteString("\n")

	if f, ok := v.(*errors.Fault); ok && f != nil && len(f.StackTrace) > 0 {
		b.WriteString(f.FormatStackTrace())
	} else {
		b.Write(stack)
	}

	return strings.TrimRight(b.String(), "\n")
}

package framework

import "strings"

// runErrors collects the errors the runners exit with. The zero value
// is ready to use.
type runErrors struct {
	errs []error
}

// add records an error, skipping nils.
func (e *runErrors) add(err error) {
	if err != nil {
		e.errs = append(e.errs, err)
	}
}

// err folds the collected errors into a single error: nil when none
// happened, the error itself when exactly one did.
func (e *runErrors) err() error {
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	}
	return e
}

func (e *runErrors) Error() string {
	msgs := make([]string, len(e.errs))
	for n, err := range e.errs {
		msgs[n] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *runErrors) Unwrap() []error {
	return e.errs
}

package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Target names the subject under assessment, usually an application id such
// as "com.example.app". It doubles as the store namespace, so it must be a
// single path element, and may not start with a dot: names beginning with
// "." are reserved for the store's own bookkeeping.
type Target string

func (t Target) String() string {
	return string(t)
}

var targetValidate = validator.New(validator.WithRequiredStructEnabled())

func (t Target) Validate() error {
	if err := targetValidate.Var(string(t), `required,max=200,excludesall=/\,startsnotwith=.`); err != nil {
		return fmt.Errorf("invalid target name %q: %w", string(t), err)
	}
	return nil
}

// Package validator checks struct fields against go-playground/validator
// tags.
//
// On top of the built-in tags it registers:
//
//	hash      a 0x-prefixed 32 byte hex string, such as a transaction hash
//	blocktag  latest, earliest, pending, safe or finalized
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is the first error of every validation failure.
var ErrValidationFailed = errors.New("struct validation failed")

var blockTags = []string{"latest", "earliest", "pending", "safe", "finalized"}

var validate = newValidate()

func newValidate() *gvalidator.Validate {
	v := gvalidator.New(gvalidator.WithRequiredStructEnabled())

	// Registering a fixed tag only fails on an empty name.
	_ = v.RegisterValidation("hash", isHash)
	_ = v.RegisterValidation("blocktag", isBlockTag)

	return v
}

func isHash(fl gvalidator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}

	b, err := hexutil.Decode(fl.Field().String())
	return err == nil && len(b) == 32
}

func isBlockTag(fl gvalidator.FieldLevel) bool {
	return fl.Field().Kind() == reflect.String && slices.Contains(blockTags, fl.Field().String())
}

// fieldError describes one failed rule, e.g.
// "waitParams.Confirmations: failed min=1 (got 0)".
func fieldError(fe gvalidator.FieldError) error {
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return fmt.Errorf("%s: failed %s (got %v)", fe.Namespace(), rule, fe.Value())
}

// Validate returns nil when v satisfies its tags. Otherwise it returns
// ErrValidationFailed joined with one error per failed field. Errors that are
// not about a field, such as v not being a struct, are returned as is.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs gvalidator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs)+1)
	errs = append(errs, ErrValidationFailed)
	for _, fe := range fieldErrs {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

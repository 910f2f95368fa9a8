// Package validator wraps go-playground/validator with the project's error
// format and the custom tags used by request and configuration structs:
//
//   - base58sig: a base58 encoded ed25519 signature
//   - base58hash: a base58 encoded 32-byte hash
package validator

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is the first error of the chain returned by Validate.
var ErrValidationFailed = errors.New("struct validation failed")

var validator *gvalidator.Validate

const errStringFormat = "'%s': value '%v' does not meet the requirements for the '%s' validation"

func init() {
	validator = gvalidator.New(gvalidator.WithRequiredStructEnabled())

	// Registration only fails for empty tags or nil funcs.
	_ = validator.RegisterValidation("base58sig", isSignature)
	_ = validator.RegisterValidation("base58hash", isHash)
}

func isSignature(fl gvalidator.FieldLevel) bool {
	_, err := solana.SignatureFromBase58(fl.Field().String())
	return err == nil
}

func isHash(fl gvalidator.FieldLevel) bool {
	_, err := solana.HashFromBase58(fl.Field().String())
	return err == nil
}

// formatError turns validator.ValidationErrors into ErrValidationFailed joined
// with one message per field. Other errors are returned unchanged.
func formatError(err error) error {
	var validationErrors gvalidator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := []error{ErrValidationFailed}
	for _, validationErr := range validationErrors {
		errs = append(errs, fmt.Errorf(errStringFormat,
			validationErr.Namespace(),
			validationErr.Value(),
			validationErr.Tag(),
		))
	}

	return errors.Join(errs...)
}

// Validate checks v against its `validate` struct tags.
func Validate(v any) error {
	if err := validator.Struct(v); err != nil {
		return formatError(err)
	}
	return nil
}

// Var checks a single value against tag, e.g. Var(sig, "required,base58sig").
func Var(v any, tag string) error {
	if err := validator.Var(v, tag); err != nil {
		return formatError(err)
	}
	return nil
}

package dropconfig

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/dropctl/dropctl/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	dropIDTokenPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	callMethods         = map[string]bool{"get": true, "post": true, "put": true, "patch": true, "delete": true}
)

// validatorInstance configures and returns the shared validator instance
// used across the dropconfig package, grounded on the teacher's
// internal/config validator_instance.go singleton pattern.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("drop_token", func(fl validator.FieldLevel) bool {
			return dropIDTokenPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("call_method", func(fl validator.FieldLevel) bool {
			return callMethods[fl.Field().String()]
		})

		validateInst = v
	})
	return validateInst
}

// dropIDShape is the struct validator.Validate checks a DropId's string
// parts against: every identifier segment must be a valid token, and a
// call/run DropId's method must be one of the five HTTP verbs or "run".
type dropIDShape struct {
	Module string `validate:"required,drop_token"`
	Name   string `validate:"required,drop_token"`
	Method string `validate:"omitempty,call_method|eq=run"`
}

// ValidateDropId checks that a DropId's segments are well-formed
// identifiers and that its call method (if any) is a recognized verb.
func ValidateDropId(id DropId) error {
	shape := dropIDShape{Module: id.Module, Name: id.Name, Method: id.CallMethod}
	if err := validatorInstance().Struct(shape); err != nil {
		return pkgerrors.NewValidationError("drop_id", fmt.Sprintf("invalid drop id %s: %v", id, err), err)
	}
	return nil
}

// Validate runs structural validation across every block a Config holds:
// well-formed DropIds, and that call blocks only ever use the five
// recognized HTTP methods.
func Validate(cfg *Config) error {
	for _, groups := range [][]Block{cfg.Calls, cfg.Runs, cfg.Chains, cfg.ChainNodes, cfg.Modules, cfg.Environments} {
		for _, b := range groups {
			if err := ValidateDropId(b.DropID); err != nil {
				return err
			}
		}
	}
	for _, b := range cfg.Calls {
		if !callMethods[b.DropID.CallMethod] {
			return pkgerrors.NewValidationError("method", fmt.Sprintf("call %s uses unrecognized method %q", b.DropID, b.DropID.CallMethod), nil)
		}
	}
	return nil
}

// Package configbinder decodes loosely typed configuration blocks (YAML maps, adapter sections)
// into typed structs and validates them.
package configbinder

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance. Field names in messages come from `yaml` tags.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("yaml")
			if name == "" || name == "-" {
				return fld.Name
			}
			for i, c := range name {
				if c == ',' {
					return name[:i]
				}
			}
			return name
		})
	})
	return validate
}

// Bind decodes raw (typically a map[string]interface{} from YAML) into target using `yaml` tags.
// Strings are converted to numbers, bools and durations where the target field needs it.
func Bind(raw interface{}, target interface{}) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}

// BindProperties binds a property map to target.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}
	return Bind(properties, target)
}

// BindAndValidate binds raw into target and then runs `validate` struct tags on it.
func BindAndValidate(raw interface{}, target interface{}) error {
	if err := Bind(raw, target); err != nil {
		return err
	}
	if err := Validator().Struct(target); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

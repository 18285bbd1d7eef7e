package customize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Recognized option names. They follow the local service's option naming.
const (
	OptTemperature      = "temperature"
	OptTopP             = "top_p"
	OptTopK             = "top_k"
	OptMinP             = "min_p"
	OptNumPredict       = "num_predict"
	OptNumCtx           = "num_ctx"
	OptStop             = "stop"
	OptSeed             = "seed"
	OptRepeatPenalty    = "repeat_penalty"
	OptRepeatLastN      = "repeat_last_n"
	OptPresencePenalty  = "presence_penalty"
	OptFrequencyPenalty = "frequency_penalty"
)

type optionKind int

const (
	kindFloat optionKind = iota
	kindInt
	kindStrings
)

type optionSpec struct {
	kind optionKind
	tag  string // validator tag; empty means any value of the right kind
}

var optionSpecs = map[string]optionSpec{
	OptTemperature:      {kind: kindFloat, tag: "gte=0,lte=2"},
	OptTopP:             {kind: kindFloat, tag: "gte=0,lte=1"},
	OptTopK:             {kind: kindInt, tag: "gte=0"},
	OptMinP:             {kind: kindFloat, tag: "gte=0,lte=1"},
	OptNumPredict:       {kind: kindInt, tag: "gte=-2"}, // -1 unlimited, -2 fill context
	OptNumCtx:           {kind: kindInt, tag: "gte=1"},
	OptStop:             {kind: kindStrings, tag: "max=16,dive,required"},
	OptSeed:             {kind: kindInt},
	OptRepeatPenalty:    {kind: kindFloat, tag: "gte=0"},
	OptRepeatLastN:      {kind: kindInt, tag: "gte=-1"},
	OptPresencePenalty:  {kind: kindFloat, tag: "gte=-2,lte=2"},
	OptFrequencyPenalty: {kind: kindFloat, tag: "gte=-2,lte=2"},
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// OptionNames returns the recognized option names, sorted.
func OptionNames() []string {
	names := lo.Keys(optionSpecs)
	sort.Strings(names)
	return names
}

// IsOption reports whether name is a recognized option.
func IsOption(name string) bool {
	_, ok := optionSpecs[name]
	return ok
}

// normalizeOption converts value to the option's canonical Go type (float64,
// int or []string) and range-checks it.
func normalizeOption(name string, value any) (any, error) {
	spec, ok := optionSpecs[name]
	if !ok {
		return nil, &ConfigurationError{
			Option: name,
			Value:  value,
			Reason: "recognized options are " + fmt.Sprint(OptionNames()),
			Err:    ErrUnknownOption,
		}
	}

	var (
		v     any
		valid bool
	)
	switch spec.kind {
	case kindFloat:
		v, valid = toFloat(value)
	case kindInt:
		v, valid = toInt(value)
	case kindStrings:
		v, valid = toStrings(value)
	}
	if !valid {
		return nil, &ConfigurationError{
			Option: name,
			Value:  value,
			Reason: fmt.Sprintf("unsupported value of type %T", value),
			Err:    ErrInvalidValue,
		}
	}

	if spec.tag == "" {
		return v, nil
	}
	if err := getValidator().Var(v, spec.tag); err != nil {
		return nil, &ConfigurationError{
			Option: name,
			Value:  value,
			Reason: describeValidationError(err),
			Err:    ErrInvalidValue,
		}
	}
	return v, nil
}

// describeValidationError creates a human-readable message from a validator error.
func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	e := verrs[0]
	switch e.Tag() {
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "max":
		return "must have at most " + e.Param() + " entries"
	case "required":
		return "entries must not be empty"
	default:
		return "is invalid"
	}
}

func toFloat(value any) (float64, bool) {
	var f float64
	switch n := value.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		// JSON decodes whole numbers as float64 in untyped maps
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		// float64(math.MaxInt) rounds up to 2^63, which int cannot hold.
		if n >= float64(math.MaxInt) || n < float64(math.MinInt) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toStrings(value any) ([]string, bool) {
	switch s := value.(type) {
	case string:
		return []string{s}, true
	case []string:
		return append([]string(nil), s...), true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

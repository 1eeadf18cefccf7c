package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest marks input that cannot become a Request
var ErrInvalidRequest = errors.New("invalid search request")

// Request is a validated search request. Code past FromArgs trusts its shape.
type Request struct {
	Query    string   `json:"query"`
	Strategy Strategy `json:"strategy" validate:"oneof=auto quoted and"`
	Limit    int      `json:"limit" validate:"gte=1"`
	Module   string   `json:"module,omitempty"`
}

// Defaults holds the limit bounds applied by FromArgs
type Defaults struct {
	Limit    int
	MaxLimit int
}

// DefaultDefaults returns limit 10, capped at 100
func DefaultDefaults() Defaults {
	return Defaults{Limit: 10, MaxLimit: 100}
}

var validate = validator.New()

// FromArgs builds a Request from untrusted JSON-like arguments.
//
// Recognized keys: query (alias q), strategy, limit, module. Any of them may
// arrive as a scalar or a list. An absent or zero limit takes the default and
// a limit above the maximum is clamped.
func FromArgs(args map[string]any, defaults Defaults) (Request, error) {
	if defaults.Limit <= 0 {
		defaults.Limit = DefaultDefaults().Limit
	}
	if defaults.MaxLimit < defaults.Limit {
		defaults.MaxLimit = defaults.Limit
	}

	rawQuery, ok := args["query"]
	if !ok {
		rawQuery = args["q"]
	}

	strategy, err := ParseStrategy(Coerce(args["strategy"]))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	req := Request{
		Query:    Coerce(rawQuery),
		Strategy: strategy,
		Limit:    defaults.Limit,
		Module:   Coerce(args["module"]),
	}

	if rawLimit, present := args["limit"]; present && rawLimit != nil {
		limit, ok := CoerceInt(rawLimit)
		if !ok {
			return Request{}, fmt.Errorf("%w: limit must be a whole number, got %v", ErrInvalidRequest, rawLimit)
		}
		if limit < 0 {
			return Request{}, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidRequest, limit)
		}
		if limit > 0 {
			req.Limit = limit
		}
	}
	if req.Limit > defaults.MaxLimit {
		req.Limit = defaults.MaxLimit
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the struct constraints
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

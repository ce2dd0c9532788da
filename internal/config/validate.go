package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and the cross-field rules the struct
// tags cannot express.
func (c *Config) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if n := strings.Count(c.FilePattern, "%"); n != 1 {
		return fmt.Errorf("%w: file_pattern %q must contain exactly one %%s", ErrInvalidConfig, c.FilePattern)
	}

	names := make(map[string]struct{}, len(c.Institutions))
	abbrevs := make(map[string]struct{}, len(c.Institutions))
	for _, inst := range c.Institutions {
		if _, dup := names[inst.Name]; dup {
			return fmt.Errorf("%w: duplicate institution %q", ErrInvalidConfig, inst.Name)
		}
		if _, dup := abbrevs[inst.Abbrev]; dup {
			return fmt.Errorf("%w: duplicate institution abbreviation %q", ErrInvalidConfig, inst.Abbrev)
		}
		names[inst.Name] = struct{}{}
		abbrevs[inst.Abbrev] = struct{}{}
	}

	variants := make(map[string]struct{}, len(c.Variants))
	for _, v := range c.Variants {
		if _, dup := variants[v.Name]; dup {
			return fmt.Errorf("%w: duplicate variant %q", ErrInvalidConfig, v.Name)
		}
		variants[v.Name] = struct{}{}
	}
	return nil
}

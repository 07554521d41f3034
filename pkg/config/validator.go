package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/intercept/pkg/mock"
)

// ValidateFixture applies the definition rules of package mock to every
// definition and rejects duplicate IDs within the file.
func ValidateFixture(f *Fixture) *SchemaValidationResult {
	result := &SchemaValidationResult{}
	if f == nil {
		result.AddError("", "fixture is nil")
		return result
	}

	ids := make(map[string]int)
	for i, def := range f.Mocks {
		path := fmt.Sprintf("/mocks/%d", i)
		if def == nil {
			result.AddError(path, "definition is null")
			continue
		}
		if err := def.Validate(); err != nil {
			var vErr *mock.ValidationError
			if errors.As(err, &vErr) && vErr.Field != "" && vErr.Field != "definition" {
				result.AddError(path+"/"+strings.ReplaceAll(vErr.Field, ".", "/"), vErr.Message)
			} else {
				result.AddError(path, err.Error())
			}
		}
		if def.ID == "" {
			continue
		}
		if first, dup := ids[def.ID]; dup {
			result.AddError(path+"/id", fmt.Sprintf("duplicate id %q (first used by /mocks/%d)", def.ID, first))
			continue
		}
		ids[def.ID] = i
	}
	return result
}

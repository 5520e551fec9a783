package usecase

import (
	"fmt"

	"agenttrust/internal/domain"
)

// StructuralValidator performs the simple required-field checks that run
// alongside signature verification. It never inspects signatures.
type StructuralValidator struct{}

func (s *StructuralValidator) Validate(doc domain.Document) (errs []string, warnings []string) {
	meta, ok := doc[domain.SectionMetadata].(map[string]any)
	if !ok {
		errs = append(errs, "metadata section is missing")
	} else {
		for _, field := range []string{"name", "description"} {
			if v, _ := meta[field].(string); v == "" {
				errs = append(errs, fmt.Sprintf("metadata.%s is required", field))
			}
		}
		if v, _ := meta["version"].(string); v == "" {
			warnings = append(warnings, "metadata.version is missing")
		}
	}

	switch caps := doc["capabilities"].(type) {
	case nil:
		warnings = append(warnings, "capabilities section is missing")
	case []any:
		if len(caps) == 0 {
			warnings = append(warnings, "capabilities is empty")
		}
	case map[string]any:
		if len(caps) == 0 {
			warnings = append(warnings, "capabilities is empty")
		}
	default:
		errs = append(errs, "capabilities must be a list or a mapping")
	}

	return errs, warnings
}

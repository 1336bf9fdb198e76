package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

//go:embed rules.yaml
var defaultRules []byte

// Load reads the classifier rule set from path, or falls back to the
// embedded default set when path is empty.
func Load(path string) (domain.RuleSpec, error) {
	raw := defaultRules
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return domain.RuleSpec{}, fmt.Errorf("read rules file: %w", err)
		}
	}
	return parse(raw)
}

func parse(raw []byte) (domain.RuleSpec, error) {
	var spec domain.RuleSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return domain.RuleSpec{}, fmt.Errorf("parse rules yaml: %w", err)
	}
	if len(spec.CodePatterns) == 0 && len(spec.Comparisons) == 0 {
		return domain.RuleSpec{}, fmt.Errorf("rule set defines no rules")
	}
	for i, cmp := range spec.Comparisons {
		if cmp.Attribute == "" {
			return domain.RuleSpec{}, fmt.Errorf("comparison rule %d has no attribute", i)
		}
		if len(cmp.Aliases) == 0 {
			return domain.RuleSpec{}, fmt.Errorf("comparison rule %q has no aliases", cmp.Attribute)
		}
	}
	return spec, nil
}

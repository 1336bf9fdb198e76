package domain

// ComparisonRule binds comparison-operator vocabulary to one filterable
// attribute. Operator and alias lists are matched case-insensitively.
type ComparisonRule struct {
	Attribute    string   `yaml:"attribute"`
	Aliases      []string `yaml:"aliases"`
	MinOperators []string `yaml:"min_operators"`
	MaxOperators []string `yaml:"max_operators"`
}

// RuleSpec is the declarative classifier rule set: code patterns fire
// EXACT, comparison rules fire FILTER when nothing else remains in the
// query after stripping matches and stopwords.
type RuleSpec struct {
	CodePatterns []string         `yaml:"code_patterns"`
	Comparisons  []ComparisonRule `yaml:"comparisons"`
	Stopwords    []string         `yaml:"stopwords"`
}

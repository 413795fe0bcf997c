package guardrails

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"meridianrx/galen/pkg/dosing"
)

// defaultMaxFileSize bounds rule file size. Dose rule sets are small;
// anything past this is a mistake, not a rule set.
const defaultMaxFileSize = 1 << 20 // 1MB

// Schema key sets used for unknown-field detection.
var (
	ruleSetKeys = []string{
		"guardrails_version", "name", "version", "description",
		"author", "created", "updated", "tags", "rules",
	}
	ruleKeys = []string{
		"name", "description", "enabled", "severity", "priority",
		"match", "limit",
	}
	matchKeys = []string{
		"medication", "medications", "route", "form", "unit", "lot",
	}
	limitKeys = []string{
		"max_single", "max_daily", "min_single", "min_confidence",
		"message",
	}
)

// Parser parses guardrails YAML files into rule sets. It keeps the
// yaml.Node tree alongside the decoded document so errors can point at
// the offending line.
type Parser struct {
	maxFileSize int64
}

// NewParser creates a parser with default limits.
func NewParser() *Parser {
	return &Parser{maxFileSize: defaultMaxFileSize}
}

// WithMaxFileSize overrides the file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// Parse reads and parses the rule set file at path. Structural
// problems are accumulated so one parse reports every error in the
// file.
func (p *Parser) Parse(path string) (*RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: Location{File: path},
		}
	}
	if info.Size() > p.maxFileSize {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: Location{File: path},
		}
	}

	return p.ParseBytes(data, path)
}

// ParseBytes parses rule set YAML from memory. sourcePath is used for
// locations and, when it names a readable file, for error context.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*RuleSet, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: Location{File: sourcePath},
		}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &Error{
			Type:       ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	var doc yamlRuleSet
	if err := root.Decode(&doc); err != nil {
		return nil, &Error{
			Type:       ErrorTypeSyntax,
			Message:    fmt.Sprintf("Rule set does not match the expected schema: %v", err),
			Location:   Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "Compare the file against the package documentation example",
		}
	}

	b := &setBuilder{sourcePath: sourcePath, errors: NewErrorList()}
	set := b.build(&doc, &root)

	if b.errors.HasErrors() {
		for _, e := range b.errors.Errors {
			withContext(e)
		}
		return nil, b.errors
	}

	return set, nil
}

// yamlRuleSet mirrors the rule file schema for decoding. Locations are
// attached afterwards from the node tree.
type yamlRuleSet struct {
	GuardrailsVersion string     `yaml:"guardrails_version"`
	Name              string     `yaml:"name"`
	Version           string     `yaml:"version"`
	Description       string     `yaml:"description"`
	Author            string     `yaml:"author"`
	Created           string     `yaml:"created"`
	Updated           string     `yaml:"updated"`
	Tags              []string   `yaml:"tags"`
	Rules             []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Enabled     *bool      `yaml:"enabled"` // Pointer to distinguish unset from false
	Severity    string     `yaml:"severity"`
	Priority    int        `yaml:"priority"`
	Match       *yamlMatch `yaml:"match"`
	Limit       *yamlLimit `yaml:"limit"`
}

type yamlMatch struct {
	Medication  string   `yaml:"medication"`
	Medications []string `yaml:"medications"`
	Route       string   `yaml:"route"`
	Form        string   `yaml:"form"`
	Unit        string   `yaml:"unit"`
	Lot         string   `yaml:"lot"`
}

type yamlLimit struct {
	MaxSingle     *dosing.Quantity `yaml:"max_single"`
	MaxDaily      *dosing.Quantity `yaml:"max_daily"`
	MinSingle     *dosing.Quantity `yaml:"min_single"`
	MinConfidence float64          `yaml:"min_confidence"`
	Message       string           `yaml:"message"`
}

// setBuilder assembles a RuleSet from the decoded document and the
// node tree, accumulating errors as it goes.
type setBuilder struct {
	sourcePath string
	errors     *ErrorList
}

func (b *setBuilder) build(doc *yamlRuleSet, root *yaml.Node) *RuleSet {
	set := &RuleSet{
		GuardrailsVersion: doc.GuardrailsVersion,
		Name:              doc.Name,
		Version:           doc.Version,
		Description:       doc.Description,
		Author:            doc.Author,
		Tags:              doc.Tags,
		SourceFile:        b.sourcePath,
		Rules:             make([]*Rule, 0, len(doc.Rules)),
		Location:          Location{File: b.sourcePath, Line: 1, Column: 1},
	}

	// Timestamps are advisory; a malformed one is reported but does
	// not invalidate the rule set.
	set.Created = b.parseTime("created", doc.Created, set.Location)
	set.Updated = b.parseTime("updated", doc.Updated, set.Location)

	mapping := documentMapping(root)
	b.checkKeys(mapping, ruleSetKeys, "rule set")

	ruleNodes := sequenceFor(mapping, "rules")
	for i := range doc.Rules {
		loc := b.locationOf(ruleNodes, i)
		set.Rules = append(set.Rules, b.buildRule(&doc.Rules[i], loc))
		if i < len(ruleNodes) {
			b.checkRuleKeys(ruleNodes[i])
		}
	}

	return set
}

func (b *setBuilder) buildRule(yr *yamlRule, loc Location) *Rule {
	rule := &Rule{
		Name:        yr.Name,
		Description: yr.Description,
		Enabled:     true,
		Severity:    Severity(yr.Severity),
		Priority:    yr.Priority,
		Location:    loc,
	}
	if yr.Enabled != nil {
		rule.Enabled = *yr.Enabled
	}

	if yr.Match != nil {
		rule.Match = &Condition{
			Medication:  yr.Match.Medication,
			Medications: yr.Match.Medications,
			Route:       yr.Match.Route,
			Form:        yr.Match.Form,
			Unit:        yr.Match.Unit,
			Lot:         yr.Match.Lot,
		}
	}

	if yr.Limit != nil {
		rule.Limit = &Limit{
			MaxSingle:     yr.Limit.MaxSingle,
			MaxDaily:      yr.Limit.MaxDaily,
			MinSingle:     yr.Limit.MinSingle,
			MinConfidence: yr.Limit.MinConfidence,
			Message:       yr.Limit.Message,
		}
	}

	return rule
}

func (b *setBuilder) parseTime(field, value string, loc Location) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		b.errors.AddErrorWithSuggestion(ErrorTypeStructural,
			fmt.Sprintf("Field %q is not an RFC 3339 timestamp: %q", field, value),
			loc,
			"Example: '2025-03-01T00:00:00Z'")
		return time.Time{}
	}
	return t
}

// checkRuleKeys verifies the keys of one rule mapping and of its match
// and limit blocks against the schema.
func (b *setBuilder) checkRuleKeys(rule *yaml.Node) {
	if rule == nil || rule.Kind != yaml.MappingNode {
		return
	}
	b.checkKeys(rule, ruleKeys, "rule")
	if m := mappingFor(rule, "match"); m != nil {
		b.checkKeys(m, matchKeys, "match block")
	}
	if l := mappingFor(rule, "limit"); l != nil {
		b.checkKeys(l, limitKeys, "limit block")
	}
}

// checkKeys reports mapping keys that are not part of the schema,
// with a typo suggestion. Catching a misspelled "severity" at parse
// time beats silently dropping the field.
func (b *setBuilder) checkKeys(mapping *yaml.Node, valid []string, where string) {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		if key.Kind != yaml.ScalarNode {
			continue
		}
		if !containsKey(valid, key.Value) {
			b.errors.AddErrorWithSuggestion(ErrorTypeStructural,
				fmt.Sprintf("Unknown field %q in %s", key.Value, where),
				Location{File: b.sourcePath, Line: key.Line, Column: key.Column},
				suggestField(key.Value, valid))
		}
	}
}

// locationOf returns the source location of the i-th rule, falling
// back to the document root when the node tree is shorter than the
// decoded slice.
func (b *setBuilder) locationOf(ruleNodes []*yaml.Node, i int) Location {
	if i < len(ruleNodes) && ruleNodes[i] != nil {
		return Location{File: b.sourcePath, Line: ruleNodes[i].Line, Column: ruleNodes[i].Column}
	}
	return Location{File: b.sourcePath, Line: 1, Column: 1}
}

// documentMapping unwraps the document node to the top-level mapping.
func documentMapping(root *yaml.Node) *yaml.Node {
	node := root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	return node
}

// valueFor returns the value node for a key in a mapping, or nil.
func valueFor(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// sequenceFor returns the items of a sequence-valued key, or nil.
func sequenceFor(mapping *yaml.Node, key string) []*yaml.Node {
	v := valueFor(mapping, key)
	if v == nil || v.Kind != yaml.SequenceNode {
		return nil
	}
	return v.Content
}

// mappingFor returns a mapping-valued key, or nil.
func mappingFor(mapping *yaml.Node, key string) *yaml.Node {
	v := valueFor(mapping, key)
	if v == nil || v.Kind != yaml.MappingNode {
		return nil
	}
	return v
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

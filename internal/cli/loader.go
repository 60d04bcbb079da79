package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/UnHumbleBen/ppsim/internal/protocol"
)

//go:embed schema.cue
var protocolSchema string

// ProtocolFile is a protocol definition loaded from YAML: a name, an
// initial configuration, and the transition rule as a list of ordered
// pairs with deterministic or probabilistic outputs. Pairs not listed are
// null transitions.
type ProtocolFile struct {
	Name        string           `yaml:"name"`
	Init        map[string]int64 `yaml:"init"`
	Transitions []TransitionDef  `yaml:"transitions"`
}

// TransitionDef is one rule entry. Exactly one of To and Choices must be
// set.
type TransitionDef struct {
	Pair    []string    `yaml:"pair"`
	To      []string    `yaml:"to"`
	Choices []ChoiceDef `yaml:"choices"`
}

// ChoiceDef is one outcome of a probabilistic transition.
type ChoiceDef struct {
	To   []string `yaml:"to"`
	Prob float64  `yaml:"prob"`
}

// ValidateProtocolBytes checks a protocol definition against the embedded
// CUE schema without building a rule.
func ValidateProtocolBytes(data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(protocolSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile protocol schema: %w", err)
	}
	return cueyaml.Validate(data, schema)
}

// LoadProtocol reads, validates, and decodes a protocol definition file.
func LoadProtocol(path string) (*ProtocolFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateProtocolBytes(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var p ProtocolFile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := p.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

func (p *ProtocolFile) check() error {
	if len(p.Init) == 0 {
		return fmt.Errorf("init must name at least one state")
	}
	for i, t := range p.Transitions {
		if len(t.Pair) != 2 {
			return fmt.Errorf("transition %d: pair must have exactly two states", i)
		}
		switch {
		case t.To != nil && t.Choices != nil:
			return fmt.Errorf("transition %d: to and choices are mutually exclusive", i)
		case t.To == nil && t.Choices == nil:
			return fmt.Errorf("transition %d: one of to or choices is required", i)
		case t.To != nil && len(t.To) != 2:
			return fmt.Errorf("transition %d: to must have exactly two states", i)
		}
		for j, c := range t.Choices {
			if len(c.To) != 2 {
				return fmt.Errorf("transition %d choice %d: to must have exactly two states", i, j)
			}
		}
	}
	return nil
}

// Rule builds the mapping rule described by the file.
func (p *ProtocolFile) Rule() protocol.MapRule {
	rule := make(protocol.MapRule, len(p.Transitions))
	for _, t := range p.Transitions {
		pair := protocol.Pair{A: t.Pair[0], B: t.Pair[1]}
		if t.To != nil {
			rule[pair] = protocol.Deterministic{A: t.To[0], B: t.To[1]}
			continue
		}
		dist := make(protocol.Distribution, len(t.Choices))
		for i, c := range t.Choices {
			dist[i] = protocol.Choice{
				Out:  protocol.Pair{A: c.To[0], B: c.To[1]},
				Prob: c.Prob,
			}
		}
		rule[pair] = dist
	}
	return rule
}

// InitConfig returns the initial configuration with string states.
func (p *ProtocolFile) InitConfig() map[protocol.State]int64 {
	out := make(map[protocol.State]int64, len(p.Init))
	for s, c := range p.Init {
		out[s] = c
	}
	return out
}

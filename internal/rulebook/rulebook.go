// Package rulebook loads and serves insurance policy rulebooks. The bundled
// rulebook ships with the binary; an external YAML file can override it.
package rulebook

import (
	_ "embed"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/mediclaim/claims-cli/internal/model"
)

//go:embed rulebook.yaml
var bundledRulebook []byte

// ErrPolicyNotFound is returned when a policy ID has no rulebook entry.
var ErrPolicyNotFound = eris.New("rulebook: policy not found")

// Rulebook is an immutable set of policies keyed by policy ID.
type Rulebook struct {
	policies map[string]model.Policy
}

type rulebookFile struct {
	Policies map[string]policyEntry `yaml:"policies"`
}

type policyEntry struct {
	PolicyName          string                    `yaml:"policy_name"`
	SumInsured          float64                   `yaml:"sum_insured"`
	CoPaymentPercentage float64                   `yaml:"co_payment_percentage"`
	SubLimits           map[string]model.RuleSpec `yaml:"sub_limits"`
}

// Load returns the bundled rulebook.
func Load() (*Rulebook, error) {
	return parse(bundledRulebook)
}

// LoadFile reads a rulebook from an external YAML file.
func LoadFile(path string) (*Rulebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rulebook: read %s", path)
	}
	return parse(data)
}

func parse(data []byte) (*Rulebook, error) {
	var file rulebookFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "rulebook: parse yaml")
	}
	if len(file.Policies) == 0 {
		return nil, eris.New("rulebook: no policies defined")
	}

	policies := make(map[string]model.Policy, len(file.Policies))
	for id, entry := range file.Policies {
		if entry.SumInsured <= 0 {
			return nil, eris.Errorf("rulebook: policy %s: sum_insured must be positive", id)
		}
		if entry.CoPaymentPercentage < 0 || entry.CoPaymentPercentage > 100 {
			return nil, eris.Errorf("rulebook: policy %s: co_payment_percentage out of range", id)
		}
		for name, rule := range entry.SubLimits {
			if !rule.Type.Valid() {
				return nil, eris.Errorf("rulebook: policy %s: sub-limit %q has unknown type %q", id, name, rule.Type)
			}
		}
		policies[id] = model.Policy{
			PolicyID:            id,
			PolicyName:          entry.PolicyName,
			SumInsured:          entry.SumInsured,
			CoPaymentPercentage: entry.CoPaymentPercentage,
			SubLimits:           entry.SubLimits,
		}
	}
	return &Rulebook{policies: policies}, nil
}

// Lookup returns the policy for the given ID, or ErrPolicyNotFound.
func (r *Rulebook) Lookup(policyID string) (model.Policy, error) {
	p, ok := r.policies[policyID]
	if !ok {
		return model.Policy{}, eris.Wrapf(ErrPolicyNotFound, "policy %q", policyID)
	}
	return p, nil
}

// PolicyIDs returns the known policy IDs in sorted order.
func (r *Rulebook) PolicyIDs() []string {
	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

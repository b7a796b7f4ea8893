package underwriting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy carries the externally configured underwriting thresholds. It is
// injected at construction; nothing in this package reads process-wide state.
type Policy struct {
	MinCreditScore        int     `yaml:"min_credit_score"`
	PreapprovedMultiplier float64 `yaml:"preapproved_multiplier"`
	DefaultAPR            float64 `yaml:"default_apr"`

	// Defaults applied when the form omits the corresponding field.
	DefaultPreapproved int64 `yaml:"default_preapproved"`
	DefaultTenure      int   `yaml:"default_tenure"`
}

// DefaultPolicy returns the shipped thresholds, used when no policy file is
// configured.
func DefaultPolicy() Policy {
	return Policy{
		MinCreditScore:        650,
		PreapprovedMultiplier: 1.5,
		DefaultAPR:            12,
		DefaultPreapproved:    200000,
		DefaultTenure:         24,
	}
}

// policyFile is the on-disk layout, grouping eligibility thresholds apart
// from offer economics.
type policyFile struct {
	Eligibility struct {
		MinCreditScore        int     `yaml:"min_credit_score"`
		PreapprovedMultiplier float64 `yaml:"preapproved_multiplier"`
	} `yaml:"eligibility"`
	Offers struct {
		DefaultAPR         float64 `yaml:"default_apr"`
		DefaultPreapproved int64   `yaml:"default_preapproved"`
		DefaultTenure      int     `yaml:"default_tenure"`
	} `yaml:"offers"`
}

// LoadPolicy reads a policy YAML file, filling unset fields from
// DefaultPolicy so a partial file stays valid.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}

	p := DefaultPolicy()
	if f.Eligibility.MinCreditScore != 0 {
		p.MinCreditScore = f.Eligibility.MinCreditScore
	}
	if f.Eligibility.PreapprovedMultiplier != 0 {
		p.PreapprovedMultiplier = f.Eligibility.PreapprovedMultiplier
	}
	if f.Offers.DefaultAPR != 0 {
		p.DefaultAPR = f.Offers.DefaultAPR
	}
	if f.Offers.DefaultPreapproved != 0 {
		p.DefaultPreapproved = f.Offers.DefaultPreapproved
	}
	if f.Offers.DefaultTenure != 0 {
		p.DefaultTenure = f.Offers.DefaultTenure
	}
	return p, nil
}

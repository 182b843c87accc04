package format

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/textenc"
)

// Instance is one configured statement source: a built-in format bound to a ledger account.
type Instance struct {
	Name     string `yaml:"name"`
	Format   string `yaml:"format"`
	Account  string `yaml:"account"`
	Currency string `yaml:"currency"`
	Encoding string `yaml:"encoding"`
	// ManualFixes counts rows fixed by hand in the ledger. It is reported, never acted on.
	ManualFixes int `yaml:"manual_fixes"`
	// Match is a filename glob selecting the files of this source.
	Match string `yaml:"match"`
	// IncomeSuspense overrides the format default when set.
	IncomeSuspense *bool `yaml:"income_suspense"`
}

// InstancesConfig is the YAML document listing the configured sources.
type InstancesConfig struct {
	Formats []Instance `yaml:"formats"`
}

// LoadInstances reads and validates the instances file at path.
func LoadInstances(path string) ([]Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read formats file: %w", err)
	}

	var config InstancesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	seen := make(map[string]bool, len(config.Formats))
	for i := range config.Formats {
		inst := &config.Formats[i]
		if inst.Name == "" {
			inst.Name = inst.Format
		}
		if seen[inst.Name] {
			return nil, fmt.Errorf("duplicate format instance %q", inst.Name)
		}
		seen[inst.Name] = true
		if err := inst.Validate(); err != nil {
			return nil, err
		}
	}
	return config.Formats, nil
}

// Validate checks the instance against the built-in formats.
func (i Instance) Validate() error {
	if _, ok := Lookup(i.Format); !ok {
		return fmt.Errorf("instance %s: unknown format %q", i.Name, i.Format)
	}
	if i.Account == "" {
		return fmt.Errorf("instance %s: account is required", i.Name)
	}
	if i.Currency != "" && !amount.ValidCurrency(i.Currency) {
		return fmt.Errorf("instance %s: unknown currency %q", i.Name, i.Currency)
	}
	if i.Encoding != "" && !textenc.Valid(i.Encoding) {
		return fmt.Errorf("instance %s: unsupported encoding %q", i.Name, i.Encoding)
	}
	if i.Match != "" {
		if _, err := filepath.Match(i.Match, ""); err != nil {
			return fmt.Errorf("instance %s: bad match pattern: %w", i.Name, err)
		}
	}
	return nil
}

// Descriptor returns the instance's format with the instance overrides applied.
func (i Instance) Descriptor() (Descriptor, error) {
	d, ok := Lookup(i.Format)
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown format %q", i.Format)
	}
	if i.Currency != "" {
		d.Currency = i.Currency
	}
	if i.Encoding != "" {
		d.Encoding = i.Encoding
	}
	if i.IncomeSuspense != nil {
		d.IncomeSuspense = *i.IncomeSuspense
	}
	return d, nil
}

// Matches reports whether the base name of filename matches the instance glob.
func (i Instance) Matches(filename string) bool {
	if i.Match == "" {
		return false
	}
	ok, _ := filepath.Match(i.Match, filepath.Base(filename))
	return ok
}

// FindInstance returns the instance named name.
func FindInstance(instances []Instance, name string) (Instance, bool) {
	for _, inst := range instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return Instance{}, false
}

// MatchFile returns the first instance whose glob matches filename.
func MatchFile(instances []Instance, filename string) (Instance, bool) {
	for _, inst := range instances {
		if inst.Matches(filename) {
			return inst, true
		}
	}
	return Instance{}, false
}

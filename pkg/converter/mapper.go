// Package converter turns classified statement records into balanced ledger entries.
package converter

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/classifier"
)

// Default accounts.
const (
	DefaultExpensePlaceholder = "Expenses:TBD"
	DefaultIncomePlaceholder  = "Income:TBD"
	DefaultServiceFees        = "Expenses:Financial:Fees"
	DefaultBrokerageFees      = "Expenses:Fees:Brokerage"
	DefaultStockAccount       = "Assets:Stock"
	DefaultTradingGains       = "Income:TradingProfit"
)

var defaultCategoryAccounts = map[string]string{
	string(classifier.CategorySalary):         "Income:Salary",
	string(classifier.CategoryATMWithdrawal):  "Expenses:Cash",
	string(classifier.CategoryDividend):       "Income:Dividends",
	string(classifier.CategoryWithholdingTax): "Expenses:Tax:Withholding",
	string(classifier.CategoryInterest):       "Expenses:Fees:BrokerageInterest",
	string(classifier.CategoryFee):            DefaultBrokerageFees,
}

// PayeeMapping routes records whose payee or narration contains Match to Account.
type PayeeMapping struct {
	Match    string `yaml:"match"`
	Account  string `yaml:"account"`
	Category string `yaml:"category"` // optional restriction
}

// AccountMappingConfig represents the complete account mapping configuration.
type AccountMappingConfig struct {
	Placeholders struct {
		Expense string `yaml:"expense"`
		Income  string `yaml:"income"`
	} `yaml:"placeholders"`
	Categories map[string]string `yaml:"categories"`
	Fees       struct {
		Service   string `yaml:"service"`
		Brokerage string `yaml:"brokerage"`
	} `yaml:"fees"`
	Trading struct {
		Assets string `yaml:"assets"`
		Gains  string `yaml:"gains"`
	} `yaml:"trading"`
	Payees []PayeeMapping `yaml:"payees"`
}

// Mapper maps categories and payees to ledger accounts.
type Mapper struct {
	config           AccountMappingConfig
	categoryAccounts map[classifier.Category]string
}

// NewMapper creates a new Mapper from a YAML configuration file.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config AccountMappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return NewMapperFromConfig(config)
}

// DefaultMapper returns a Mapper with the built-in accounts only.
func DefaultMapper() *Mapper {
	m, _ := NewMapperFromConfig(AccountMappingConfig{})
	return m
}

// NewMapperFromConfig creates a Mapper, filling unset accounts with the defaults.
func NewMapperFromConfig(config AccountMappingConfig) (*Mapper, error) {
	setDefault(&config.Placeholders.Expense, DefaultExpensePlaceholder)
	setDefault(&config.Placeholders.Income, DefaultIncomePlaceholder)
	setDefault(&config.Fees.Service, DefaultServiceFees)
	setDefault(&config.Fees.Brokerage, DefaultBrokerageFees)
	setDefault(&config.Trading.Assets, DefaultStockAccount)
	setDefault(&config.Trading.Gains, DefaultTradingGains)

	mapper := &Mapper{
		config:           config,
		categoryAccounts: make(map[classifier.Category]string),
	}
	if err := mapper.buildMappingMaps(); err != nil {
		return nil, err
	}
	return mapper, nil
}

// buildMappingMaps builds internal mapping maps from configuration.
func (m *Mapper) buildMappingMaps() error {
	for name, account := range defaultCategoryAccounts {
		m.categoryAccounts[classifier.Category(name)] = account
	}
	for name, account := range m.config.Categories {
		c, ok := classifier.ParseCategory(name)
		if !ok {
			return fmt.Errorf("unknown category %q in account mapping", name)
		}
		m.categoryAccounts[c] = account
	}
	for i, p := range m.config.Payees {
		if p.Match == "" || p.Account == "" {
			return fmt.Errorf("payee mapping %d needs match and account", i+1)
		}
		if p.Category != "" {
			if _, ok := classifier.ParseCategory(p.Category); !ok {
				return fmt.Errorf("unknown category %q in payee mapping %d", p.Category, i+1)
			}
		}
	}
	return nil
}

// CategoryAccount returns the fixed destination account of a category, or "".
func (m *Mapper) CategoryAccount(c classifier.Category) string {
	return m.categoryAccounts[c]
}

// PayeeAccount returns the account of the first payee mapping matching the payee or narration.
func (m *Mapper) PayeeAccount(c classifier.Category, payee, narration string) (string, bool) {
	payee, narration = strings.ToLower(payee), strings.ToLower(narration)
	for _, p := range m.config.Payees {
		if p.Category != "" && p.Category != string(c) {
			continue
		}
		match := strings.ToLower(p.Match)
		if strings.Contains(payee, match) || strings.Contains(narration, match) {
			return p.Account, true
		}
	}
	return "", false
}

func (m *Mapper) ExpensePlaceholder() string  { return m.config.Placeholders.Expense }
func (m *Mapper) IncomePlaceholder() string   { return m.config.Placeholders.Income }
func (m *Mapper) ServiceFeeAccount() string   { return m.config.Fees.Service }
func (m *Mapper) BrokerageFeeAccount() string { return m.config.Fees.Brokerage }
func (m *Mapper) StockAccount() string        { return m.config.Trading.Assets }
func (m *Mapper) TradingGainsAccount() string { return m.config.Trading.Gains }

// GetAllMappings returns the category accounts keyed by category name.
func (m *Mapper) GetAllMappings() map[string]string {
	result := make(map[string]string, len(m.categoryAccounts))
	for k, v := range m.categoryAccounts {
		result[string(k)] = v
	}
	return result
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

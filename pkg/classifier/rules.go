package classifier

import (
	"regexp"
	"slices"
	"strings"
)

// Input is the view of a record the rules evaluate.
type Input struct {
	Section       string
	Code          string
	AssetCategory string
	Narration     string
	Counterparty  string
	Reference     string
}

// Result is what a matching rule produces.
type Result struct {
	Category     Category
	Counterparty string
	Narration    string
}

// Rule is one row of the ordered rule table: a predicate and an extractor.
// The first rule whose Match returns true decides the result.
type Rule struct {
	Name    string
	Match   func(in Input) bool
	Extract func(in Input) Result
}

// Pattern is a narration prefix rule. Prefix selects the record, Extract recovers the
// counterparty from its "counterparty" named group.
type Pattern struct {
	Name     string
	Category Category
	Prefix   *regexp.Regexp
	Extract  *regexp.Regexp
}

// DefaultPatterns recognize the narration shapes shared by most retail banks.
var DefaultPatterns = []Pattern{
	{
		Name:     "card-purchase",
		Category: CategoryCardPurchase,
		Prefix:   regexp.MustCompile(`(?i)^(card purchase|debit card|kartenzahlung|einkauf|nákup|platba kartou)\b`),
		Extract:  regexp.MustCompile(`(?i)^(?:card purchase|debit card|kartenzahlung|einkauf|nákup|platba kartou)[:\s]+(?:\d{2}\.\d{2}\.\d{2,4}\s+)?(?:\d{2}:\d{2}\s+)?(?P<counterparty>[^,;]+?)(?:\s*[,;].*)?$`),
	},
	{
		Name:     "atm-withdrawal",
		Category: CategoryATMWithdrawal,
		Prefix:   regexp.MustCompile(`(?i)^(atm|cash withdrawal|bargeldbezug|geldautomat|výběr z bankomatu)\b`),
		Extract:  regexp.MustCompile(`(?i)^(?:atm withdrawal|atm|cash withdrawal|bargeldbezug|geldautomat|výběr z bankomatu)[:\s]+(?:\d{2}\.\d{2}\.\d{2,4}\s+)?(?:\d{2}:\d{2}\s+)?(?P<counterparty>[^,;]+?)(?:\s*[,;].*)?$`),
	},
	{
		Name:     "peer-payment",
		Category: CategoryTransfer,
		Prefix:   regexp.MustCompile(`(?i)^(twint|sent money to|received money from|payment from|payment to|transfer to|transfer from)\b`),
		Extract:  regexp.MustCompile(`(?i)^(?:twint|sent money to|received money from|payment from|payment to|transfer to|transfer from)[:\s]+(?:(?:from|to)\s+)?(?P<counterparty>[^,;]+?)(?:\s*[,;].*)?$`),
	},
}

// DefaultSentinels are counterparty and reference values meaning "not provided".
var DefaultSentinels = []string{"NOTPROVIDED", "NOT PROVIDED", "N/A", "NONREF", "-"}

// Config is the per-format classification table.
type Config struct {
	// Codes maps explicit bank transaction codes to categories.
	Codes map[string]Category `yaml:"codes"`
	// Sections maps section names of sectioned files to categories.
	Sections map[string]Category `yaml:"sections"`
	// ForexPrefix refines a trade-security section record into trade-forex
	// when its asset category starts with the prefix.
	ForexPrefix string `yaml:"forex_prefix"`
	// Patterns are tried before DefaultPatterns.
	Patterns []Pattern `yaml:"-"`
	// NoDefaultPatterns disables DefaultPatterns.
	NoDefaultPatterns bool     `yaml:"no_default_patterns"`
	Sentinels         []string `yaml:"sentinels"`
	Columns           Columns  `yaml:"columns"`
}

// Rules builds the rule table in precedence order: code, narration prefix,
// counterparty field, reference field, unclassified.
func (cfg Config) Rules() []Rule {
	sentinels := cfg.Sentinels
	if sentinels == nil {
		sentinels = DefaultSentinels
	}
	provided := func(v string) bool {
		return v != "" && !slices.Contains(sentinels, strings.ToUpper(v))
	}

	var rules []Rule
	if cfg.ForexPrefix != "" {
		rules = append(rules, Rule{
			Name: "forex",
			Match: func(in Input) bool {
				return cfg.Sections[in.Section] == CategoryTradeSecurity && strings.HasPrefix(in.AssetCategory, cfg.ForexPrefix)
			},
			Extract: fixed(CategoryTradeForex),
		})
	}
	if len(cfg.Sections) > 0 {
		rules = append(rules, Rule{
			Name: "section",
			Match: func(in Input) bool {
				_, ok := cfg.Sections[in.Section]
				return ok
			},
			Extract: func(in Input) Result {
				return Result{Category: cfg.Sections[in.Section], Counterparty: in.Counterparty, Narration: in.Narration}
			},
		})
	}
	if len(cfg.Codes) > 0 {
		rules = append(rules, Rule{
			Name: "code",
			Match: func(in Input) bool {
				_, ok := cfg.Codes[in.Code]
				return ok
			},
			Extract: func(in Input) Result {
				cp := in.Counterparty
				if !provided(cp) {
					cp = ""
				}
				return Result{Category: cfg.Codes[in.Code], Counterparty: cp, Narration: in.Narration}
			},
		})
	}

	patterns := slices.Clone(cfg.Patterns)
	if !cfg.NoDefaultPatterns {
		patterns = append(patterns, DefaultPatterns...)
	}
	for _, p := range patterns {
		rules = append(rules, Rule{
			Name:    p.Name,
			Match:   func(in Input) bool { return p.Prefix.MatchString(in.Narration) },
			Extract: p.extract,
		})
	}

	rules = append(rules,
		Rule{
			Name:  "counterparty",
			Match: func(in Input) bool { return provided(in.Counterparty) },
			Extract: func(in Input) Result {
				return Result{Category: CategoryTransfer, Counterparty: in.Counterparty, Narration: in.Narration}
			},
		},
		Rule{
			Name:  "reference",
			Match: func(in Input) bool { return provided(in.Reference) },
			Extract: func(in Input) Result {
				return Result{Category: CategoryTransfer, Counterparty: in.Reference, Narration: in.Narration}
			},
		},
		Rule{
			Name:    "unclassified",
			Match:   func(Input) bool { return true },
			Extract: fixed(CategoryUnclassified),
		},
	)
	return rules
}

// extract recovers the counterparty; when the sub-pattern does not match the raw
// narration is kept and the counterparty stays empty.
func (p Pattern) extract(in Input) Result {
	res := Result{Category: p.Category, Narration: in.Narration}
	if p.Extract == nil {
		return res
	}
	m := p.Extract.FindStringSubmatch(in.Narration)
	if m == nil {
		return res
	}
	if i := p.Extract.SubexpIndex("counterparty"); i > 0 {
		res.Counterparty = strings.TrimSpace(m[i])
	}
	return res
}

func fixed(c Category) func(Input) Result {
	return func(in Input) Result {
		return Result{Category: c, Counterparty: in.Counterparty, Narration: in.Narration}
	}
}

// Evaluate runs the table and returns the first match along with the rule name.
func Evaluate(rules []Rule, in Input) (Result, string) {
	for _, r := range rules {
		if r.Match(in) {
			return r.Extract(in), r.Name
		}
	}
	return Result{Category: CategoryUnclassified, Narration: in.Narration}, "unclassified"
}

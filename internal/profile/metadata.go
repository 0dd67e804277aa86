package profile

import (
	"hash/fnv"
	"strings"

	"github.com/BerryBytes/awsbridge/models"
)

// Rule maps profile names containing one of its keywords to a fixed
// color and icon. Rules are checked in order; first match wins.
type Rule struct {
	Keywords []string
	Color    string
	Icon     string
}

func (r Rule) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range r.Keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// DefaultRules returns the environment-keyword rules applied when no
// custom rule set is configured.
func DefaultRules() []Rule {
	return []Rule{
		{Keywords: []string{"prod", "production"}, Color: "red", Icon: "briefcase"},
		{Keywords: []string{"stg", "staging", "stage"}, Color: "yellow", Icon: "circle"},
		{Keywords: []string{"dev", "development"}, Color: "green", Icon: "fingerprint"},
		{Keywords: []string{"test", "qa"}, Color: "turquoise", Icon: "circle"},
		{Keywords: []string{"ite", "integration"}, Color: "blue", Icon: "circle"},
		{Keywords: []string{"vdi"}, Color: "blue", Icon: "vacation"},
		{Keywords: []string{"janus"}, Color: "purple", Icon: "circle"},
	}
}

// fallbackPalette is the set of colors a non-matching name hashes
// into. Order matters: the same name must map to the same color on
// every run and machine.
var fallbackPalette = []string{
	"blue", "turquoise", "green", "yellow", "orange", "red", "pink", "purple",
}

const defaultIcon = "circle"

// MetadataProvider assigns deterministic color and icon tags to
// profiles by name.
type MetadataProvider struct {
	rules []Rule
}

func NewMetadataProvider(rules []Rule) *MetadataProvider {
	if rules == nil {
		rules = DefaultRules()
	}
	return &MetadataProvider{rules: rules}
}

// Apply sets the profile's color and icon.
func (m *MetadataProvider) Apply(p *models.Profile) {
	for _, rule := range m.rules {
		if rule.matches(p.Name) {
			p.Color = rule.Color
			p.Icon = rule.Icon
			return
		}
	}
	p.Color = hashColor(p.Name)
	p.Icon = defaultIcon
}

func hashColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(name)))
	return fallbackPalette[h.Sum32()%uint32(len(fallbackPalette))]
}

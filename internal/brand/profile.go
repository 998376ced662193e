package brand

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in character limits used when a profile does not override them
var defaultLimits = map[string]int{
	"twitter":   280,
	"linkedin":  3000,
	"facebook":  2000,
	"instagram": 2200,
}

// defaultLimit applies to platforms with no known limit
const defaultLimit = 1000

// Profile describes a brand voice used for scoring and review context
type Profile struct {
	Name           string         `yaml:"name"`
	Voice          string         `yaml:"voice"`
	Keywords       []string       `yaml:"keywords"`
	BannedPhrases  []string       `yaml:"banned_phrases"`
	Hashtags       []string       `yaml:"hashtags"`
	PlatformLimits map[string]int `yaml:"platform_limits"`
}

// Load reads a brand profile from a YAML file
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing brand profile %s: %w", path, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("brand profile %s: name is required", path)
	}

	return &p, nil
}

// LimitFor returns the character limit for a platform, preferring the
// profile's override, then the built-in platform limits
func (p *Profile) LimitFor(platform string) int {
	platform = strings.ToLower(platform)
	if p != nil {
		if limit, ok := p.PlatformLimits[platform]; ok && limit > 0 {
			return limit
		}
	}
	if limit, ok := defaultLimits[platform]; ok {
		return limit
	}
	return defaultLimit
}

// ContainsBanned returns the first banned phrase found in content, if any
func (p *Profile) ContainsBanned(content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, phrase := range p.BannedPhrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase, true
		}
	}
	return "", false
}

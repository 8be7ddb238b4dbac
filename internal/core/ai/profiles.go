package ai

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrUnknownScorer = errors.New("unknown scorer")

// Profile describes one named synthetic player the server logs in at
// startup.
type Profile struct {
	Name   string        `yaml:"name"`
	Scorer string        `yaml:"scorer"`
	Delay  time.Duration `yaml:"delay"`
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// scorers is the registry of named heuristics a profile may reference.
var scorers = map[string]func() Scorer{
	"aggressive": func() Scorer { return aggressiveScorer },
	"balanced":   func() Scorer { return balancedScorer },
	"passive":    func() Scorer { return passiveScorer },
	"chaos":      func() Scorer { return chaosScorer(rand.New(rand.NewSource(time.Now().UnixNano()))) },
}

// ScorerNames lists the registered heuristics, sorted.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStrategy builds the strategy a profile references.
func NewStrategy(scorer string) (Strategy, error) {
	factory, ok := scorers[scorer]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownScorer, "%q", scorer)
	}
	return NewScoring(factory()), nil
}

// ValidateProfiles checks that every profile is named and references a
// registered scorer.
func ValidateProfiles(profiles []Profile) error {
	for i, p := range profiles {
		if p.Name == "" {
			return errors.Errorf("profile %d has no name", i)
		}
		if _, ok := scorers[p.Scorer]; !ok {
			return errors.Wrapf(ErrUnknownScorer, "profile %q references %q (known scorers: %s)",
				p.Name, p.Scorer, strings.Join(ScorerNames(), ", "))
		}
	}
	return nil
}

// LoadProfiles parses a YAML profile list and validates every referenced
// scorer.
func LoadProfiles(data []byte) ([]Profile, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse ai profiles")
	}
	if err := ValidateProfiles(file.Profiles); err != nil {
		return nil, err
	}
	return file.Profiles, nil
}

// DefaultProfiles returns the built-in lobby AIs used when no profile file
// is configured.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: "AI Fighter", Scorer: "aggressive", Delay: 1200 * time.Millisecond},
		{Name: "AI Medium", Scorer: "balanced", Delay: 1500 * time.Millisecond},
		{Name: "AI Loser", Scorer: "passive", Delay: 800 * time.Millisecond},
		{Name: "AI Idiot", Scorer: "chaos", Delay: 2 * time.Second},
	}
}

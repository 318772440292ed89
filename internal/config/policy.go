package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RoyaltyPolicy carries the tunable knobs of the reporting pipeline:
// expected period lengths per reporting frequency and inbound match
// thresholds. It is hot-reloadable so a policy change never needs a restart.
type RoyaltyPolicy struct {
	FrequencyWindows []FrequencyWindow `mapstructure:"frequencyWindows"`
	Match            MatchPolicy       `mapstructure:"match"`
	DefaultCurrency  string            `mapstructure:"defaultCurrency"`
}

// FrequencyWindow is the accepted day-count band for one reporting frequency.
// Candidate periods outside [MinDays, MaxDays] draw a non-blocking warning;
// NominalDays drives the suggested corrected end date.
type FrequencyWindow struct {
	Frequency   string `mapstructure:"frequency"`
	MinDays     int    `mapstructure:"minDays"`
	MaxDays     int    `mapstructure:"maxDays"`
	NominalDays int    `mapstructure:"nominalDays"`
}

// MatchPolicy bounds the inbound match scorer.
type MatchPolicy struct {
	// MinNameLength is the shortest licensee-name token considered for
	// substring matching; shorter tokens produce too many false candidates.
	MinNameLength int `mapstructure:"minNameLength"`
	MaxCandidates int `mapstructure:"maxCandidates"`
}

func DefaultRoyaltyPolicy() RoyaltyPolicy {
	return RoyaltyPolicy{
		FrequencyWindows: []FrequencyWindow{
			{Frequency: "monthly", MinDays: 28, MaxDays: 31, NominalDays: 30},
			{Frequency: "quarterly", MinDays: 85, MaxDays: 95, NominalDays: 91},
			{Frequency: "semi_annual", MinDays: 175, MaxDays: 190, NominalDays: 182},
			{Frequency: "annual", MinDays: 360, MaxDays: 371, NominalDays: 365},
		},
		Match: MatchPolicy{
			MinNameLength: 4,
			MaxCandidates: 5,
		},
		DefaultCurrency: "USD",
	}
}

// Window returns the configured band for a reporting frequency.
func (p RoyaltyPolicy) Window(frequency string) (FrequencyWindow, bool) {
	frequency = strings.ToLower(strings.TrimSpace(frequency))
	for _, w := range p.FrequencyWindows {
		if w.Frequency == frequency {
			return w, true
		}
	}
	return FrequencyWindow{}, false
}

type PolicyHolder struct {
	current atomic.Value // holds RoyaltyPolicy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("royalty")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/regalia/config") // Volume-mounted config
	v.AddConfigPath("/etc/regalia")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("REGALIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultRoyaltyPolicy()
		v.SetDefault("royalty.frequencyWindows", defaults.FrequencyWindows)
		v.SetDefault("royalty.match", defaults.Match)
		v.SetDefault("royalty.defaultCurrency", defaults.DefaultCurrency)
	}

	var policy RoyaltyPolicy
	if err := v.UnmarshalKey("royalty", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RoyaltyPolicy
		if err := v.UnmarshalKey("royalty", &updated); err != nil {
			log.Printf("[royalty-policy] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[royalty-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[royalty-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder wraps a fixed policy with no file watching.
func NewStaticPolicyHolder(policy RoyaltyPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PolicyHolder) Get() RoyaltyPolicy {
	return h.current.Load().(RoyaltyPolicy)
}

func validatePolicy(policy RoyaltyPolicy) error {
	if len(policy.FrequencyWindows) == 0 {
		return errors.New("royalty.frequencyWindows cannot be empty")
	}
	for _, w := range policy.FrequencyWindows {
		if w.MinDays <= 0 || w.MaxDays < w.MinDays || w.NominalDays <= 0 {
			return errors.New("royalty.frequencyWindows entries must have 0 < minDays <= maxDays and nominalDays > 0")
		}
	}
	if policy.Match.MaxCandidates <= 0 {
		return errors.New("royalty.match.maxCandidates must be positive")
	}
	return nil
}

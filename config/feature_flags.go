package config

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// FeatureFlags manages feature toggles with percentage rollout.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100); users are bucketed by a hash of their ID.
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID string
}

// Predefined feature flag names.
const (
	// Create job_match notifications for qualified students.
	FeatureMatchNotifications = "matching.notifications"

	// Keep ranked lists in Redis.
	FeatureMatchCache = "matching.cache"

	// Broadcast domain events to other instances over Redis pub/sub.
	FeatureEventBroadcast = "events.broadcast"
)

// LoadFeatureFlags loads feature flags, applying FEATURE_* overrides from v.
func LoadFeatureFlags(v *viper.Viper) *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	if v != nil {
		ff.loadOverrides(v)
	}
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureMatchNotifications] = &Feature{
		Name:           FeatureMatchNotifications,
		Description:    "Notify qualified students about a newly posted job",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureMatchCache] = &Feature{
		Name:           FeatureMatchCache,
		Description:    "Cache ranked candidate lists in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureEventBroadcast] = &Feature{
		Name:           FeatureEventBroadcast,
		Description:    "Fan out domain events through Redis pub/sub",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadOverrides accepts "true"/"false" or a rollout percentage.
func (ff *FeatureFlags) loadOverrides(v *viper.Viper) {
	for name, feature := range ff.features {
		val := strings.TrimSpace(v.GetString(featureNameToEnvKey(name)))
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			feature.RolloutPercent = 0
			if b {
				feature.RolloutPercent = 100
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// matching.notifications -> FEATURE_MATCHING_NOTIFICATIONS
func featureNameToEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// IsEnabled reports whether the feature is on, optionally for a given user.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	if ff == nil {
		return false
	}

	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	return int(h.Sum32()%100) < percent
}

// SetEnabled toggles a feature at runtime.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return
	}
	feature.Enabled = enabled
	feature.RolloutPercent = 0
	if enabled {
		feature.RolloutPercent = 100
	}
}

package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Feature names recognized by the classifier.
const (
	FeatureSleepQuality     = "sleep_quality"
	FeatureAnxietyLevel     = "anxiety_level"
	FeatureSocialIsolation  = "social_isolation"
	FeatureStressLevel      = "stress_level"
	FeaturePhysicalHealth   = "physical_health"
	FeatureSubstanceUse     = "substance_use"
	FeatureSelfHarmThoughts = "self_harm_thoughts"

	FeatureConcentration  = "concentration"
	FeatureAppetiteChange = "appetite_change"
	FeatureEnergyLevel    = "energy_level"
	FeatureHopelessness   = "hopelessness"
	FeatureIrritability   = "irritability"
)

const (
	// MaxRawValue is the top of the raw response scale.
	MaxRawValue = 10.0

	// contributingThreshold applies to raw values, not normalized ones.
	contributingThreshold = 6.0
)

var coreFeatures = []string{
	FeatureSleepQuality,
	FeatureAnxietyLevel,
	FeatureSocialIsolation,
	FeatureStressLevel,
	FeaturePhysicalHealth,
	FeatureSubstanceUse,
	FeatureSelfHarmThoughts,
}

var extendedFeatures = []string{
	FeatureConcentration,
	FeatureAppetiteChange,
	FeatureEnergyLevel,
	FeatureHopelessness,
	FeatureIrritability,
}

// featureImportance orders contributing factors. Extended features carry no weight.
var featureImportance = map[string]float64{
	FeatureSleepQuality:     0.15,
	FeatureAnxietyLevel:     0.20,
	FeatureSocialIsolation:  0.18,
	FeatureStressLevel:      0.17,
	FeaturePhysicalHealth:   0.10,
	FeatureSubstanceUse:     0.12,
	FeatureSelfHarmThoughts: 0.08,
}

// CoreFeatures returns the default declared feature set.
func CoreFeatures() []string {
	return append([]string(nil), coreFeatures...)
}

// Vocabulary returns every recognized feature name, core first.
func Vocabulary() []string {
	out := make([]string, 0, len(coreFeatures)+len(extendedFeatures))
	out = append(out, coreFeatures...)
	return append(out, extendedFeatures...)
}

// IsFeature reports whether name belongs to the vocabulary.
func IsFeature(name string) bool {
	for _, f := range coreFeatures {
		if f == name {
			return true
		}
	}
	for _, f := range extendedFeatures {
		if f == name {
			return true
		}
	}
	return false
}

// Importance returns the weight used to order contributing factors.
func Importance(name string) float64 {
	return featureImportance[name]
}

// Responses holds raw questionnaire answers keyed by feature name.
type Responses map[string]interface{}

// ExtractionError reports a recognized feature whose value is not numeric.
type ExtractionError struct {
	Feature string
	Value   interface{}
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("feature %q has non-numeric value %v (%T)", e.Feature, e.Value, e.Value)
}

// FeatureVector holds raw values for every recognized feature.
// Missing features are present with value 0.
type FeatureVector struct {
	raw map[string]float64
}

// ExtractFeatures parses the recognized features out of responses.
// Unrecognized keys are ignored; nil values count as missing.
func ExtractFeatures(responses Responses) (FeatureVector, error) {
	raw := make(map[string]float64, len(coreFeatures)+len(extendedFeatures))
	for _, name := range Vocabulary() {
		value, ok := responses[name]
		if !ok || value == nil {
			raw[name] = 0
			continue
		}
		f, err := toFloat(value)
		if err != nil {
			return FeatureVector{}, &ExtractionError{Feature: name, Value: value}
		}
		raw[name] = f
	}
	return FeatureVector{raw: raw}, nil
}

// Raw returns the unnormalized value of a feature.
func (v FeatureVector) Raw(name string) float64 {
	return v.raw[name]
}

// Normalized returns clamp(raw/10, 0, 1) for a feature.
func (v FeatureVector) Normalized(name string) float64 {
	return clamp(v.raw[name], 0, MaxRawValue) / MaxRawValue
}

// Score is mean(normalized) * 100 over the given features, clamped to [0,100].
// It sums clamped raw values before dividing so boundary inputs score exactly.
func (v FeatureVector) Score(features []string) float64 {
	if len(features) == 0 {
		return 0
	}
	var sum float64
	for _, name := range features {
		sum += clamp(v.raw[name], 0, MaxRawValue)
	}
	score := sum * (100 / MaxRawValue) / float64(len(features))
	return clamp(score, 0, 100)
}

// ContributingFactors lists recognized features whose raw value exceeds 6,
// most important first, ties in vocabulary order.
func (v FeatureVector) ContributingFactors() []string {
	factors := make([]string, 0)
	for _, name := range Vocabulary() {
		if v.raw[name] > contributingThreshold {
			factors = append(factors, name)
		}
	}
	// insertion sort keeps vocabulary order among equal weights
	for i := 1; i < len(factors); i++ {
		for j := i; j > 0 && Importance(factors[j]) > Importance(factors[j-1]); j-- {
			factors[j], factors[j-1] = factors[j-1], factors[j]
		}
	}
	return factors
}

// RawScore averages every numeric response on the assumed 0-5 answer scale.
// Non-numeric values are skipped.
func RawScore(responses Responses) float64 {
	var total float64
	var count int
	for _, value := range responses {
		if _, isString := value.(string); isString {
			continue
		}
		f, err := toFloat(value)
		if err != nil {
			continue
		}
		total += f
		count++
	}
	if count == 0 {
		return 0
	}
	return total / (float64(count) * 5) * 100
}

func toFloat(value interface{}) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %v is not finite", f)
	}
	return f, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

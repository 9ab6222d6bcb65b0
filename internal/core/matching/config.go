package matching

import (
	"errors"
	"fmt"

	"github.com/kirillkom/findit/internal/core/domain"
)

// Admission, reason and display thresholds are separate ladders and must not
// be collapsed into one.
const (
	DefaultNoiseFloor     = 0.1
	DefaultAdmissionFloor = 0.20
	DefaultMaxMatches     = 10

	DefaultReasonExcellent = 0.8
	DefaultReasonGood      = 0.6
	DefaultReasonModerate  = 0.4
)

// Weights holds the fusion weight of every signal.
type Weights struct {
	Text     float64 `yaml:"text_similarity" json:"text_similarity"`
	Field    float64 `yaml:"field_similarity" json:"field_similarity"`
	Location float64 `yaml:"location_similarity" json:"location_similarity"`
	Temporal float64 `yaml:"temporal_similarity" json:"temporal_similarity"`
	Keyword  float64 `yaml:"keyword_overlap" json:"keyword_overlap"`
	Color    float64 `yaml:"color_similarity" json:"color_similarity"`
	Semantic float64 `yaml:"semantic_similarity" json:"semantic_similarity"`
}

func (w Weights) Of(signal domain.Signal) float64 {
	switch signal {
	case domain.SignalText:
		return w.Text
	case domain.SignalField:
		return w.Field
	case domain.SignalLocation:
		return w.Location
	case domain.SignalTemporal:
		return w.Temporal
	case domain.SignalKeyword:
		return w.Keyword
	case domain.SignalColor:
		return w.Color
	case domain.SignalSemantic:
		return w.Semantic
	default:
		return 0
	}
}

type ReasonBands struct {
	Excellent float64 `yaml:"excellent" json:"excellent"`
	Good      float64 `yaml:"good" json:"good"`
	Moderate  float64 `yaml:"moderate" json:"moderate"`
}

// Config is the full set of tunables for one Engine. It is copied into the
// engine at construction and never mutated afterwards.
type Config struct {
	Weights        Weights     `yaml:"weights" json:"weights"`
	NoiseFloor     float64     `yaml:"noise_floor" json:"noise_floor"`
	AdmissionFloor float64     `yaml:"admission_floor" json:"admission_floor"`
	ReasonBands    ReasonBands `yaml:"reason_bands" json:"reason_bands"`
	MaxMatches     int         `yaml:"max_matches" json:"max_matches"`
	// Workers bounds scoring concurrency; zero means GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Text:     0.30,
			Field:    0.20,
			Location: 0.15,
			Temporal: 0.05,
			Keyword:  0.10,
			Color:    0.10,
			Semantic: 0.10,
		},
		NoiseFloor:     DefaultNoiseFloor,
		AdmissionFloor: DefaultAdmissionFloor,
		ReasonBands: ReasonBands{
			Excellent: DefaultReasonExcellent,
			Good:      DefaultReasonGood,
			Moderate:  DefaultReasonModerate,
		},
		MaxMatches: DefaultMaxMatches,
	}
}

func (c Config) Validate() error {
	var errs []error
	total := 0.0
	for _, signal := range domain.Signals() {
		w := c.Weights.Of(signal)
		if w < 0 {
			errs = append(errs, fmt.Errorf("weight %s must be >= 0, got %v", signal, w))
		}
		total += w
	}
	if total <= 0 {
		errs = append(errs, errors.New("at least one signal weight must be positive"))
	}
	if c.NoiseFloor < 0 || c.NoiseFloor >= 1 {
		errs = append(errs, fmt.Errorf("noise_floor must be in [0,1), got %v", c.NoiseFloor))
	}
	if c.AdmissionFloor < 0 || c.AdmissionFloor > 1 {
		errs = append(errs, fmt.Errorf("admission_floor must be in [0,1], got %v", c.AdmissionFloor))
	}
	rb := c.ReasonBands
	if !(rb.Moderate <= rb.Good && rb.Good <= rb.Excellent) {
		errs = append(errs, fmt.Errorf("reason_bands must be ascending, got %+v", rb))
	}
	if c.MaxMatches <= 0 {
		errs = append(errs, fmt.Errorf("max_matches must be positive, got %d", c.MaxMatches))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if len(errs) > 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate matching config", errors.Join(errs...))
	}
	return nil
}

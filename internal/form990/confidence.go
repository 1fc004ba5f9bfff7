package form990

import (
	"fmt"
	"sort"
)

// sourceScores ranks extraction strategies by historical reliability.
var sourceScores = map[Source]float64{
	SourceTable:          1.0,
	SourceCoordinate:     0.8,
	SourceTextPattern:    0.7,
	SourceTextPatternOCR: 0.5,
	SourceOCR:            0.4,
	SourceNone:           0.0,
}

const unknownSourceScore = 0.3

// missingCriticalPenalty is subtracted from the document score per missing
// critical field.
const missingCriticalPenalty = 0.1

// Weights for the per-field confidence blend. They must sum to 1.
type Weights struct {
	ExtractionSource float64
	Validation       float64
	CrossValidation  float64
	OCRQuality       float64
}

// DefaultWeights mirrors the production calibration.
func DefaultWeights() Weights {
	return Weights{
		ExtractionSource: 0.40,
		Validation:       0.30,
		CrossValidation:  0.20,
		OCRQuality:       0.10,
	}
}

// DocumentScore is the scorer's verdict on a filing.
type DocumentScore struct {
	FieldConfidence  map[string]float64 `json:"field_confidence"`
	Overall          float64            `json:"overall"`
	Threshold        float64            `json:"threshold"`
	Passed           bool               `json:"passed"`
	MissingCritical  []string           `json:"missing_critical,omitempty"`
	WeakCritical     []string           `json:"weak_critical,omitempty"`
	RejectionReasons []string           `json:"rejection_reasons,omitempty"`
}

// Scorer computes calibrated per-field and per-document confidence.
type Scorer struct {
	weights          Weights
	productionThresh float64
	criticalThresh   float64
}

// NewScorer builds a scorer. productionThreshold gates document acceptance;
// criticalThreshold is the per-field floor for critical fields.
func NewScorer(weights Weights, productionThreshold, criticalThreshold float64) *Scorer {
	return &Scorer{
		weights:          weights,
		productionThresh: productionThreshold,
		criticalThresh:   criticalThreshold,
	}
}

// FieldConfidence blends a field's extraction source quality, its
// extraction-time validation confidence, the document's cross-validation
// adjustment, and OCR quality.
func (s *Scorer) FieldConfidence(f FieldValue, crossAdjustment, ocrQuality float64) float64 {
	if f.State == StateNotFound {
		return 0
	}

	srcScore, ok := sourceScores[f.Source]
	if !ok {
		srcScore = unknownSourceScore
	}

	validation := f.Confidence
	if len(f.Warnings) > 0 && validation > 0.5 {
		validation -= 0.1 * float64(len(f.Warnings))
		if validation < 0.5 {
			validation = 0.5
		}
	}

	conf := s.weights.ExtractionSource*srcScore +
		s.weights.Validation*validation +
		s.weights.CrossValidation*crossAdjustment +
		s.weights.OCRQuality*ocrQuality
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

// Score computes the document verdict from the extracted fields, the
// cross-validation report, and the document's OCR quality.
func (s *Scorer) Score(fields FieldSet, report *ValidationReport, ocrQuality float64) *DocumentScore {
	adjustment := 0.5
	if report != nil {
		adjustment = report.ConfidenceAdjustment
	}

	score := &DocumentScore{
		FieldConfidence: make(map[string]float64, len(fields)),
		Threshold:       s.productionThresh,
	}

	for name, f := range fields {
		score.FieldConfidence[name] = s.FieldConfidence(f, adjustment, ocrQuality)
	}

	var criticalSum float64
	var criticalCount int
	for _, name := range CriticalFields {
		f := fields.Get(name)
		if f.State == StateNotFound {
			score.MissingCritical = append(score.MissingCritical, name)
			continue
		}
		conf := score.FieldConfidence[name]
		criticalSum += conf
		criticalCount++
		if conf < s.criticalThresh {
			score.WeakCritical = append(score.WeakCritical, name)
		}
	}
	sort.Strings(score.MissingCritical)
	sort.Strings(score.WeakCritical)

	if criticalCount > 0 {
		score.Overall = criticalSum / float64(criticalCount)
	}
	score.Overall -= missingCriticalPenalty * float64(len(score.MissingCritical))
	if score.Overall < 0 {
		score.Overall = 0
	}

	if score.Overall < s.productionThresh {
		score.RejectionReasons = append(score.RejectionReasons,
			fmt.Sprintf("overall confidence %.2f below threshold %.2f", score.Overall, s.productionThresh))
	}
	for _, name := range score.MissingCritical {
		score.RejectionReasons = append(score.RejectionReasons,
			fmt.Sprintf("critical field %s not found", name))
	}
	for _, name := range score.WeakCritical {
		score.RejectionReasons = append(score.RejectionReasons,
			fmt.Sprintf("critical field %s below confidence floor %.2f", name, s.criticalThresh))
	}

	score.Passed = len(score.RejectionReasons) == 0
	return score
}

// Package risk turns questionnaire responses into a risk assessment.
//
// Scoring is a fixed heuristic over normalized feature averages:
//   - raw values on a 0-10 scale are clamped and normalized to [0,1]
//   - the mean over the declared feature set is scaled to a 0-100 score
//   - the score is bucketed into low, medium, high or critical
//
// Predictors report failures explicitly; the Classifier maps any failure to a
// fixed default result so callers always receive guidance.
package risk

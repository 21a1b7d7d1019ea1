package models

import "time"

// Prediction is one class returned by the inference endpoint, after
// client-side confidence filtering.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Guideline  string  `json:"guideline,omitempty"`
}

// ClassificationResult is what the waste module returns for one image.
type ClassificationResult struct {
	Predictions []Prediction `json:"predictions"`
	Threshold   float64      `json:"threshold"`
}

// Classification is a persisted record of one retained prediction.
type Classification struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CategoryTotal is an aggregate of classifications per waste category.
type CategoryTotal struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// DailyStat is one day's figures for one waste category: the recorded
// weight and the number of classified items, kept as distinct measures.
type DailyStat struct {
	Day     string  `json:"day"`
	Label   string  `json:"label"`
	TotalKg float64 `json:"totalKg"`
	Items   int     `json:"items"`
}

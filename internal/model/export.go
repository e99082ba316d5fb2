package model

import "time"

// ProgressExport is the document written by the export command.
type ProgressExport struct {
	Student    string       `json:"student,omitempty"`
	ExportedAt time.Time    `json:"exported_at"`
	Overall    OverallStats `json:"overall_stats"`
	Trend      string       `json:"trend"`
	Sessions   []Session    `json:"sessions"`
}

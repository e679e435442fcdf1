package dto

// DetectionFilters narrows history queries. Zero values mean "any".
type DetectionFilters struct {
	Session string
	Payload string
	Kind    string
	Limit   int
	Offset  int
}

// DetectionPage is the /api/detections response body.
type DetectionPage struct {
	Detections []DetectionInfo `json:"detections"`
	Total      int             `json:"total"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

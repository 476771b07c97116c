package models

// ScanResult summarizes one screenshot scan. Never persisted.
type ScanResult struct {
	NewImagesFound int    `json:"newImagesFound"`
	TotalPending   int    `json:"totalPending"`
	Success        bool   `json:"success"`
	Message        string `json:"message"`
}

// ProcessingResult summarizes one batch OCR pass. Never persisted.
type ProcessingResult struct {
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

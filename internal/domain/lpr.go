package domain

// LPRRequestDTO carries a base64 encoded camera frame.
type LPRRequestDTO struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
}

type LPRResponseDTO struct {
	PlateNumber string  `json:"plateNumber"`
	Confidence  float32 `json:"confidence,omitempty"`
}

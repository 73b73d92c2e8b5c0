package models

// Query parameters of the read-only HTTP endpoints.

type AccuracyRequest struct {
	From    string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To      string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Horizon int    `query:"horizon" json:"horizon" default:"1" validate:"gte=1,lte=14"`
	Scope   string `query:"scope" json:"scope" validate:"omitempty,oneof=imminent actionable directional"`
}

type PredictionsRequest struct {
	Date      string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
	Direction string `query:"direction" json:"direction" validate:"omitempty,oneof=rise fall none"`
	Alert     string `query:"alert" json:"alert" validate:"omitempty,oneof=none warming imminent"`
	Limit     int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=2000"`
}

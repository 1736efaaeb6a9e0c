package model

import "portfoliocms/store"

type SectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type ItemResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Item    store.Item `json:"item"`
}

type RestoreResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    store.Document `json:"data"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Engine    string `json:"engine"`
	Timestamp string `json:"timestamp"`
}

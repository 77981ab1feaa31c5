package domain

import "time"

type Translation struct {
	ID           int64     `json:"id"`
	UnitID       int64     `json:"unit_id"`
	Locale       string    `json:"locale"`
	Text         string    `json:"text"`
	NumerusForms []string  `json:"numerus_forms"`
	Status       Status    `json:"status"`
	ProviderID   *int64    `json:"provider_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

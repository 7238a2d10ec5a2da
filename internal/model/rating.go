package model

import (
	"github.com/lib/pq"
)

type ProviderRating struct {
	ID          string         `db:"id"`
	ProviderID  string         `db:"provider_id"`
	Name        string         `db:"name"`
	Logo        *string        `db:"logo"`
	Color       *string        `db:"color"`
	Rating      float64        `db:"rating"`
	Reviews     int            `db:"reviews"`
	Description *string        `db:"description"`
	Status      *string        `db:"status"`
	Pros        pq.StringArray `db:"pros"`
	Cons        pq.StringArray `db:"cons"`
}

type LLMModel struct {
	ID            string  `db:"id"`
	ProviderID    string  `db:"provider_id"`
	Name          string  `db:"name"`
	InputPrice    float64 `db:"input_price"`
	OutputPrice   float64 `db:"output_price"`
	ContextWindow *string `db:"context_window"`
	Speed         *string `db:"speed"`
	Quality       *string `db:"quality"`
	BestFor       *string `db:"best_for"`
	BestDeal      bool    `db:"best_deal"`
}

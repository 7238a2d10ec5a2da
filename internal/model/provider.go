package model

import (
	"time"
)

type ProviderConnection struct {
	ID              string           `db:"id" json:"id"`
	TeamID          string           `db:"team_id" json:"team_id"`
	ProviderName    ProviderName     `db:"provider_name" json:"provider_name"`
	APIKeyEncrypted string           `db:"api_key_encrypted" json:"-"`
	Status          ConnectionStatus `db:"status" json:"status"`
	LastSync        *time.Time       `db:"last_sync" json:"last_sync"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

type CreateProviderConnectionParams struct {
	TeamID          string
	ProviderName    ProviderName
	APIKeyEncrypted string
}

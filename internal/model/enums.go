package model

type TeamRole string

const (
	RoleOwner  TeamRole = "owner"
	RoleAdmin  TeamRole = "admin"
	RoleMember TeamRole = "member"
)

// IsAdmin reports whether the role may perform team-admin operations.
func (r TeamRole) IsAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}

type MemberStatus string

const (
	MemberStatusActive  MemberStatus = "active"
	MemberStatusPending MemberStatus = "pending"
)

type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderAzure     ProviderName = "azure"
	ProviderGitHub    ProviderName = "github"
	ProviderVercel    ProviderName = "vercel"
	ProviderAWS       ProviderName = "aws"
	ProviderGoogle    ProviderName = "google"
)

// SupportedProviders lists the provider names accepted by connect.
var SupportedProviders = []string{
	string(ProviderOpenAI),
	string(ProviderAnthropic),
	string(ProviderAzure),
	string(ProviderGitHub),
	string(ProviderVercel),
	string(ProviderAWS),
	string(ProviderGoogle),
}

type ConnectionStatus string

const (
	ConnectionStatusActive ConnectionStatus = "active"
	ConnectionStatusError  ConnectionStatus = "error"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

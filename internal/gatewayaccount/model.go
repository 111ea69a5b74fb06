// Package gatewayaccount holds the provider/credential binding used to route
// a charge's gateway operations. Accounts are read-only from the core's
// perspective.
package gatewayaccount

import "time"

// Environment values for an account.
const (
	EnvironmentTest = "test"
	EnvironmentLive = "live"
)

// Well-known credential keys. The credential bag is opaque to the core; each
// provider adapter knows which keys it needs.
const (
	CredentialMerchantID               = "merchant_id"
	CredentialUsername                 = "username"
	CredentialPassword                 = "password"
	CredentialShaInPassphrase          = "sha_in_passphrase"
	CredentialNotificationUsername     = "notification_username"
	CredentialNotificationPasswordHash = "notification_password_hash"
)

// Account binds a provider name and environment to its credential bag.
type Account struct {
	ID          int64
	Provider    string
	Environment string
	Credentials map[string]string
	CreatedAt   time.Time
}

// Credential returns the named credential or the empty string.
func (a Account) Credential(key string) string {
	return a.Credentials[key]
}

// IsLive reports whether the account points at a live provider endpoint.
func (a Account) IsLive() bool {
	return a.Environment == EnvironmentLive
}

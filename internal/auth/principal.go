package auth

// Method indicates which credential type produced a principal.
type Method string

const (
	MethodToken Method = "token"
	MethodKey   Method = "key"
)

// Principal is the resolved identity and privilege set attached to a
// single authenticated request. It is created per request and never
// persisted or shared.
type Principal struct {
	UserID         string   `json:"user_id"`
	Role           string   `json:"role"`
	Scopes         ScopeSet `json:"-"`
	OrganizationID string   `json:"organization_id,omitempty"`
	Email          string   `json:"email,omitempty"`
	Username       string   `json:"username,omitempty"`
	Confirmed      bool     `json:"confirmed"`
	Blocked        bool     `json:"blocked"`
	Method         Method   `json:"auth_method"`
	DevBypass      bool     `json:"is_dev,omitempty"`
	APIKeyID       string   `json:"api_key_id,omitempty"`
}

// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecurityAccess                       // Any valid access token
	SecurityOfficer                      // Access token with the officer role
	SecurityAdmin                        // Access token with the admin role
)

// EndpointSecurityConfig maps HTTP route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Operational - Public
	"healthz": SecurityPublic,
	"metrics": SecurityPublic,

	// Zones - Public
	"zones.list":         SecurityPublic,
	"zones.availability": SecurityPublic,

	// Sessions - Access Protected
	"sessions.start":         SecurityAccess,
	"sessions.extend":        SecurityAccess,
	"sessions.end":           SecurityAccess,
	"sessions.cancel":        SecurityAccess,
	"sessions.list":          SecurityAccess,
	"sessions.get":           SecurityAccess,
	"vehicles.activeSession": SecurityAccess,

	// Reservations - Access Protected
	"reservations.create":  SecurityAccess,
	"reservations.confirm": SecurityAccess,
	"reservations.cancel":  SecurityAccess,
	"reservations.list":    SecurityAccess,

	// Wallet - Access Protected
	"wallet.get":       SecurityAccess,
	"wallet.reconcile": SecurityAccess,
	"wallet.topup":     SecurityAdmin,

	// Violations
	"violations.list":  SecurityAccess,
	"violations.issue": SecurityOfficer,

	// Notifications - Access Protected
	"notifications.list": SecurityAccess,
	"notifications.read": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}

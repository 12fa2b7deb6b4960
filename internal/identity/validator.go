package identity

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "github.com/cerberus100/Telehealthcrm-sub001/pkg/domain-errors"
)

// tokenClaims is the JWT claim set carried by access tokens.
type tokenClaims struct {
	OrgID        string   `json:"org_id"`
	Role         string   `json:"role"`
	PurposeOfUse string   `json:"purpose_of_use,omitempty"`
	Groups       []string `json:"groups,omitempty"`
	MFAEnabled   bool     `json:"mfa_enabled,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies bearer credentials and extracts identity attributes.
// In the default configuration it verifies an HS256 signature against the
// configured issuer and audience. When demo mode is enabled it additionally
// accepts structured mock tokens (mock_<role>_<org>_<user>) so the pipeline
// can be exercised without a real identity provider. Everything else fails
// closed with an unauthorized error.
type Validator struct {
	signingKey []byte
	issuer     string
	audience   string
	demoMode   bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithDemoMode enables mock-token acceptance. Never enable in production.
func WithDemoMode(enabled bool) Option {
	return func(v *Validator) {
		v.demoMode = enabled
	}
}

// NewValidator constructs a Validator for the given key, issuer, and audience.
func NewValidator(signingKey, issuer, audience string, opts ...Option) *Validator {
	v := &Validator{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

const mockTokenPrefix = "mock_"

// ValidateToken verifies a bearer credential and returns the caller's claims.
func (v *Validator) ValidateToken(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "missing credential")
	}

	if v.demoMode && strings.HasPrefix(tokenString, mockTokenPrefix) {
		return v.validateMockToken(tokenString)
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	},
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claimsFromToken(tc)
}

func claimsFromToken(tc *tokenClaims) (Claims, error) {
	if tc.Subject == "" {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "token missing subject")
	}
	if tc.OrgID == "" {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "token missing org_id")
	}
	role, err := ParseRole(tc.Role)
	if err != nil {
		return Claims{}, err
	}
	return Claims{
		Subject:      tc.Subject,
		OrgID:        tc.OrgID,
		Role:         role,
		PurposeOfUse: tc.PurposeOfUse,
		Groups:       tc.Groups,
		MFAEnabled:   tc.MFAEnabled,
	}, nil
}

// validateMockToken parses the positional demo format mock_<role>_<org>_<user>.
// Role names containing underscores are supported by matching against the
// role enum greedily from the left.
func (v *Validator) validateMockToken(tokenString string) (Claims, error) {
	rest := strings.TrimPrefix(tokenString, mockTokenPrefix)

	role, rest, ok := splitMockRole(rest)
	if !ok {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "malformed mock token")
	}

	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Claims{}, dErrors.New(dErrors.CodeUnauthorized, "malformed mock token")
	}

	return Claims{
		Subject: parts[1],
		OrgID:   parts[0],
		Role:    role,
	}, nil
}

// splitMockRole peels a valid role off the front of a mock token body.
// Longer role names are tried first so SUPER_ADMIN wins over a hypothetical
// SUPER prefix.
func splitMockRole(s string) (Role, string, bool) {
	roles := []Role{
		RoleMarketerAdmin, RoleSuperAdmin, RoleOrgAdmin, RolePharmacist,
		RoleLabTech, RoleMarketer, RoleAuditor, RoleSupport, RoleDoctor,
		RoleAdmin,
	}
	upper := strings.ToUpper(s)
	for _, role := range roles {
		prefix := string(role) + "_"
		if strings.HasPrefix(upper, prefix) {
			return role, s[len(prefix):], true
		}
	}
	return "", "", false
}

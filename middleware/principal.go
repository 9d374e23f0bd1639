package middleware

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Dosada05/team-space/models"
)

const (
	ClientPrincipalHeader = "X-MS-CLIENT-PRINCIPAL"

	emailClaimType = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	nameClaimType  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
)

type clientPrincipal struct {
	UserID           string `json:"userId"`
	UserDetails      string `json:"userDetails"`
	IdentityProvider string `json:"identityProvider"`
	Claims           []struct {
		Typ string `json:"typ"`
		Val string `json:"val"`
	} `json:"claims"`
}

// ClientPrincipalResolver reads the base64 JSON principal injected by the
// hosting platform's authentication proxy. In dev mode a missing or broken
// header resolves to a fixed development user.
type ClientPrincipalResolver struct {
	devMode bool
}

func NewClientPrincipalResolver(devMode bool) *ClientPrincipalResolver {
	return &ClientPrincipalResolver{devMode: devMode}
}

func (p *ClientPrincipalResolver) Resolve(r *http.Request) (*models.Identity, error) {
	header := r.Header.Get(ClientPrincipalHeader)
	if header == "" {
		if p.devMode {
			return developmentIdentity(), nil
		}
		return nil, ErrNoCredentials
	}

	identity, err := decodeClientPrincipal(header)
	if err != nil {
		if p.devMode {
			return developmentIdentity(), nil
		}
		return nil, err
	}
	return identity, nil
}

func decodeClientPrincipal(header string) (*models.Identity, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("%w: principal is not valid base64: %v", ErrInvalidCredentials, err)
	}

	var principal clientPrincipal
	if err := json.Unmarshal(raw, &principal); err != nil {
		return nil, fmt.Errorf("%w: principal is not valid JSON: %v", ErrInvalidCredentials, err)
	}
	if principal.UserID == "" {
		return nil, fmt.Errorf("%w: principal has no userId", ErrInvalidCredentials)
	}

	claims := make(map[string]string, len(principal.Claims)+1)
	for _, c := range principal.Claims {
		if _, seen := claims[c.Typ]; !seen {
			claims[c.Typ] = c.Val
		}
	}
	if principal.IdentityProvider != "" {
		claims["identity_provider"] = principal.IdentityProvider
	}

	return &models.Identity{
		UserID:      principal.UserID,
		DisplayName: principal.UserDetails,
		Email:       claims[emailClaimType],
		Claims:      claims,
	}, nil
}

func developmentIdentity() *models.Identity {
	return &models.Identity{
		UserID:      "dev-user-123",
		DisplayName: "Development User",
		Email:       "dev@example.com",
		Claims: map[string]string{
			emailClaimType:      "dev@example.com",
			nameClaimType:       "Development User",
			"identity_provider": "google",
		},
	}
}

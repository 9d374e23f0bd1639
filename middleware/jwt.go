package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Dosada05/team-space/models"
	"github.com/golang-jwt/jwt/v4"
)

// Имена JWT claims
const (
	jwtClaimUserID = "user_id"
	jwtClaimName   = "name"
	jwtClaimEmail  = "email"
)

// JWTResolver accepts HS256 bearer tokens carrying user_id, name and email claims.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (j *JWTResolver) Resolve(r *http.Request) (*models.Identity, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	userID, err := stringClaim(claims, jwtClaimUserID)
	if err != nil {
		return nil, err
	}
	// name и email необязательны
	name, _ := claims[jwtClaimName].(string)
	email, _ := claims[jwtClaimEmail].(string)

	return &models.Identity{
		UserID:      userID,
		DisplayName: name,
		Email:       email,
		Claims:      flattenClaims(claims),
	}, nil
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		// WebSocket-клиенты передают токен в query
		if t := r.URL.Query().Get("access_token"); t != "" {
			return t, nil
		}
		return "", ErrNoCredentials
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrInvalidCredentials)
	}
	return parts[1], nil
}

func stringClaim(claims jwt.MapClaims, name string) (string, error) {
	raw, ok := claims[name]
	if !ok {
		return "", fmt.Errorf("%w: missing '%s' claim in token", ErrInvalidCredentials, name)
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("%w: empty '%s' claim", ErrInvalidCredentials, name)
		}
		return v, nil
	case float64:
		if v != float64(int64(v)) || v <= 0 {
			return "", fmt.Errorf("%w: invalid '%s' claim: %v", ErrInvalidCredentials, name, v)
		}
		return fmt.Sprintf("%d", int64(v)), nil
	default:
		return "", fmt.Errorf("%w: invalid type for '%s' claim: %T", ErrInvalidCredentials, name, raw)
	}
}

func flattenClaims(claims jwt.MapClaims) map[string]string {
	result := make(map[string]string, len(claims))
	for k, v := range claims {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}

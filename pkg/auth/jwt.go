package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the access token payload issued by the identity service.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"org_id"`
	Role           string `json:"role"`
	StaffID        string `json:"staff_id,omitempty"`
	PatientID      string `json:"patient_id,omitempty"`
}

type JWTService interface {
	GenerateAccessToken(p model.Principal, ttl time.Duration) (string, error)
	ValidateToken(token string) (model.Principal, error)
}

type jwtService struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTService verifies HS256 tokens. Issuer and audience are only checked
// when configured.
func NewJWTService(secret, issuer, audience string) JWTService {
	return &jwtService{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (s *jwtService) GenerateAccessToken(p model.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		OrganizationID: p.OrganizationID.String(),
		Role:           string(p.Role),
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	if p.StaffID != nil {
		claims.StaffID = p.StaffID.String()
	}
	if p.PatientID != nil {
		claims.PatientID = p.PatientID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(tokenStr string) (model.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return model.Principal{}, errors.Join(ErrInvalidToken, err)
	}

	return claims.principal()
}

func (c *Claims) principal() (model.Principal, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	orgID, err := uuid.Parse(c.OrganizationID)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: bad org_id", ErrInvalidToken)
	}

	p := model.Principal{UserID: userID, OrganizationID: orgID, Role: model.Role(c.Role)}
	switch p.Role {
	case model.RoleAdmin, model.RoleStaff, model.RoleProvider, model.RolePatient:
	default:
		return model.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role)
	}

	if c.StaffID != "" {
		id, err := uuid.Parse(c.StaffID)
		if err != nil {
			return model.Principal{}, fmt.Errorf("%w: bad staff_id", ErrInvalidToken)
		}
		p.StaffID = &id
	}
	if c.PatientID != "" {
		id, err := uuid.Parse(c.PatientID)
		if err != nil {
			return model.Principal{}, fmt.Errorf("%w: bad patient_id", ErrInvalidToken)
		}
		p.PatientID = &id
	}
	return p, nil
}

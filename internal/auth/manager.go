package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	// ErrRoleMismatch is returned when a token's role claim does not match the
	// verifying manager's partition. A structurally valid token from another
	// partition is still rejected here.
	ErrRoleMismatch = errors.New("token role does not match partition")
)

// Identity is what a provider returns on a successful credential check and
// what ends up embedded in the session token.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Claims struct {
	UserID string `json:"sub"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

// Manager mints and verifies session tokens for exactly one partition.
type Manager struct {
	secret    []byte
	partition Partition
	ttl       time.Duration
	updateAge time.Duration // sliding re-issue threshold; zero disables it
}

func NewManager(secret string, partition Partition, ttl, updateAge time.Duration) *Manager {
	return &Manager{
		secret:    []byte(secret),
		partition: partition,
		ttl:       ttl,
		updateAge: updateAge,
	}
}

func (m *Manager) Partition() Partition { return m.partition }

func (m *Manager) CookieName() string { return m.partition.CookieName() }

func (m *Manager) TTL() time.Duration { return m.ttl }

// Mint signs a session token for the identity. The role claim is forced to
// the partition's role; whatever the caller put in identity.Role is ignored.
func (m *Manager) Mint(identity Identity) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		UserID: identity.ID,
		Name:   identity.Name,
		Email:  identity.Email,
		Role:   m.partition.Role(),
		JTI:    uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   identity.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)

	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify checks signature and expiry, then pins the role claim to this
// manager's partition. The role is trusted as minted, it is never re-derived
// from the underlying record, so a role/record change only takes effect once
// the token is reissued.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Role != m.partition.Role() {
		return nil, ErrRoleMismatch
	}

	return claims, nil
}

// NeedsRefresh reports whether a verified token is old enough for a sliding
// re-issue (member sessions refresh on activity, the others never do).
func (m *Manager) NeedsRefresh(claims *Claims) bool {
	if m.updateAge <= 0 || claims.IssuedAt == nil {
		return false
	}

	return time.Since(claims.IssuedAt.Time) >= m.updateAge
}

// Session projects the claims back into the identity shape handlers consume.
// Invariant: Session(Verify(Mint(i))).Role == partition role, always.
func (c *Claims) Session() Identity {
	return Identity{
		ID:    c.UserID,
		Name:  c.Name,
		Email: c.Email,
		Role:  c.Role,
	}
}

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/saarfitness/gymhub/internal/security"
)

// ErrInvalidCredentials covers unknown email, inactive account and bad
// password alike, so login responses never reveal which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credential is the minimal record a provider needs to verify a login.
type Credential struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
}

// CredentialSource looks up a credential inside exactly one partition.
// Implementations must never consult another partition's store.
type CredentialSource interface {
	Credential(ctx context.Context, email string) (Credential, error)
}

// Provider verifies (email, password) against one partition and produces the
// identity to embed in that partition's session token. There is no role
// parameter anywhere: the partition was chosen at construction and the role
// claim is derived from it, never from client input.
type Provider struct {
	partition Partition
	source    CredentialSource
}

func NewProvider(partition Partition, source CredentialSource) *Provider {
	return &Provider{
		partition: partition,
		source:    source,
	}
}

func (p *Provider) Partition() Partition { return p.partition }

func (p *Provider) Authorize(ctx context.Context, email, password string) (Identity, error) {
	// accounts are stored lowercased; match however the user typed it
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	cred, err := p.source.Credential(ctx, email)

	if err != nil {
		// run the compare anyway so a missing account costs the same as a
		// wrong password
		_ = security.CheckPassword("$2a$10$0000000000000000000000000000000000000000000000000000", password)
		return Identity{}, ErrInvalidCredentials
	}

	if !cred.Active || cred.PasswordHash == "" {
		return Identity{}, ErrInvalidCredentials
	}

	err = security.CheckPassword(cred.PasswordHash, password)

	if err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{
		ID:    cred.ID,
		Name:  cred.Name,
		Email: cred.Email,
		Role:  p.partition.Role(),
	}, nil
}

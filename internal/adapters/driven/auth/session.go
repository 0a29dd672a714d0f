package auth

import (
	"github.com/custodia-labs/intunesync/internal/adapters/driven/graph"
	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
)

// Ensure session implements the interface.
var _ driven.Session = (*session)(nil)

// session binds a Graph client to the identity it was acquired for.
type session struct {
	client    *graph.Client
	principal string
	method    domain.AuthMethod
	roles     []string
}

func (s *session) Client() driven.DeviceClient { return s.client }
func (s *session) Principal() string           { return s.principal }
func (s *session) Method() domain.AuthMethod   { return s.method }

func (s *session) Roles() []string {
	out := make([]string, len(s.roles))
	copy(out, s.roles)
	return out
}

// Close releases the client's connections. It is safe to call more than once.
func (s *session) Close() error {
	return s.client.Close()
}

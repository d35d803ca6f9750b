package connection

import "github.com/yndnr/tunnelmgr/internal/core/domain"

func newDef(password *string) *domain.TunnelDefinition {
	return &domain.TunnelDefinition{
		ID:             1,
		Name:           "test",
		Username:       "deploy",
		Hostname:       "ssh.internal",
		LocalPort:      8080,
		RemotePort:     80,
		Credential:     domain.PasswordAuth{SavedPassword: password},
		TimeoutSeconds: 5,
	}
}

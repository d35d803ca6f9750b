package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
)

// record is the durable shape of one tunnel definition.
type record struct {
	ID            uint64  `json:"id"`
	Name          string  `json:"name"`
	Username      string  `json:"username"`
	Hostname      string  `json:"hostname"`
	LocalPort     uint16  `json:"local_port"`
	RemotePort    uint16  `json:"remote_port"`
	UseKeyAuth    bool    `json:"use_key_auth"`
	KeyPath       *string `json:"key_path,omitempty"`
	Timeout       int     `json:"timeout"`
	AutoConnect   bool    `json:"auto_connect"`
	SavedPassword *string `json:"saved_password,omitempty"`
}

func recordFromDomain(d *domain.TunnelDefinition) record {
	r := record{
		ID:          d.ID,
		Name:        d.Name,
		Username:    d.Username,
		Hostname:    d.Hostname,
		LocalPort:   d.LocalPort,
		RemotePort:  d.RemotePort,
		Timeout:     d.TimeoutSeconds,
		AutoConnect: d.AutoConnect,
	}
	if r.Timeout <= 0 {
		r.Timeout = domain.DefaultTimeoutSeconds
	}
	switch c := d.Credential.(type) {
	case domain.KeyAuth:
		r.UseKeyAuth = true
		if c.HasKeyPath() {
			p := c.KeyPath
			r.KeyPath = &p
		}
	case domain.PasswordAuth:
		if pw, ok := c.Saved(); ok {
			r.SavedPassword = &pw
		}
	}
	return r
}

func (r record) toDomain(logger *slog.Logger) *domain.TunnelDefinition {
	d := &domain.TunnelDefinition{
		ID:             r.ID,
		Name:           r.Name,
		Username:       r.Username,
		Hostname:       r.Hostname,
		LocalPort:      r.LocalPort,
		RemotePort:     r.RemotePort,
		TimeoutSeconds: r.Timeout,
		AutoConnect:    r.AutoConnect,
	}
	if d.TimeoutSeconds <= 0 {
		d.TimeoutSeconds = domain.DefaultTimeoutSeconds
	}
	if r.UseKeyAuth {
		var k domain.KeyAuth
		if r.KeyPath != nil {
			k.KeyPath = *r.KeyPath
		}
		d.Credential = k
		if r.SavedPassword != nil && logger != nil {
			logger.Warn("dropping saved password from key-auth tunnel", "tunnel_id", r.ID)
		}
		return d
	}
	var p domain.PasswordAuth
	if r.SavedPassword != nil {
		v := *r.SavedPassword
		p.SavedPassword = &v
	}
	d.Credential = p
	return d
}

// Decode parses a registry blob.
//
// Missing optional fields take their defaults. An empty or null document is
// an empty registry. Anything else that does not parse, or a record whose id
// disagrees with its key, yields ErrCorruptStore.
func Decode(data []byte, logger *slog.Logger) (map[uint64]*domain.TunnelDefinition, error) {
	out := make(map[uint64]*domain.TunnelDefinition)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, domain.ErrCorruptStore.WithCause(err)
	}

	for key, msg := range raw {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, domain.ErrCorruptStore.WithDetailsf("invalid key %q", key)
		}

		rec := record{Timeout: domain.DefaultTimeoutSeconds}
		if err := json.Unmarshal(msg, &rec); err != nil {
			return nil, domain.ErrCorruptStore.WithDetailsf("record %s", key).WithCause(err)
		}
		if rec.ID != id {
			return nil, domain.ErrCorruptStore.WithDetailsf("record under key %s has id %d", key, rec.ID)
		}
		out[id] = rec.toDomain(logger)
	}
	return out, nil
}

// Encode serialises a registry. indent selects the human-readable form
// used for export.
func Encode(defs map[uint64]*domain.TunnelDefinition, indent bool) ([]byte, error) {
	recs := make(map[string]record, len(defs))
	for id, d := range defs {
		if d == nil {
			continue
		}
		if d.ID != id {
			return nil, fmt.Errorf("storage: tunnel under id %d carries id %d", id, d.ID)
		}
		recs[strconv.FormatUint(id, 10)] = recordFromDomain(d)
	}
	if indent {
		return json.MarshalIndent(recs, "", "  ")
	}
	return json.Marshal(recs)
}

// countRecords reports how many top-level entries a blob holds, or -1 when
// it does not parse.
func countRecords(data []byte) int {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return -1
	}
	return len(raw)
}

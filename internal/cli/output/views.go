package output

import (
	"time"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/core/service"
	"github.com/yndnr/tunnelmgr/internal/storage/snapshot"
)

// TunnelView is the display form of a tunnel definition. It never carries
// a saved password, only whether one exists.
type TunnelView struct {
	ID            uint64 `json:"id" yaml:"id" table:"ID"`
	Name          string `json:"name" yaml:"name" table:"NAME"`
	Username      string `json:"username" yaml:"username" table:"USER"`
	Hostname      string `json:"hostname" yaml:"hostname" table:"HOST"`
	LocalPort     uint16 `json:"local_port" yaml:"local_port" table:"LOCAL"`
	RemotePort    uint16 `json:"remote_port" yaml:"remote_port" table:"REMOTE"`
	Auth          string `json:"auth" yaml:"auth" table:"AUTH"`
	KeyPath       string `json:"key_path,omitempty" yaml:"key_path,omitempty" table:"KEY,wide"`
	SavedPassword bool   `json:"saved_password" yaml:"saved_password" table:"SAVED PW,wide"`
	Timeout       int    `json:"timeout" yaml:"timeout" table:"TIMEOUT,wide"`
	AutoConnect   bool   `json:"auto_connect" yaml:"auto_connect" table:"AUTO"`
}

// NewTunnelView converts def for display.
func NewTunnelView(def *domain.TunnelDefinition) TunnelView {
	v := TunnelView{
		ID:          def.ID,
		Name:        def.Name,
		Username:    def.Username,
		Hostname:    def.Hostname,
		LocalPort:   def.LocalPort,
		RemotePort:  def.RemotePort,
		Timeout:     int(def.EffectiveTimeout() / time.Second),
		AutoConnect: def.AutoConnect,
	}
	switch c := def.Credential.(type) {
	case domain.KeyAuth:
		v.Auth = c.Kind()
		v.KeyPath = c.KeyPath
	case domain.PasswordAuth:
		v.Auth = c.Kind()
		_, v.SavedPassword = c.Saved()
	}
	return v
}

// TunnelViews converts defs for display, keeping their order.
func TunnelViews(defs []*domain.TunnelDefinition) []TunnelView {
	out := make([]TunnelView, 0, len(defs))
	for _, d := range defs {
		out = append(out, NewTunnelView(d))
	}
	return out
}

// OutcomeView is the display form of a connection attempt outcome.
type OutcomeView struct {
	AttemptID string        `json:"attempt_id" yaml:"attempt_id" table:"ATTEMPT,wide"`
	TunnelID  uint64        `json:"tunnel_id" yaml:"tunnel_id" table:"ID"`
	Name      string        `json:"name" yaml:"name" table:"NAME"`
	Hostname  string        `json:"hostname" yaml:"hostname" table:"HOST"`
	Result    string        `json:"result" yaml:"result" table:"RESULT"`
	FailedIn  string        `json:"failed_in,omitempty" yaml:"failed_in,omitempty" table:"STAGE"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty" table:"ERROR"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration" table:"TIME,wide"`
}

// NewOutcomeView converts o for display.
func NewOutcomeView(o service.Outcome) OutcomeView {
	v := OutcomeView{
		AttemptID: o.AttemptID,
		TunnelID:  o.TunnelID,
		Name:      o.Name,
		Hostname:  o.Hostname,
		Result:    o.Label(),
		Duration:  o.Duration,
	}
	if !o.Succeeded() {
		v.FailedIn = o.FailedIn.String()
		if o.Err != nil {
			v.Error = o.Err.Error()
		}
	}
	return v
}

// OutcomeViews converts outcomes for display.
func OutcomeViews(outcomes []service.Outcome) []OutcomeView {
	out := make([]OutcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, NewOutcomeView(o))
	}
	return out
}

// BackupView is the display form of a registry backup.
type BackupView struct {
	ID        string    `json:"id" yaml:"id" table:"ID"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" table:"CREATED"`
	Tunnels   int       `json:"tunnels" yaml:"tunnels" table:"TUNNELS"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty" table:"REASON"`
	Size      int64     `json:"size" yaml:"size" table:"BYTES,wide"`
	Valid     bool      `json:"valid" yaml:"valid" table:"VALID"`
	Path      string    `json:"path" yaml:"path" table:"PATH,wide"`
}

// BackupViews converts backup listings for display, newest first.
func BackupViews(infos []*snapshot.Info) []BackupView {
	out := make([]BackupView, 0, len(infos))
	for i := len(infos) - 1; i >= 0; i-- {
		info := infos[i]
		v := BackupView{
			ID:      info.ID,
			Tunnels: info.TunnelCount,
			Reason:  info.Reason,
			Size:    info.Size,
			Valid:   info.Checksum != "",
			Path:    info.Path,
		}
		if info.CreatedAt > 0 {
			v.CreatedAt = time.UnixMilli(info.CreatedAt)
		}
		out = append(out, v)
	}
	return out
}

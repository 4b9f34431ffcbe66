package binder

import (
	"time"

	"github.com/enginecore/enginecore/internal/dynlib"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/google/uuid"
)

type Mode int

const (
	Embedded Mode = iota
	Dynamic
)

func (m Mode) String() string {
	if m == Dynamic {
		return "dynamic"
	}
	return "embedded"
}

type State int

const (
	Unbound State = iota
	Loading
	Bound
	Unbinding
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Bound:
		return "bound"
	case Unbinding:
		return "unbinding"
	default:
		return "unbound"
	}
}

// Binding is one backend attached to one service. A dynamic binding owns
// its library handle until it is unbound.
type Binding struct {
	ID      uuid.UUID
	Service service.ID
	Mode    Mode
	// Shadow marks a library loaded under a caller-chosen name, such as the
	// application payload bound to Main.
	Shadow  bool
	Library string
	Path    string
	Created time.Time

	handle dynlib.Handle
	regs   []*service.Registration
	state  State
}

func (b *Binding) State() State { return b.state }

func (b *Binding) Registrations() []*service.Registration {
	return append([]*service.Registration(nil), b.regs...)
}

// Info is a read-only view of a binding.
type Info struct {
	ID       string     `json:"id"`
	Service  service.ID `json:"service"`
	Mode     string     `json:"mode"`
	Shadow   bool       `json:"shadow,omitempty"`
	Library  string     `json:"library"`
	Path     string     `json:"path,omitempty"`
	State    string     `json:"state"`
	Current  bool       `json:"current"`
	Services []string   `json:"services"`
	Created  time.Time  `json:"created"`
}

func (b *Binding) info(current bool) Info {
	in := Info{
		ID:      b.ID.String(),
		Service: b.Service,
		Mode:    b.Mode.String(),
		Shadow:  b.Shadow,
		Library: b.Library,
		Path:    b.Path,
		State:   b.state.String(),
		Current: current,
		Created: b.Created,
	}
	seen := map[service.ID]bool{}
	for _, r := range b.regs {
		if !seen[r.Service()] {
			seen[r.Service()] = true
			in.Services = append(in.Services, string(r.Service()))
		}
	}
	return in
}

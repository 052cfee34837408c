package module

// State is the lifecycle position of an id.
type State int

const (
	StateUnregistered State = iota
	StateRegistered
	StateLoaded
	StateInvoked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateLoaded:
		return "loaded"
	case StateInvoked:
		return "invoked"
	case StateFailed:
		return "failed"
	default:
		return "unregistered"
	}
}

// State reports how far id has progressed.
func (env *Env) State(id string) State {
	if inv, ok := env.invoked[id]; ok {
		if inv.err != nil {
			return StateFailed
		}
		return StateInvoked
	}
	if env.factories.has(id) {
		return StateLoaded
	}
	if _, ok := env.resources[id]; ok {
		return StateRegistered
	}
	return StateUnregistered
}

// Err returns the failure recorded for id's factory, if any.
func (env *Env) Err(id string) error {
	if inv, ok := env.invoked[id]; ok {
		return inv.err
	}
	return nil
}

// Entry describes one id in a Snapshot.
type Entry struct {
	ID           string
	State        State
	Dependencies []string
	Err          error
}

// Snapshot lists every known id with its state, sorted by id.
func (env *Env) Snapshot() []Entry {
	ids := env.IDs()
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, Entry{
			ID:           id,
			State:        env.State(id),
			Dependencies: env.Dependencies(id),
			Err:          env.Err(id),
		})
	}
	return entries
}

package refresh

// State состояние координатора.
type State int

// Состояния координатора.
const (
	// StateIdle refresh не идет, очередь пуста.
	StateIdle State = iota
	// StateRefreshing выполняется ровно один refresh, новые 401 только пополняют очередь.
	StateRefreshing
	// StateDraining refresh успешен, ожидающие продолжения запускаются по порядку.
	StateDraining
	// StateTerminal попытки исчерпаны; состояние поглощающее до Reset.
	StateTerminal
)

// String возвращает имя состояния для логов.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateDraining:
		return "draining"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Snapshot согласованный срез состояния координатора.
type Snapshot struct {
	State    State
	InFlight bool
	Attempts int
	Waiters  int
}

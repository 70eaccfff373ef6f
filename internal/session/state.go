package session

// State is the lifecycle position of a session.
type State uint8

const (
	StateAssetLoading State = iota
	StateWaitingForPlayers
	StateBetweenRound
	StateInRound
	StatePostMatch
)

var stateNames = [...]string{
	StateAssetLoading:      "AssetLoading",
	StateWaitingForPlayers: "WaitingForPlayers",
	StateBetweenRound:      "BetweenRound",
	StateInRound:           "InRound",
	StatePostMatch:         "PostMatch",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Simulating reports whether a rollback session is running.
func (s State) Simulating() bool {
	return s == StateBetweenRound || s == StateInRound
}

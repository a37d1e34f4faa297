package rank

import "errors"

var (
	// ErrInsufficientData is returned when no selected rank carries an MMR value.
	ErrInsufficientData = errors.New("insufficient data: all ranks are unranked")
	// ErrUnknownRank is returned for names that are not a declared rank.
	ErrUnknownRank = errors.New("unknown rank")
	// ErrUnrankedCurrent is returned when the player's own rank has no MMR value.
	ErrUnrankedCurrent = errors.New("current rank is unranked")
	// ErrLobbySize is returned when a lobby does not hold exactly LobbySize ranks.
	ErrLobbySize = errors.New("lobby must contain 8 ranks")
)

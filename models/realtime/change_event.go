package realtime

import "encoding/json"

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// GameRecord is the wire shape of a scheduled game, shared by the REST
// responses, the realtime channel and the client-side store. Opponent is kept
// as raw JSON because the upstream query layer is not consistent about its
// shape (object, array, nested array or plain id) and normalization happens
// on the display side.
type GameRecord struct {
	ID             string          `json:"id"`
	TeamID         string          `json:"team_id"`
	OwnerID        string          `json:"owner_id"`
	Date           string          `json:"date"` // ISO-8601 date+time
	Time           string          `json:"time,omitempty"`
	Rink           string          `json:"rink"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	Country        string          `json:"country"`
	Opponent       json.RawMessage `json:"opponent,omitempty"`
	OpponentID     *string         `json:"opponent_id,omitempty"`
	TournamentID   *string         `json:"tournament_id,omitempty"`
	TournamentName string          `json:"tournament_name,omitempty"`
	GameType       string          `json:"game_type"`
	IsHome         bool            `json:"is_home"`
}

// ChangeEvent is one row-level change notification pushed over the realtime
// channel. The record to use is New when present, Old otherwise (deletes only
// carry Old).
type ChangeEvent struct {
	EventType EventType   `json:"eventType"`
	New       *GameRecord `json:"new,omitempty"`
	Old       *GameRecord `json:"old,omitempty"`
}

// Record returns the payload of the event, preferring New over Old.
func (e ChangeEvent) Record() *GameRecord {
	if e.New != nil {
		return e.New
	}
	return e.Old
}

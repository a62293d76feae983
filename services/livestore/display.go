package livestore

import (
	realtime_models "RinkLink/models/realtime"
	"encoding/json"
	"strings"
	"time"
)

// Game is the display-ready shape of a scheduled game, what the store's
// states are made of. Opponent is already resolved down to a plain name
// (or the tournament name when the game has no opponent).
type Game struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Rink     string `json:"rink"`
	Location string `json:"location"`
	Opponent string `json:"opponent"`
	GameType string `json:"game_type"`
	IsHome   bool   `json:"is_home"`
}

// opponentRef is the only opponent shape we actually understand. The query
// layer upstream sometimes wraps it in one or even two levels of arrays.
type opponentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ToDisplay converts a raw persisted record into its display-ready form.
// Deterministic and stateless, applied whenever a record enters the store
// via snapshot or INSERT event.
func ToDisplay(rec realtime_models.GameRecord) Game {
	return Game{
		ID:       rec.ID,
		Date:     rec.Date,
		Time:     displayTime(rec),
		Rink:     rec.Rink,
		Location: composeLocation(rec.City, rec.State, rec.Country),
		Opponent: resolveOpponent(rec),
		GameType: titleCase(rec.GameType),
		IsHome:   rec.IsHome,
	}
}

// resolveOpponent normalizes whatever opponent shape the backend handed us
// down to a display name. Unrecognized shapes degrade to the tournament name
// (or empty), never to an error.
func resolveOpponent(rec realtime_models.GameRecord) string {
	if name := opponentName(rec.Opponent); name != "" {
		return name
	}
	return rec.TournamentName
}

func opponentName(raw json.RawMessage) string {
	raw = unwrapArrays(raw)
	if len(raw) == 0 {
		return ""
	}

	var ref opponentRef
	if err := json.Unmarshal(raw, &ref); err == nil && ref.Name != "" {
		return ref.Name
	}

	// A bare string is a raw opponent id with nothing to display.
	return ""
}

// unwrapArrays peels off the array-of-arrays artifact the upstream query
// layer sometimes produces, taking the first element at each level.
func unwrapArrays(raw json.RawMessage) json.RawMessage {
	for {
		trimmed := strings.TrimSpace(string(raw))
		if trimmed == "" || trimmed == "null" {
			return nil
		}
		if trimmed[0] != '[' {
			return raw
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil || len(arr) == 0 {
			return nil
		}
		raw = arr[0]
	}
}

func composeLocation(city, state, country string) string {
	parts := []string{}
	for _, p := range []string{city, state, country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// displayTime reformats the record's 24-hour time string ("19:30") into the
// localized display format ("7:30 PM"). Falls back to the time component of
// Date when no explicit time string is set, and to the raw input when it
// cannot be parsed.
func displayTime(rec realtime_models.GameRecord) string {
	raw := rec.Time
	if raw == "" {
		if t, err := time.Parse("2006-01-02T15:04", rec.Date); err == nil {
			return t.Format("3:04 PM")
		}
		if t, err := time.Parse(time.RFC3339, rec.Date); err == nil {
			return t.Format("3:04 PM")
		}
		return ""
	}
	if t, err := time.Parse("15:04", raw); err == nil {
		return t.Format("3:04 PM")
	}
	return raw
}

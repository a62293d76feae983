package utils

import (
	realtime_models "RinkLink/models/realtime"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

var csvHeader = []string{"Date", "Time", "Rink", "Location", "Opponent", "Type", "Home/Away"}

// ScheduleCSV renders a schedule the way the frontend's CSV export does,
// one row per game with a fixed header.
func ScheduleCSV(records []realtime_models.GameRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}

	for _, rec := range records {
		homeAway := "Away"
		if rec.IsHome {
			homeAway = "Home"
		}

		opponent := opponentDisplay(rec)

		row := []string{
			rec.Date,
			rec.Time,
			rec.Rink,
			locationDisplay(rec),
			opponent,
			rec.GameType,
			homeAway,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

func locationDisplay(rec realtime_models.GameRecord) string {
	parts := []string{}
	for _, p := range []string{rec.City, rec.State, rec.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

func opponentDisplay(rec realtime_models.GameRecord) string {
	// The export runs server-side where the opponent was preloaded as a
	// plain {id,name} object; anything else falls back to the tournament.
	if len(rec.Opponent) > 0 {
		var ref struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(rec.Opponent, &ref); err == nil && ref.Name != "" {
			return ref.Name
		}
	}
	return rec.TournamentName
}

// Package espn implements a second proof product: rather than committing
// an ESPN scoreboard summary response verbatim, it reduces it to a small
// fixed-shape struct before the witness builder ever sees it. This is a
// hand-written extractor pinned to one ESPN endpoint shape, not a general
// extraction DSL.
package espn

import (
	"encoding/json"
	"fmt"

	"github.com/loca555/tls-oracle-near/errs"
)

// CompactData is the reduced struct committed in place of the full ESPN
// summary JSON: home/away team names, home/away scores, a normalized
// status string, and the event id the caller asked for.
type CompactData struct {
	HomeTeam string `json:"ht"`
	AwayTeam string `json:"at"`
	HomeScore int   `json:"hs"`
	AwayScore int   `json:"as"`
	Status    string `json:"st"`
	EventID   string `json:"eid"`
}

type competitor struct {
	Team struct {
		DisplayName string `json:"displayName"`
	} `json:"team"`
	Score    string `json:"score"`
	HomeAway string `json:"homeAway"`
}

type competition struct {
	Competitors []competitor `json:"competitors"`
	Status      struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"status"`
}

type summaryEnvelope struct {
	Header struct {
		Competitions []competition `json:"competitions"`
	} `json:"header"`
	Competitions []competition `json:"competitions"`
}

// Extract reduces a raw ESPN summary-endpoint JSON response to CompactData
// for the given event id. It mirrors the ESPN summary shape exactly:
// header.competitions[0].competitors[] tagged home/away, with a fallback
// to a top-level competitions[0] for endpoints that omit the header
// wrapper.
func Extract(rawJSON []byte, espnEventID string) (*CompactData, error) {
	var env summaryEnvelope
	if err := json.Unmarshal(rawJSON, &env); err != nil {
		return nil, errs.Wrap(errs.InvalidRequest, "parsing espn response as json", err)
	}

	comp, ok := firstCompetition(env)
	if !ok {
		return nil, errs.New(errs.InvalidRequest, "espn response has no competitions[0]")
	}

	var homeTeam, awayTeam string
	homeScore, awayScore := -1, -1

	for _, c := range comp.Competitors {
		name := c.Team.DisplayName
		if name == "" {
			name = "Unknown"
		}
		score := parseScore(c.Score)
		switch c.HomeAway {
		case "home":
			homeTeam, homeScore = name, score
		case "away":
			awayTeam, awayScore = name, score
		}
	}

	if homeTeam == "" || awayTeam == "" {
		return nil, errs.New(errs.InvalidRequest, "espn response: could not determine home/away competitors")
	}

	return &CompactData{
		HomeTeam:  homeTeam,
		AwayTeam:  awayTeam,
		HomeScore: homeScore,
		AwayScore: awayScore,
		Status:    normalizeStatus(comp.Status.Type.Name),
		EventID:   espnEventID,
	}, nil
}

func firstCompetition(env summaryEnvelope) (competition, bool) {
	if len(env.Header.Competitions) > 0 {
		return env.Header.Competitions[0], true
	}
	if len(env.Competitions) > 0 {
		return env.Competitions[0], true
	}
	return competition{}, false
}

func parseScore(s string) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0
	}
	return n
}

func normalizeStatus(name string) string {
	switch name {
	case "STATUS_FINAL", "STATUS_FULL_TIME":
		return "final"
	case "STATUS_IN_PROGRESS", "STATUS_FIRST_HALF", "STATUS_SECOND_HALF", "STATUS_HALFTIME", "STATUS_OVERTIME":
		return "in"
	case "STATUS_SCHEDULED", "STATUS_PREGAME":
		return "pre"
	default:
		return "unknown"
	}
}

// URL builds the ESPN summary endpoint URL for a sport/league/event id
// triple, the same template the original prove-espn handler formats.
func URL(sport, league, eventID string) string {
	return fmt.Sprintf("https://site.api.espn.com/apis/site/v2/sports/%s/%s/summary?event=%s", sport, league, eventID)
}

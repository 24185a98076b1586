// Package games turns raw game-history payloads into GameRecords.
//
// Upstream exports vary by endpoint and age: a JSON array, an object with a
// "games" list, or newline-delimited JSON. Normalize tries each shape in turn
// and extracts as many games as it can; undecodable records are skipped.
package games

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/okian/leakscan/internal/domain/model"
)

// maxLineSize bounds one NDJSON record; longer lines are skipped.
const maxLineSize = 4 << 20

var (
	moveNumber  = regexp.MustCompile(`^\d+\.(\.\.)?$`)
	gameResults = map[string]struct{}{"1-0": {}, "0-1": {}, "1/2-1/2": {}, "*": {}}
)

// strategy is one payload shape. ok=false means the shape did not apply.
type strategy func(payload []byte) (games []model.GameRecord, ok bool)

var strategies = []strategy{
	parseArray,
	parseWrapped,
	parseNDJSON,
}

// Normalize parses payload into games. It never fails: an empty or
// unrecognised payload yields an empty slice.
func Normalize(payload string) []model.GameRecord {
	raw := bytes.TrimSpace([]byte(payload))
	if len(raw) == 0 {
		return []model.GameRecord{}
	}
	for _, s := range strategies {
		if out, ok := s(raw); ok {
			return out
		}
	}
	return []model.GameRecord{}
}

func parseArray(payload []byte) ([]model.GameRecord, bool) {
	if payload[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, false
	}
	return decodeAll(items), true
}

func parseWrapped(payload []byte) ([]model.GameRecord, bool) {
	if payload[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, false
	}
	list, ok := obj["games"]
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, false
	}
	return decodeAll(items), true
}

func parseNDJSON(payload []byte) ([]model.GameRecord, bool) {
	r := bufio.NewReaderSize(bytes.NewReader(payload), min(len(payload)+1, maxLineSize))

	out := []model.GameRecord{}
	for {
		line, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// Oversized line: skip to the next newline and keep going.
			err = discardLine(r)
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			if g, ok := decodeGame(line); ok {
				out = append(out, g)
			}
		}
		if err != nil {
			return out, true
		}
	}
}

// discardLine drops the rest of the current line.
func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func decodeAll(items []json.RawMessage) []model.GameRecord {
	out := make([]model.GameRecord, 0, len(items))
	for _, item := range items {
		if g, ok := decodeGame(item); ok {
			out = append(out, g)
		}
	}
	return out
}

// rawGame mirrors the Lichess export and a couple of flatter variants.
type rawGame struct {
	ID      string          `json:"id"`
	Moves   moveList        `json:"moves"`
	Players rawPlayers      `json:"players"`
	White   json.RawMessage `json:"white"`
	Black   json.RawMessage `json:"black"`
}

type rawPlayers struct {
	White rawSide `json:"white"`
	Black rawSide `json:"black"`
}

type rawSide struct {
	User *struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"user"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (s rawSide) displayName() string {
	switch {
	case s.User != nil && s.User.Name != "":
		return s.User.Name
	case s.User != nil && s.User.ID != "":
		return s.User.ID
	case s.Username != "":
		return s.Username
	default:
		return s.Name
	}
}

// moveList accepts either "e4 e5 Nf3" or ["e4","e5","Nf3"].
type moveList []string

func (m *moveList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = splitMoves(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*m = splitMoves(strings.Join(arr, " "))
	return nil
}

func splitMoves(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if moveNumber.MatchString(f) {
			continue
		}
		if _, ok := gameResults[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

func decodeGame(b []byte) (model.GameRecord, bool) {
	if len(b) == 0 || b[0] != '{' {
		return model.GameRecord{}, false
	}
	var g rawGame
	if err := json.Unmarshal(b, &g); err != nil {
		return model.GameRecord{}, false
	}
	return model.GameRecord{
		ID:    g.ID,
		Moves: []string(g.Moves),
		White: firstNonEmpty(g.Players.White.displayName(), flatName(g.White)),
		Black: firstNonEmpty(g.Players.Black.displayName(), flatName(g.Black)),
	}, true
}

// flatName handles a top-level "white"/"black" given as a string or object.
func flatName(b json.RawMessage) string {
	if len(b) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	var side rawSide
	if err := json.Unmarshal(b, &side); err == nil {
		return side.displayName()
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

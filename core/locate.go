package core

import (
	"encoding/json"
	"unicode/utf8"

	"pkt.systems/ttypilot/schema"
)

// Locate scans the whole capture row-major for req.Character. At most
// req.Limit coordinates are collected; Remaining counts the uncollected
// matches.
func Locate(screen string, req schema.LocateRequest) (schema.LocateResult, error) {
	req, err := schema.NormalizeLocateRequest(req)
	if err != nil {
		return schema.LocateResult{}, err
	}
	target, _ := utf8.DecodeRuneInString(req.Character)
	result := schema.LocateResult{Coordinates: []schema.Coordinate{}}
	total := 0
	for r, row := range parseScreen(plainText(screen)) {
		for c, ch := range row {
			if ch != target {
				continue
			}
			total++
			if len(result.Coordinates) < req.Limit {
				result.Coordinates = append(result.Coordinates, schema.Coordinate{Row: r, Col: c})
			}
		}
	}
	result.Remaining = total - len(result.Coordinates)
	return result, nil
}

// LocateJSON runs Locate and encodes the result.
func LocateJSON(screen string, req schema.LocateRequest) (string, error) {
	result, err := Locate(screen, req)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

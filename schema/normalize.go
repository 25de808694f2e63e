package schema

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// NormalizeViewMode validates a view mode. An empty mode selects rows.
func NormalizeViewMode(mode string) (ViewMode, error) {
	trimmed := strings.TrimSpace(mode)
	if trimmed == "" {
		return ViewRows, nil
	}
	for _, m := range ViewModes {
		if ViewMode(trimmed) == m {
			return m, nil
		}
	}
	return "", Validation(fmt.Errorf("%w %q: must be one of %s", ErrInvalidMode, mode, viewModeList()))
}

func viewModeList() string {
	names := make([]string, 0, len(ViewModes))
	for _, m := range ViewModes {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// ValidateBoundingBox checks that box corners are non-negative and ordered.
// A nil box is valid.
func ValidateBoundingBox(box *BoundingBox) error {
	if box == nil {
		return nil
	}
	tl, br := box.TopLeft, box.BottomRight
	if tl.Row < 0 || tl.Col < 0 || br.Row < 0 || br.Col < 0 {
		return Validation(fmt.Errorf("%w: coordinates must be non-negative, got top_left=%s bottom_right=%s", ErrInvalidBox, tl, br))
	}
	if br.Row < tl.Row {
		return Validation(fmt.Errorf("%w: bottom_right row %d precedes top_left row %d", ErrInvalidBox, br.Row, tl.Row))
	}
	if br.Col < tl.Col {
		return Validation(fmt.Errorf("%w: bottom_right col %d precedes top_left col %d", ErrInvalidBox, br.Col, tl.Col))
	}
	return nil
}

// NormalizeViewRequest validates the mode and bounding box of req.
func NormalizeViewRequest(req ViewRequest) (ViewRequest, error) {
	mode, err := NormalizeViewMode(string(req.Mode))
	if err != nil {
		return ViewRequest{}, err
	}
	req.Mode = mode
	if err := ValidateBoundingBox(req.Box); err != nil {
		return ViewRequest{}, err
	}
	return req, nil
}

// NormalizeLocateRequest validates the character and applies the default limit
// when Limit is zero.
func NormalizeLocateRequest(req LocateRequest) (LocateRequest, error) {
	if utf8.RuneCountInString(req.Character) != 1 {
		return LocateRequest{}, Validation(fmt.Errorf("%w, got %q", ErrInvalidCharacter, req.Character))
	}
	if req.Limit == 0 {
		req.Limit = DefaultLocateLimit
	}
	if req.Limit < 0 {
		return LocateRequest{}, Validation(fmt.Errorf("%w, got %d", ErrInvalidLimit, req.Limit))
	}
	return req, nil
}

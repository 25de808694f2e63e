package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeViewMode(t *testing.T) {
	cases := []struct {
		name  string
		mode  string
		want  ViewMode
		valid bool
	}{
		{"empty-defaults-rows", "", ViewRows, true},
		{"rows", "rows", ViewRows, true},
		{"cols", "cols", ViewCols, true},
		{"columns", "columns", ViewColumns, true},
		{"both", "both", ViewBoth, true},
		{"unknown", "unknown", "", false},
		{"uppercase", "ROWS", "", false},
	}

	for _, tc := range cases {
		got, err := NormalizeViewMode(tc.mode)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
		if got != tc.want {
			t.Fatalf("case %q expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestNormalizeViewModeErrorListsAllowedModes(t *testing.T) {
	_, err := NormalizeViewMode("diagonal")
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"diagonal", "rows", "cols", "columns", "both"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %q", want, err.Error())
		}
	}
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation kind, got %q", KindOf(err))
	}
}

func TestValidateBoundingBox(t *testing.T) {
	cases := []struct {
		name  string
		box   *BoundingBox
		valid bool
	}{
		{"nil", nil, true},
		{"single-cell", &BoundingBox{TopLeft: Coordinate{1, 1}, BottomRight: Coordinate{1, 1}}, true},
		{"region", &BoundingBox{TopLeft: Coordinate{0, 2}, BottomRight: Coordinate{4, 9}}, true},
		{"reversed-row", &BoundingBox{TopLeft: Coordinate{3, 0}, BottomRight: Coordinate{2, 5}}, false},
		{"reversed-col", &BoundingBox{TopLeft: Coordinate{0, 5}, BottomRight: Coordinate{2, 4}}, false},
		{"negative", &BoundingBox{TopLeft: Coordinate{-1, 0}, BottomRight: Coordinate{2, 4}}, false},
	}
	for _, tc := range cases {
		err := ValidateBoundingBox(tc.box)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid {
			if err == nil {
				t.Fatalf("case %q expected error, got nil", tc.name)
			}
			if !errors.Is(err, ErrInvalidBox) {
				t.Fatalf("case %q expected ErrInvalidBox, got %v", tc.name, err)
			}
		}
	}
}

func TestNormalizeLocateRequest(t *testing.T) {
	req, err := NormalizeLocateRequest(LocateRequest{Character: "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Limit != DefaultLocateLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLocateLimit, req.Limit)
	}
	if _, err := NormalizeLocateRequest(LocateRequest{Character: "é", Limit: 2}); err != nil {
		t.Fatalf("expected multibyte single character to be accepted, got %v", err)
	}
	for _, ch := range []string{"", "ab"} {
		_, err := NormalizeLocateRequest(LocateRequest{Character: ch})
		if !errors.Is(err, ErrInvalidCharacter) {
			t.Fatalf("character %q: expected ErrInvalidCharacter, got %v", ch, err)
		}
	}
	if _, err := NormalizeLocateRequest(LocateRequest{Character: "x", Limit: -1}); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestToolResultTags(t *testing.T) {
	ok := Success("hello")
	if !ok.OK() || ok.Output() != "hello" || ok.Error() != "" || ok.Kind() != "" {
		t.Fatalf("unexpected success result: %+v", ok.Payload())
	}
	failed := Failure(Backend(ErrNoSession))
	if failed.OK() {
		t.Fatalf("expected failure")
	}
	if failed.Output() != "" {
		t.Fatalf("expected empty output on failure, got %q", failed.Output())
	}
	if failed.Error() != "no active session" {
		t.Fatalf("unexpected error text %q", failed.Error())
	}
	if failed.Kind() != KindBackend {
		t.Fatalf("expected backend kind, got %q", failed.Kind())
	}
	if failed.Text() != "Error: no active session" {
		t.Fatalf("unexpected text %q", failed.Text())
	}
}

func TestKindOfSentinels(t *testing.T) {
	if KindOf(ErrUnknownTool) != KindDispatch {
		t.Fatalf("expected dispatch kind")
	}
	if KindOf(Validationf("missing %s", "program")) != KindValidation {
		t.Fatalf("expected validation kind")
	}
	if KindOf(errors.New("tmux: exit status 1")) != KindBackend {
		t.Fatalf("expected backend kind for unclassified error")
	}
}

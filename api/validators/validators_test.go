package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/google/uuid"
)

type closeBody struct {
	Status string `json:"status" validate:"required,oneof=closed returned canceled"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"returned"}`))
	var body closeBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "returned" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"status":"returned","extra":1}`,
		"bad enum":      `{"status":"lost"}`,
		"missing":       `{}`,
		"malformed":     `{"status":`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			var body closeBody
			err := DecodeJSONBody(req, &body)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseQueryUUID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?itemId="+id.String(), nil)
	got, err := ParseQueryUUID(req, "itemId", true)
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s %v", id, got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if got, err := ParseQueryUUID(req, "excludeReservationId", false); err != nil || got != uuid.Nil {
		t.Fatalf("expected nil uuid for optional param, got %s %v", got, err)
	}
	if _, err := ParseQueryUUID(req, "itemId", true); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing param, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?itemId=nope", nil)
	if _, err := ParseQueryUUID(req, "itemId", true); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad uuid, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  holiday  ", 0, "holiday"},
		{"line one\nline two", 0, "line one line two"},
		{"déménagement", 3, "dém"},
		{"ab ", 3, "ab"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

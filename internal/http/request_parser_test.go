package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func TestParseDateOrDefault(t *testing.T) {
	def := core.NewDate(2024, 1, 1)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "valid date",
			form: url.Values{"start": {"2024-06-15"}},
			want: "2024-06-15",
		},
		{
			name: "missing value uses default",
			form: url.Values{},
			want: "2024-01-01",
		},
		{
			name: "garbage uses default",
			form: url.Values{"start": {"not-a-date"}},
			want: "2024-01-01",
		},
		{
			name: "whitespace is trimmed",
			form: url.Values{"start": {"  2024-02-29  "}},
			want: "2024-02-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDateOrDefault(tt.form, "start", def)
			if got.ISO() != tt.want {
				t.Errorf("ParseDateOrDefault() = %s, want %s", got.ISO(), tt.want)
			}
		})
	}
}

func TestParseIntOrDefault(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"valid", url.Values{"day": {"15"}}, 15},
		{"missing", url.Values{}, 7},
		{"garbage", url.Values{"day": {"abc"}}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseIntOrDefault(tt.form, "day", 7); got != tt.want {
				t.Errorf("ParseIntOrDefault() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"name": "Rent"}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("IsJSON() = false, want true")
	}
	if got := parser.Get("name"); got != "Rent" {
		t.Errorf("Get(name) = %q, want %q", got, "Rent")
	}
	if got := parser.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	form := url.Values{"name": {"Rent"}}
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("IsJSON() = true, want false")
	}
	if got := parser.Get("name"); got != "Rent" {
		t.Errorf("Get(name) = %q, want %q", got, "Rent")
	}
}

func TestRequestBodyParser_SanitizesControlChars(t *testing.T) {
	form := url.Values{"name": {"Re\x00nt\x07"}}
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("name"); got != "Rent" {
		t.Errorf("Get(name) = %q, want %q", got, "Rent")
	}
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if resp := RequirePOST(req); resp == nil {
		t.Fatal("RequirePOST should reject GET")
	}

	req = httptest.NewRequest(http.MethodPost, "/test", nil)
	if resp := RequirePOST(req); resp != nil {
		t.Fatal("RequirePOST should allow POST")
	}

	req = httptest.NewRequest(http.MethodDelete, "/test", nil)
	if resp := RequireDeleteOrPOST(req); resp != nil {
		t.Fatal("RequireDeleteOrPOST should allow DELETE")
	}

	req = httptest.NewRequest(http.MethodPut, "/test", nil)
	resp := RequireDeleteOrPOST(req)
	if resp == nil {
		t.Fatal("RequireDeleteOrPOST should reject PUT")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

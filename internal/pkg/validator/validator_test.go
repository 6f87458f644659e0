package validator

import (
	"errors"
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // not v7
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"",
	}
	for _, id := range valid {
		if !IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = true, want false", id)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		if _, ok := IsValidDate(s); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidDate(s); ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidYearMonth(t *testing.T) {
	valid := []string{"2024-01", "1999-12"}
	invalid := []string{"2024-13", "2024-1", "202401", "2024-01-01", ""}
	for _, s := range valid {
		if _, ok := IsValidYearMonth(s); !ok {
			t.Errorf("IsValidYearMonth(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidYearMonth(s); ok {
			t.Errorf("IsValidYearMonth(%q) = true, want false", s)
		}
	}
}

func TestIsValidTimeOfDay(t *testing.T) {
	valid := []string{"00:00", "05:00", "22:30", "23:59", "24:00"}
	invalid := []string{"24:01", "25:00", "9:00", "12:60", "1200", ""}
	for _, s := range valid {
		if !IsValidTimeOfDay(s) {
			t.Errorf("IsValidTimeOfDay(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidTimeOfDay(s) {
			t.Errorf("IsValidTimeOfDay(%q) = true, want false", s)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestStruct(t *testing.T) {
	type request struct {
		Month  string `json:"month" validate:"required,yearmonth"`
		Start  string `json:"window_start" validate:"hhmm"`
		Day    string `json:"date" validate:"omitempty,datekey"`
		Status string `json:"status" validate:"omitempty,oneof=draft pending"`
	}

	if err := Struct(request{Month: "2024-05", Start: "22:00", Day: "2024-05-01", Status: "pending"}); err != nil {
		t.Fatalf("Struct() unexpected error: %v", err)
	}

	err := Struct(request{Month: "May", Start: "25:00", Status: "approved"})
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Struct() error = %T, want ValidationErrors", err)
	}
	got := errs.ToMap()
	if got["month"] != "must be a month in YYYY-MM format" {
		t.Errorf("month message = %q", got["month"])
	}
	if got["window_start"] != "must be a time in HH:MM format" {
		t.Errorf("window_start message = %q", got["window_start"])
	}
	if got["status"] != "must be one of: draft, pending" {
		t.Errorf("status message = %q", got["status"])
	}
	if _, ok := got["date"]; ok {
		t.Errorf("date should be skipped when empty")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "hourly_wage", Message: "invalid"},
		{Field: "rate", Message: "required"},
	}
	got := errs.Error()
	want := "hourly_wage: invalid; rate: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "hourly_wage", Message: "invalid"},
		{Field: "rate", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"hourly_wage": "invalid", "rate": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

package validation

import (
	"errors"
	"testing"
)

type heartbeat struct {
	SubModuleID string  `json:"subModuleId" validate:"notblank,max=8"`
	Percentage  float64 `json:"completionPercentage" validate:"min=0,max=100"`
}

type lesson struct {
	ID       string `json:"id" validate:"required"`
	Duration string `json:"duration" validate:"omitempty,duration"`
}

type course struct {
	Lessons []lesson `json:"lessons" validate:"dive"`
}

func TestStructValid(t *testing.T) {
	if err := Struct(heartbeat{SubModuleID: "A", Percentage: 50}); err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
	}{
		{name: "blank id", input: heartbeat{SubModuleID: "   ", Percentage: 10}, wantField: "subModuleId"},
		{name: "id too long", input: heartbeat{SubModuleID: "abcdefghij", Percentage: 10}, wantField: "subModuleId"},
		{name: "percentage over 100", input: heartbeat{SubModuleID: "A", Percentage: 120}, wantField: "completionPercentage"},
		{name: "nested duration", input: course{Lessons: []lesson{{ID: "l-1", Duration: "5 minutes"}}}, wantField: "lessons[0].duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			var verrs Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected Errors, got %v", err)
			}
			if len(verrs) != 1 || verrs[0].Field != tt.wantField {
				t.Fatalf("expected one error on %s, got %v", tt.wantField, verrs)
			}
			if verrs[0].Message == "" {
				t.Error("expected a translated message")
			}
		})
	}
}

func TestDurationFormats(t *testing.T) {
	tests := []struct {
		duration string
		valid    bool
	}{
		{duration: "05:30", valid: true},
		{duration: "1:02:03", valid: true},
		{duration: "", valid: true},
		{duration: "5:3", valid: false},
		{duration: "05:75", valid: false},
		{duration: "ab:cd", valid: false},
	}

	for _, tt := range tests {
		err := Struct(lesson{ID: "l-1", Duration: tt.duration})
		if (err == nil) != tt.valid {
			t.Errorf("duration %q: valid = %v, want %v (err %v)", tt.duration, err == nil, tt.valid, err)
		}
	}
}

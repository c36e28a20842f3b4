package mapping

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
)

func TestValidate_OK(t *testing.T) {
	m := Mapping{
		{Source: "content", Target: "contentVector", VectorLength: 1536},
		{Source: "title", Target: "titleVector", VectorLength: 1536},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		m    Mapping
	}{
		{"missing source", Mapping{{Target: "v", VectorLength: 3}}},
		{"missing target", Mapping{{Source: "s", VectorLength: 3}}},
		{"zero length", Mapping{{Source: "s", Target: "v"}}},
		{"negative length", Mapping{{Source: "s", Target: "v", VectorLength: -1}}},
		{"duplicate target", Mapping{
			{Source: "a", Target: "v", VectorLength: 3},
			{Source: "b", Target: "v", VectorLength: 3},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidate_Empty(t *testing.T) {
	if err := Mapping(nil).Validate(); err != nil {
		t.Fatalf("empty mapping must be valid: %v", err)
	}
}

func TestLookupAndTargets(t *testing.T) {
	m := Mapping{
		{Source: "content", Target: "contentVector", VectorLength: 4},
		{Source: "title", Target: "titleVector", VectorLength: 8},
	}

	e, ok := m.Lookup("titleVector")
	if !ok || e.VectorLength != 8 {
		t.Errorf("Lookup(titleVector) = %+v, %v", e, ok)
	}
	if _, ok := m.Lookup("nope"); ok {
		t.Error("expected miss for unknown target")
	}

	targets := m.Targets()
	if len(targets) != 2 || targets[0] != "contentVector" || targets[1] != "titleVector" {
		t.Errorf("Targets() = %v", targets)
	}
}

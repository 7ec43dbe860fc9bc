package query

import (
	"testing"
	"time"
)

func TestConditions_Key(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		cond Conditions
		want string
	}{
		{
			name: "empty conditions",
			cond: Conditions{},
			want: "releases",
		},
		{
			name: "single project with period",
			cond: Conditions{
				ProjectIDs:  []int{1},
				StatsPeriod: "14d",
			},
			want: "releases:project=1:period=14d",
		},
		{
			name: "projects sorted",
			cond: Conditions{
				ProjectIDs: []int{42, 7, 19},
			},
			want: "releases:project=7,19,42",
		},
		{
			name: "environments sorted",
			cond: Conditions{
				Environments: []string{"staging", "production"},
			},
			want: "releases:env=production,staging",
		},
		{
			name: "absolute time range",
			cond: Conditions{
				ProjectIDs: []int{3},
				Start:      &start,
				End:        &end,
			},
			want: "releases:project=3:start=2024-03-01T00:00:00:end=2024-03-15T12:30:00",
		},
		{
			name: "cursor excluded",
			cond: Conditions{
				ProjectIDs:  []int{1},
				StatsPeriod: "24h",
				Cursor:      "0:100:0",
			},
			want: "releases:project=1:period=24h",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cond.Key()
			if got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConditions_Key_OrderIndependent(t *testing.T) {
	a := Conditions{
		ProjectIDs:   []int{2, 1},
		Environments: []string{"prod", "dev"},
		StatsPeriod:  "7d",
	}
	b := Conditions{
		ProjectIDs:   []int{1, 2},
		Environments: []string{"dev", "prod"},
		StatsPeriod:  "7d",
	}

	if a.Key() != b.Key() {
		t.Errorf("Keys differ for equal condition sets: %q vs %q", a.Key(), b.Key())
	}
}

func TestConditions_Key_DistinctForDifferingFields(t *testing.T) {
	base := Conditions{ProjectIDs: []int{1}, StatsPeriod: "14d"}

	variants := []Conditions{
		{ProjectIDs: []int{2}, StatsPeriod: "14d"},
		{ProjectIDs: []int{1}, StatsPeriod: "7d"},
		{ProjectIDs: []int{1}, Environments: []string{"prod"}, StatsPeriod: "14d"},
	}

	for i, v := range variants {
		if v.Key() == base.Key() {
			t.Errorf("variant %d: expected distinct key, got %q for both", i, base.Key())
		}
	}
}

func TestConditions_PageKey(t *testing.T) {
	cond := Conditions{ProjectIDs: []int{1}, StatsPeriod: "14d"}

	if got := cond.PageKey(); got != cond.Key() {
		t.Errorf("PageKey() without cursor = %q, want %q", got, cond.Key())
	}

	withCursor := cond.WithCursor("0:100:0")
	want := "releases:project=1:period=14d:cursor=0:100:0"
	if got := withCursor.PageKey(); got != want {
		t.Errorf("PageKey() = %q, want %q", got, want)
	}

	// WithCursor must not mutate the receiver.
	if cond.Cursor != "" {
		t.Errorf("WithCursor mutated receiver: cursor = %q", cond.Cursor)
	}
}

func TestConditions_Params(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	cond := Conditions{
		ProjectIDs:   []int{1, 2},
		Environments: []string{"production"},
		Start:        &start,
		StatsPeriod:  "",
		Cursor:       "abc",
	}

	params := cond.Params()

	if got := params["project"]; len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("project params = %v, want [1 2]", got)
	}
	if got := params.Get("environment"); got != "production" {
		t.Errorf("environment = %q, want %q", got, "production")
	}
	if got := params.Get("start"); got != "2024-03-01T00:00:00" {
		t.Errorf("start = %q, want UTC date string", got)
	}
	if params.Has("statsPeriod") {
		t.Error("statsPeriod should be omitted when empty")
	}
	if got := params.Get("cursor"); got != "abc" {
		t.Errorf("cursor = %q, want %q", got, "abc")
	}
}

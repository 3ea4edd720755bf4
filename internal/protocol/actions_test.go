package protocol

import (
	"sort"
	"testing"
)

func TestLookupAction(t *testing.T) {
	spec, ok := LookupAction(ActionPlayEpisode)
	if !ok {
		t.Fatal("LookupAction(playEpisode) not found")
	}
	if spec.Name != ActionPlayEpisode {
		t.Errorf("Name = %q, want %q", spec.Name, ActionPlayEpisode)
	}
	if len(spec.Required) != 1 || spec.Required[0] != ParamEpisodeID {
		t.Errorf("Required = %v, want [%s]", spec.Required, ParamEpisodeID)
	}

	if _, ok := LookupAction("doesNotExist"); ok {
		t.Error("LookupAction(doesNotExist) should not be found")
	}
}

func TestSupportedActions_SortedAndNamed(t *testing.T) {
	specs := SupportedActions()
	if len(specs) == 0 {
		t.Fatal("SupportedActions() returned nothing")
	}

	names := ActionNames()
	if !sort.StringsAreSorted(names) {
		t.Errorf("ActionNames() not sorted: %v", names)
	}
	for _, s := range specs {
		if s.Name == "" {
			t.Error("spec with empty Name")
		}
		if s.Description == "" {
			t.Errorf("%s has no description", s.Name)
		}
	}
}

func TestActionSpec_MissingParam(t *testing.T) {
	spec, _ := LookupAction(ActionSearchPodcasts)

	tests := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{"nil params", nil, ParamQuery},
		{"empty value counts as missing", map[string]string{ParamQuery: ""}, ParamQuery},
		{"optional absent is fine", map[string]string{ParamQuery: "news"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spec.MissingParam(&Request{Params: tt.params})
			if got != tt.want {
				t.Errorf("MissingParam() = %q, want %q", got, tt.want)
			}
		})
	}
}

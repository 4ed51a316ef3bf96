package security

import (
	"reflect"
	"testing"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		want    Rule
		wantErr bool
	}{
		{
			name:  "admin rule with mixed separators",
			key:   "a:roads",
			value: "ROLE_GIS_ADMIN;jdoe, ROLE_SUPERUSER",
			want: Rule{
				Mode:         AccessAdmin,
				LayerPattern: "roads",
				Principals:   []string{"ROLE_GIS_ADMIN", "jdoe", "ROLE_SUPERUSER"},
			},
		},
		{
			name:  "wildcard layer pattern",
			key:   "r:*",
			value: "*",
			want: Rule{
				Mode:         AccessRead,
				LayerPattern: "*",
				Principals:   []string{"*"},
			},
		},
		{
			name:  "layer name containing colons",
			key:   "w:dreal:roads",
			value: "ROLE_EDITOR",
			want: Rule{
				Mode:         AccessWrite,
				LayerPattern: "dreal:roads",
				Principals:   []string{"ROLE_EDITOR"},
			},
		},
		{
			name:  "blank principals are dropped",
			key:   "r:roads",
			value: "ROLE_A;;, ;ROLE_B",
			want: Rule{
				Mode:         AccessRead,
				LayerPattern: "roads",
				Principals:   []string{"ROLE_A", "ROLE_B"},
			},
		},
		{
			name:    "missing separator",
			key:     "roads",
			value:   "ROLE_A",
			wantErr: true,
		},
		{
			name:    "empty layer pattern",
			key:     "r:",
			value:   "ROLE_A",
			wantErr: true,
		},
		{
			name:    "unknown mode",
			key:     "x:roads",
			value:   "ROLE_A",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRule(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRule() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRuleMatch(t *testing.T) {
	tests := []struct {
		name       string
		rule       Rule
		layer      string
		principals []string
		want       bool
	}{
		{
			name:       "exact layer and principal",
			rule:       Rule{Mode: AccessAdmin, LayerPattern: "roads", Principals: []string{"ROLE_GIS_ADMIN"}},
			layer:      "roads",
			principals: []string{"jdoe", "ROLE_GIS_ADMIN"},
			want:       true,
		},
		{
			name:       "layer mismatch",
			rule:       Rule{Mode: AccessAdmin, LayerPattern: "roads", Principals: []string{"ROLE_GIS_ADMIN"}},
			layer:      "rivers",
			principals: []string{"ROLE_GIS_ADMIN"},
			want:       false,
		},
		{
			name:       "principal mismatch",
			rule:       Rule{Mode: AccessAdmin, LayerPattern: "roads", Principals: []string{"ROLE_GIS_ADMIN"}},
			layer:      "roads",
			principals: []string{"jdoe"},
			want:       false,
		},
		{
			name:       "anyone principal",
			rule:       Rule{Mode: AccessRead, LayerPattern: "roads", Principals: []string{"*"}},
			layer:      "roads",
			principals: []string{"whoever"},
			want:       true,
		},
		{
			name:       "wildcard layer",
			rule:       Rule{Mode: AccessRead, LayerPattern: "dreal:*", Principals: []string{"ROLE_VIEWER"}},
			layer:      "dreal:roads",
			principals: []string{"ROLE_VIEWER"},
			want:       true,
		},
		{
			name:       "wildcard layer against other prefix",
			rule:       Rule{Mode: AccessRead, LayerPattern: "dreal:*", Principals: []string{"ROLE_VIEWER"}},
			layer:      "other:roads",
			principals: []string{"ROLE_VIEWER"},
			want:       false,
		},
		{
			name:       "exact pattern is not a glob",
			rule:       Rule{Mode: AccessRead, LayerPattern: "roads", Principals: []string{"ROLE_VIEWER"}},
			layer:      "roads_extended",
			principals: []string{"ROLE_VIEWER"},
			want:       false,
		},
		{
			name:       "empty principal set never matches",
			rule:       Rule{Mode: AccessRead, LayerPattern: "roads", Principals: []string{"ROLE_VIEWER"}},
			layer:      "roads",
			principals: nil,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Match(tt.layer, tt.principals); got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.layer, tt.principals, got, tt.want)
			}
		})
	}
}

func TestRuleSetMatchPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		rules      RuleSet
		layer      string
		principals []string
		modes      []AccessMode
		want       bool
	}{
		{
			name: "exact pattern beats wildcard grant",
			rules: RuleSet{
				{Mode: AccessAdmin, LayerPattern: "*", Principals: []string{"*"}},
				{Mode: AccessAdmin, LayerPattern: "roads", Principals: []string{"ROLE_GIS_ADMIN"}},
			},
			layer:      "roads",
			principals: []string{"jdoe"},
			modes:      []AccessMode{AccessAdmin},
			want:       false,
		},
		{
			name: "exact pattern beats wildcard deny",
			rules: RuleSet{
				{Mode: AccessAdmin, LayerPattern: "*", Principals: []string{"nobody"}},
				{Mode: AccessAdmin, LayerPattern: "roads", Principals: []string{"jdoe"}},
			},
			layer:      "roads",
			principals: []string{"jdoe"},
			modes:      []AccessMode{AccessAdmin},
			want:       true,
		},
		{
			name: "more literal glob wins over bare wildcard",
			rules: RuleSet{
				{Mode: AccessRead, LayerPattern: "*", Principals: []string{"*"}},
				{Mode: AccessRead, LayerPattern: "dreal:*", Principals: []string{"ROLE_DREAL"}},
			},
			layer:      "dreal:roads",
			principals: []string{"someone-else"},
			modes:      []AccessMode{AccessRead},
			want:       false,
		},
		{
			name: "source order breaks specificity ties",
			rules: RuleSet{
				{Mode: AccessRead, LayerPattern: "aa:*", Principals: []string{"ROLE_FIRST"}},
				{Mode: AccessRead, LayerPattern: "*:xx", Principals: []string{"ROLE_SECOND"}},
			},
			layer:      "aa:xx",
			principals: []string{"ROLE_SECOND"},
			modes:      []AccessMode{AccessRead},
			want:       false,
		},
		{
			name: "mode filter excludes other modes",
			rules: RuleSet{
				{Mode: AccessRead, LayerPattern: "roads", Principals: []string{"jdoe"}},
			},
			layer:      "roads",
			principals: []string{"jdoe"},
			modes:      []AccessMode{AccessAdmin},
			want:       false,
		},
		{
			name: "no mode restriction matches any mode",
			rules: RuleSet{
				{Mode: AccessWrite, LayerPattern: "roads", Principals: []string{"jdoe"}},
			},
			layer:      "roads",
			principals: []string{"jdoe"},
			want:       true,
		},
		{
			name:       "empty rule set denies",
			rules:      RuleSet{},
			layer:      "roads",
			principals: []string{"jdoe"},
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rules.Match(tt.layer, tt.principals, tt.modes...); got != tt.want {
				t.Errorf("RuleSet.Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

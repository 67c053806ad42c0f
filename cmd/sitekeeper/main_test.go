package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectKindArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"sitekeeper"},
			want: []string{"sitekeeper"},
		},
		{
			name: "kind first token",
			in:   []string{"sitekeeper", "members"},
			want: []string{"sitekeeper", "records", "list", "members"},
		},
		{
			name: "kind is case-insensitive",
			in:   []string{"sitekeeper", "Projects"},
			want: []string{"sitekeeper", "records", "list", "Projects"},
		},
		{
			name: "kind after value flag",
			in:   []string{"sitekeeper", "--db", "./content.db", "finances"},
			want: []string{"sitekeeper", "--db", "./content.db", "records", "list", "finances"},
		},
		{
			name: "kind after equals flag",
			in:   []string{"sitekeeper", "--site=./site", "members"},
			want: []string{"sitekeeper", "--site=./site", "records", "list", "members"},
		},
		{
			name: "kind after bool flag",
			in:   []string{"sitekeeper", "--pretty", "members"},
			want: []string{"sitekeeper", "--pretty", "records", "list", "members"},
		},
		{
			name: "kind after double dash",
			in:   []string{"sitekeeper", "--db", "x.db", "--", "projects"},
			want: []string{"sitekeeper", "--db", "x.db", "--", "records", "list", "projects"},
		},
		{
			name: "flag value that looks like a kind is not rewritten",
			in:   []string{"sitekeeper", "--site", "members", "serve"},
			want: []string{"sitekeeper", "--site", "members", "serve"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"sitekeeper", "records", "list", "members"},
			want: []string{"sitekeeper", "records", "list", "members"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"sitekeeper", "wat"},
			want: []string{"sitekeeper", "wat"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectKindArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectKindArgs(%v) = %v; want %v", tt.in, got, tt.want)
			}
		})
	}
}

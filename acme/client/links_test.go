package client

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinksByRel(t *testing.T) {
	base, err := url.Parse("https://acme.test/cert/1")
	require.NoError(t, err)

	tests := map[string]struct {
		values []string
		base   *url.URL
		want   []string
	}{
		"none": {
			values: nil,
		},
		"separate-headers": {
			values: []string{
				`<https://acme.test/cert/1/1>;rel="alternate"`,
				`<https://acme.test/dir>;rel="index"`,
				`<https://acme.test/cert/1/2>; rel="alternate"`,
			},
			want: []string{"https://acme.test/cert/1/1", "https://acme.test/cert/1/2"},
		},
		"one-header": {
			values: []string{`<https://acme.test/cert/1/1>;rel="alternate", <https://acme.test/cert/1/2>;rel=alternate`},
			want:   []string{"https://acme.test/cert/1/1", "https://acme.test/cert/1/2"},
		},
		"comma-in-target": {
			values: []string{`<https://acme.test/cert/1,1>;rel="alternate"`},
			want:   []string{"https://acme.test/cert/1,1"},
		},
		"multiple-rels": {
			values: []string{`<https://acme.test/cert/1/1>;rel="up Alternate"`},
			want:   []string{"https://acme.test/cert/1/1"},
		},
		"relative": {
			values: []string{`</cert/1/1>;rel="alternate"`},
			base:   base,
			want:   []string{"https://acme.test/cert/1/1"},
		},
		"malformed": {
			values: []string{`https://acme.test/cert/1/1;rel="alternate"`, `<https://acme.test/cert/1/2;rel="alternate"`},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := linksByRel(tc.values, "alternate", tc.base)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

package socrata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhere(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		q    string
		want string
	}{
		{name: "empty", q: "", want: ""},
		{name: "numeric", q: "37934", want: "dot_number=37934"},
		{name: "numeric with decimal", q: "12.5", want: "dot_number=12.5"},
		{name: "scientific notation parses as number", q: "1e3", want: "dot_number=1e3"},
		{name: "name token", q: "acme", want: "upper(legal_name) like upper('%25acme%25')"},
		{name: "mixed alphanumeric is a name", q: "37934x", want: "upper(legal_name) like upper('%2537934x%25')"},
		{name: "space encodes to %20", q: "acme trucking", want: "upper(legal_name) like upper('%25acme%20trucking%25')"},
		{name: "apostrophe is escaped", q: "o'brien", want: "upper(legal_name) like upper('%25o%27brien%25')"},
		{name: "percent sign is escaped", q: "100%", want: "upper(legal_name) like upper('%25100%25%25')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Where(tt.q))
		})
	}
}

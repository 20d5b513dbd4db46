package socrata

import (
	"net/url"
	"strconv"
	"strings"
)

// Where translates a free-text search token into a SoQL $where expression.
// A token that parses entirely as a number becomes an exact match on
// dot_number; anything else becomes a case-insensitive substring match on
// legal_name. An empty token yields an empty expression, meaning the
// $where clause must be omitted upstream entirely.
//
// The returned expression is embedded verbatim in the request query
// string, so the substring token is percent-encoded here and the SQL LIKE
// wildcards are carried pre-encoded as %25.
func Where(q string) string {
	if q == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(q, 64); err == nil {
		return "dot_number=" + q
	}
	return "upper(legal_name) like upper('%25" + encodeToken(q) + "%25')"
}

// encodeToken percent-encodes the search token for embedding in a query
// string. Spaces become %20, not "+": the token sits inside a SoQL string
// literal where "+" would be taken literally.
func encodeToken(q string) string {
	return strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}

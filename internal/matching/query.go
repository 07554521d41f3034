package matching

import (
	"slices"

	"github.com/getmockd/intercept/pkg/mock"
)

// MatchQueryParam checks if a query parameter carries the expected value.
// The value may use the same * patterns as headers.
func MatchQueryParam(key, expected string, query mock.Query) bool {
	for _, v := range query.Values(key) {
		if matchValuePattern(expected, v) {
			return true
		}
	}
	return false
}

// undeclaredQueryKeys returns the query keys not listed in declared.
func undeclaredQueryKeys(declared map[string]string, query mock.Query) []string {
	var extra []string
	for _, key := range query.Keys() {
		if _, ok := declared[key]; !ok {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)
	return extra
}

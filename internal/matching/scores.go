package matching

// Match score constants for body matching.
// Higher scores indicate more specific/precise matches.
const (
	// ScoreBodyEquals is the score for an exact body match.
	ScoreBodyEquals = 25
	// ScoreBodyPattern is the score for a body regex pattern match.
	// Between contains (20) and equals (25).
	ScoreBodyPattern = 22
	// ScoreBodyContains is the score for a body substring match.
	ScoreBodyContains = 20
	// ScoreBodyJSON is the score for a structural JSON body match.
	ScoreBodyJSON = 25
	// ScoreBodySchema is the score for a JSON Schema conformant body.
	ScoreBodySchema = 15
)

// Match score constants for path matching.
const (
	// ScorePathExact is the score for an exact path match.
	ScorePathExact = 15
	// ScorePathPattern is the score for a path regex pattern match.
	// Between exact (15) and named params (12).
	ScorePathPattern = 14
	// ScorePathNamedParams is the score for a path with named parameters match.
	ScorePathNamedParams = 12
	// ScorePathWildcard is the score for a wildcard path match.
	ScorePathWildcard = 10
)

// Match score constants for method, host, header, and query matching.
const (
	// ScoreMethod is the score for a method match.
	ScoreMethod = 10
	// ScoreHost is the score for a host match.
	ScoreHost = 10
	// ScoreHeader is the score for each header match.
	ScoreHeader = 10
	// ScoreHeaderAbsent is the score for each header that is required to be absent.
	ScoreHeaderAbsent = 5
	// ScoreStrictHeaders is the score for a request declaring no extra headers.
	ScoreStrictHeaders = 5
	// ScoreQueryParam is the score for each query parameter match.
	ScoreQueryParam = 5
	// ScoreQueryStrict is the score for a query without undeclared keys.
	ScoreQueryStrict = 5
)

// Match score constants for structured body conditions.
const (
	// ScoreJSONPathCondition is the score per matched JSONPath condition.
	ScoreJSONPathCondition = 15
	// ScoreXPathCondition is the score per matched XPath condition.
	ScoreXPathCondition = 15
	// ScoreGraphQL is the score for a GraphQL operation match.
	ScoreGraphQL = 20
	// ScoreJWTClaim is the score per matched bearer token claim.
	ScoreJWTClaim = 10
)

// Match score constants for programmable conditions.
// Kept low: they say little about how close a request came.
const (
	ScoreExpr      = 5
	ScorePredicate = 5
)

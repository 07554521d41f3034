package matching

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/getmockd/intercept/pkg/mock"
)

// graphqlOp identifies the operation a GraphQL request executes.
type graphqlOp struct {
	Name string
	Type string
}

func (o graphqlOp) String() string {
	if o.Name == "" {
		return o.Type
	}
	return o.Type + " " + o.Name
}

// graphqlOperation extracts the executed operation from a GraphQL over
// HTTP request. The document comes from the JSON body, or from the query
// string for GET requests.
func graphqlOperation(r *mock.Request) (graphqlOp, error) {
	var payload struct {
		Query         string `json:"query"`
		OperationName string `json:"operationName"`
	}
	if len(r.Body) > 0 {
		if err := json.Unmarshal(r.Body, &payload); err != nil {
			return graphqlOp{}, fmt.Errorf("body is not a GraphQL request: %w", err)
		}
	} else {
		payload.Query = r.Query.Get("query")
		payload.OperationName = r.Query.Get("operationName")
	}
	if payload.Query == "" {
		return graphqlOp{}, errors.New("no GraphQL query in request")
	}

	doc, err := parser.ParseQuery(&ast.Source{Input: payload.Query})
	if err != nil {
		return graphqlOp{}, fmt.Errorf("invalid GraphQL query: %v", err)
	}

	var op *ast.OperationDefinition
	switch {
	case payload.OperationName != "":
		op = doc.Operations.ForName(payload.OperationName)
	case len(doc.Operations) == 1:
		op = doc.Operations[0]
	}
	if op == nil {
		return graphqlOp{}, errors.New("cannot determine GraphQL operation")
	}
	return graphqlOp{Name: op.Name, Type: string(op.Operation)}, nil
}

func matchGraphQL(want *mock.GraphQLMatch, got graphqlOp) bool {
	if want.OperationName != "" && want.OperationName != got.Name {
		return false
	}
	if want.OperationType != "" && want.OperationType != got.Type {
		return false
	}
	return true
}

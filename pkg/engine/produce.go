package engine

import (
	"errors"

	"github.com/getmockd/intercept/internal/matching"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/template"
)

var errNilResponse = errors.New("responder returned no response")

// produce builds the response of a matched definition. Static responses
// are rendered fresh on every call, so callers may modify the result.
func (p *Pool) produce(def *mock.Definition, r *mock.Request, res matching.Result) (*mock.Response, error) {
	if def.Respond != nil {
		resp, err := def.Respond(r)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, errNilResponse
		}
		if resp.Header == nil {
			resp.Header = mock.Header{}
		}
		return resp, nil
	}

	resp := def.Response.Build()
	if !def.Response.Template {
		return resp, nil
	}

	ctx := template.NewContext(r)
	ctx.SetPathParams(res.PathParams)
	ctx.SetJSONPathMatches(res.JSONPath)
	if def.Matcher.PathPattern != "" {
		ctx.SetPathPatternCaptures(res.PathParams)
	}

	for name, values := range resp.Header {
		for i, v := range values {
			out, err := p.templates.Process(v, ctx)
			if err != nil {
				return nil, err
			}
			values[i] = out
		}
		resp.Header[name] = values
	}
	body, err := p.templates.Process(string(resp.Body), ctx)
	if err != nil {
		return nil, err
	}
	resp.Body = mock.Body(body)
	return resp, nil
}

// Package portability turns API descriptions into mock definitions.
//
// An OpenAPI 3.x or Swagger 2.0 document is parsed with kin-openapi and
// every operation becomes one definition: the method and templated path
// are matched, and the response is the preferred success response with a
// body taken from the document's examples or generated from its schema.
//
//	api, err := portability.LoadOpenAPI("openapi.yaml", portability.ImportOptions{})
//	if err != nil {
//	    return err
//	}
//	pool, err := engine.Build([]mock.Provider{api})
//
// The generated bodies are deterministic, so the same document always
// seeds the same pool.
package portability

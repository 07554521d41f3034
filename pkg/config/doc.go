// Package config loads mock definitions from fixture files.
//
// A fixture file is YAML or JSON and holds one of three shapes: a
// collection with a mocks list, a bare list of definitions, or a single
// definition.
//
//	version: "1"
//	name: users
//	mocks:
//	  - name: get user
//	    matcher:
//	      method: GET
//	      path: /users/{id}
//	    response:
//	      statusCode: 200
//	      body: {"id": "{{request.pathParam.id}}"}
//	      template: true
//	    times: 1
//
// ${VAR} and ${VAR:-default} are expanded from the environment before the
// file is parsed. Each file is checked against an embedded JSON Schema and
// then against the definition rules of package mock. A loaded Fixture is a
// mock.Provider, so fixtures feed engine.Build directly.
//
// Load accepts file paths, directories and glob patterns; ** matches any
// number of directories.
package config

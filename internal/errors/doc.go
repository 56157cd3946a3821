// Package errors provides coded, actionable errors for the backoffice
// command line.
//
// Operators meet these errors before the server is up: a malformed
// configuration file, a database that cannot be reached, a path that no
// route matches. Each error explains what went wrong and suggests a fix.
//
// # Error Categories
//
//   - config: backoffice.json problems
//   - route: route table and path resolution problems
//   - storage: database and attachment store problems
//   - server: listener and shutdown problems
//
// # Error Codes
//
// Each error has a unique code (e.g., "E101") that maps to a short message
// and a detailed explanation.
//
// # Usage
//
//	err := errors.New("E101").
//	    WithOffset("backoffice.json", data, syntaxErr.Offset).
//	    WithSuggestion("Check that backoffice.json is valid JSON")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E101: Invalid configuration file
//	//
//	//   backoffice.json:4:17
//	//
//	//        2 │   "server": {
//	//        3 │     "port": 8080,
//	//   →    4 │     "host": "0.0.0.0",,
//	//          │                       ^
//	//        5 │   }
//	//
//	//   Hint: Check that backoffice.json is valid JSON
package errors

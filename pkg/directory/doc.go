// Package directory resolves addressable entities by type name.
//
// Template variables of type random or query name an entity type ("member",
// "order") and, for queries, a filter string. The Registry maps those names to
// a Source populated at process start:
//
//	reg := directory.NewRegistry()
//	reg.Register("member", directory.NewMemorySource(members...))
//
//	src, err := reg.Lookup("member")
//	if err != nil {
//		// errors.Is(err, directory.ErrUnknownType)
//	}
//
//	filters, err := directory.ParseQuery("Name:StartsWith=Uncle&Status=Active")
//	matches, err := src.Query(ctx, filters, 5)
//
// # Query syntax
//
// A query is a list of "Field[:Operator]=Value" pairs joined by "&". Values are
// URL-unescaped. Operators: exact (default), startswith, endswith, partialmatch,
// greaterthan, greaterthanorequal, lessthan, lessthanorequal, not.
//
// # Sources
//
// MemorySource keeps entities in process. PostgresSource maps an entity type onto
// a table; only configured columns can be filtered or rendered, and filter values
// are always passed as query parameters.
package directory

// Package catalog defines the types shared by the query and cache layer:
// page types, catalog rows, and parameterized SQL clauses.
package catalog

// Package types provides the documentation entity model shared by the
// extractor, storage and the MCP server.
//
// # Entities
//
// Extraction turns one Perl file into an ordered list of Entity values:
//
//	*Comment   a block of '#' comment lines
//	*DocBlock  a POD block, optionally split into a DESCRIPTION and named sections
//	*Module    a package declaration (name, superclass)
//	*Function  a named sub (visibility, body, parameters)
//
// Every entity embeds Code, which carries the raw text, the line the scope
// opened on, the source identifier and the active @group:
//
//	sub := types.NewFunction(types.Code{Line: 12, SourceID: "lib/My/Widget.pm"})
//	sub.Name = "_helper"
//	sub.Visibility() // VisibilityProtected
//
// Only documentation and visibility change after an entity is created.
//
// # Records
//
// Record is the flat, serializable form of an entity used for output and
// storage:
//
//	for _, rec := range result.Records() {
//	    fmt.Println(rec.Kind, rec.Name, rec.Line)
//	}
//
// # Search Results
//
// SearchResult pairs a stored Record with its rank and a relevance score
// normalized to the [0, 1] range.
package types

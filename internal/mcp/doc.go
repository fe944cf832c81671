// Package mcp implements the Model Context Protocol (MCP) server for podextract.
//
// The server exposes four tools to AI coding assistants:
//   - index_perl_docs: extract and index the documentation of a Perl tree
//   - search_docs: keyword search over indexed packages, subs and POD
//   - lookup_symbol: fetch the documentation of one package or sub by name
//   - get_status: check indexing status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started by the serve command:
//
//	podextract serve
//
// It listens on stdin and writes responses to stdout, so all logging goes
// to stderr.
//
// # Tool: index_perl_docs
//
//	Request:
//	{
//	  "path": "/home/dev/My-Widget",
//	  "exclude": ["blib/**", "local/**"]
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "run_id": "4f0c...",
//	  "files_indexed": 12,
//	  "files_skipped": 40,
//	  "files_failed": 0,
//	  "files_removed": 1,
//	  "entities_extracted": 87,
//	  "duration_ms": 35
//	}
//
// Files are re-parsed only when their content hash changed. Files that
// cannot be tokenized are stored with their parse error and counted as
// failed; the first few messages are echoed in "errors". Only one run per
// path may be active; a second call fails with -32002.
//
// # Tool: search_docs
//
//	Request:
//	{
//	  "path": "/home/dev/My-Widget",
//	  "query": "frob widget",
//	  "limit": 5,
//	  "filters": {"kinds": ["function"], "namespace": "My", "file_pattern": "lib/**"}
//	}
//
// Each result carries rank, score (relative to the best match), kind,
// name, file, line, a one-line snippet and the full docstring.
//
// # Tool: lookup_symbol
//
//	Request:  {"path": "/home/dev/My-Widget", "name": "My::Widget", "kinds": ["module"]}
//	Response: {"name": "My::Widget", "found": true, "entries": [{"kind": "module", ...}]}
//
// # Error Codes
//
//   - -32602: invalid parameters (missing path, relative path, bad limit)
//   - -32603: internal error
//   - -32001: path contains no Perl sources
//   - -32002: indexing already in progress for the path
//   - -32003: project not indexed
//   - -32004: empty query or name
package mcp

// Package lockfile parses block-oriented lock files such as yarn.lock.
//
// A lock file is a sequence of entries. Each entry starts with an
// unindented header listing one or more identities that resolve to the same
// package, followed by an indented body of scalar fields and nested
// dependency lists:
//
//	"@babel/code-frame@^7.0.0", "@babel/code-frame@^7.10.4":
//	  version "7.12.13"
//	  dependencies:
//	    "@babel/highlight" "^7.12.13"
//
// [Parser] walks the file one block at a time. Body lines are claimed by
// [ElementParser] implementations based on their shape; a line no parser
// claims is skipped so newer lock file dialects keep parsing. Each block is
// assembled by an [EntryBuilder], which refuses to produce an [Entry]
// without an identity and a resolved version.
//
// Scalar lines are normalized the same way regardless of surface syntax:
// `key value`, `key "value"`, `key: value` and `key: "value"` all yield
// value. That covers both the classic (v1) and the YAML-flavoured (v2+)
// yarn formats.
package lockfile

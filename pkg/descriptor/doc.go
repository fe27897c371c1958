// Package descriptor parses extension descriptor resources.
//
// # Overview
//
// A descriptor is a line oriented text resource that maps extension names to
// implementation identifiers for one extension point:
//
//	# comments start with '#'
//	json,JSON = github.com/acme/codec.JSON (mime=application/json,default)
//	+logging  = github.com/acme/codec.Logging
//	*adaptive = github.com/acme/codec.Adaptive
//
// A name prefixed with '*' designates the adaptive implementation, a name
// prefixed with '+' designates a wrapper. Plain names may be comma separated
// to bind one implementation under several names. The optional parenthesized
// suffix carries attributes ("key=value" pairs or bare flags).
//
// # Parsing
//
// Parse reads a whole resource and never stops at a malformed line: every
// line either yields an Entry or a LineError, so one bad line cannot hide the
// rest of the file.
//
//	result, err := descriptor.Parse(r)
//	if err != nil {
//		return err // read failure
//	}
//	for _, e := range result.Entries {
//		fmt.Println(e.Kind, e.Names, e.Class)
//	}
//
// Resolving implementation identifiers is not done here; see pkg/extension.
package descriptor

// Package syntax provides file-name based language detection.
//
// Detection is intentionally shallow: it looks only at the file name,
// never at content. The result selects which plugins attach to a buffer
// and is reported to plugins as buffer metadata.
package syntax

import "strings"

// Definition identifies a recognized language.
type Definition int

// The closed set of recognized languages.
const (
	Plaintext Definition = iota
	Markdown
	Python
	Rust
	C
	Go
	Dart
	Swift
	Toml
	JSON
	Yaml
	Cpp
	ObjC
	Shell
	Ruby
	JavaScript
	Java
	PHP
	Perl
	Makefile
)

// extensions maps a lower-cased file extension to its language.
// Several extensions may map to the same language.
var extensions = map[string]Definition{
	"rs":    Rust,
	"md":    Markdown,
	"mdown": Markdown,
	"py":    Python,
	"c":     C,
	"h":     C,
	"go":    Go,
	"dart":  Dart,
	"swift": Swift,
	"toml":  Toml,
	"json":  JSON,
	"yaml":  Yaml,
	"cc":    Cpp,
	"m":     ObjC,
	"sh":    Shell,
	"zsh":   Shell,
	"rb":    Ruby,
	"js":    JavaScript,
	"java":  Java,
	"jav":   Java,
	"php":   PHP,
	"pl":    Perl,
}

// names maps each language to its wire name. Decoding accepts any of
// these names case-insensitively.
var names = map[Definition]string{
	Plaintext:  "plaintext",
	Markdown:   "markdown",
	Python:     "python",
	Rust:       "rust",
	C:          "c",
	Go:         "go",
	Dart:       "dart",
	Swift:      "swift",
	Toml:       "toml",
	JSON:       "json",
	Yaml:       "yaml",
	Cpp:        "cpp",
	ObjC:       "objc",
	Shell:      "shell",
	Ruby:       "ruby",
	JavaScript: "javascript",
	Java:       "java",
	PHP:        "php",
	Perl:       "perl",
	Makefile:   "makefile",
}

var byName = func() map[string]Definition {
	m := make(map[string]Definition, len(names))
	for def, name := range names {
		m[name] = def
	}
	return m
}()

// Detect classifies a file name or bare extension. It is total: any
// input it does not recognize classifies as Plaintext. Matching is
// case-insensitive. The literal name "makefile" is recognized before
// extension lookup, following build-file convention.
func Detect(nameOrExt string) Definition {
	s := strings.ToLower(nameOrExt)
	if s == "makefile" {
		return Makefile
	}
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 {
		s = s[idx+1:]
	}
	if def, ok := extensions[s]; ok {
		return def
	}
	return Plaintext
}

// String returns the language's wire name.
func (d Definition) String() string {
	if name, ok := names[d]; ok {
		return name
	}
	return "plaintext"
}

// MarshalText implements encoding.TextMarshaler.
func (d Definition) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names
// decode as Plaintext rather than failing, matching Detect.
func (d *Definition) UnmarshalText(text []byte) error {
	if def, ok := byName[strings.ToLower(string(text))]; ok {
		*d = def
	} else {
		*d = Plaintext
	}
	return nil
}

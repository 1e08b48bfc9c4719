package syntax_test

import (
	"encoding/json"
	"testing"

	"github.com/dshills/textcore/internal/syntax"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		want syntax.Definition
	}{
		{"plugins.rs", syntax.Rust},
		{"plugins.py", syntax.Python},
		{"header.h", syntax.C},
		{"main.ada", syntax.Plaintext},
		{"build", syntax.Plaintext},
		{"build.test.sh", syntax.Shell},
		{"Makefile", syntax.Makefile},
		{"makefile", syntax.Makefile},
		{"MAIN.GO", syntax.Go},
		{"notes.mdown", syntax.Markdown},
		{"", syntax.Plaintext},
		{".bashrc", syntax.Plaintext},
		{"config.toml", syntax.Toml},
		{"lib.jav", syntax.Java},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := syntax.Detect(tt.name); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestDefinitionJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(syntax.Toml)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"toml"` {
		t.Errorf("marshal = %s, want %q", data, `"toml"`)
	}

	var def syntax.Definition
	if err := json.Unmarshal([]byte(`"Rust"`), &def); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if def != syntax.Rust {
		t.Errorf("unmarshal = %v, want Rust", def)
	}
}

func TestDefinitionUnknownNameDecodesPlaintext(t *testing.T) {
	var def syntax.Definition
	if err := json.Unmarshal([]byte(`"fortran"`), &def); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if def != syntax.Plaintext {
		t.Errorf("unknown name = %v, want Plaintext", def)
	}
}

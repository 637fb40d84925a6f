// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Thing: {
	name:  string
	count: int & >=0
}
`

type thing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseAndDecodeString(t *testing.T) {
	t.Parallel()

	t.Run("valid input decodes", func(t *testing.T) {
		t.Parallel()
		res, err := ParseAndDecodeString[thing](testSchema, []byte(`name: "jq", count: 2`), "#Thing")
		if err != nil {
			t.Fatalf("ParseAndDecodeString() error = %v", err)
		}
		if res.Value.Name != "jq" || res.Value.Count != 2 {
			t.Errorf("decoded = %+v, want {jq 2}", *res.Value)
		}
	})

	t.Run("schema violation fails", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecodeString[thing](testSchema, []byte(`name: "jq", count: -1`), "#Thing")
		if err == nil {
			t.Fatal("ParseAndDecodeString() error = nil, want validation error")
		}
	})

	t.Run("syntax error reports filename", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecodeString[thing](testSchema, []byte(`name: `), "#Thing", WithFilename("bad.cue"))
		if err == nil {
			t.Fatal("ParseAndDecodeString() error = nil, want parse error")
		}
		if !strings.Contains(err.Error(), "bad.cue") {
			t.Errorf("error %q does not mention filename", err)
		}
	})

	t.Run("missing schema definition", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecodeString[thing](testSchema, []byte(`name: "x", count: 0`), "#Missing")
		if err == nil {
			t.Fatal("ParseAndDecodeString() error = nil, want schema lookup error")
		}
	})

	t.Run("oversized input rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecodeString[thing](testSchema, []byte(`name: "x", count: 0`), "#Thing", WithMaxFileSize(4))
		if err == nil {
			t.Fatal("ParseAndDecodeString() error = nil, want size error")
		}
	})
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 10), 10, "ok.cue"); err != nil {
		t.Errorf("CheckFileSize() at limit returned error: %v", err)
	}
	err := CheckFileSize(make([]byte, 11), 10, "big.cue")
	if err == nil {
		t.Fatal("CheckFileSize() over limit returned nil")
	}
	if !strings.Contains(err.Error(), "big.cue") {
		t.Errorf("error %q does not mention filename", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"name"}, "name"},
		{"nested", []string{"analysis", "max_depth"}, "analysis.max_depth"},
		{"index", []string{"files", "0", "path"}, "files[0].path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatPath(tt.path); got != tt.want {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

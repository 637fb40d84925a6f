// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// aliasFile is the on-disk shape of the user alias table:
//
//	[aliases]
//	ll = "ls -la"
//	k  = "kubectl"
type aliasFile struct {
	Aliases map[string]string `toml:"aliases"`
}

// LoadAliasFile reads a TOML alias table. A missing file is not an error:
// it simply yields an empty table, since most users never define aliases.
func LoadAliasFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}

	var parsed aliasFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%s: failed to parse alias file: %w", path, err)
	}

	aliases := make(map[string]string, len(parsed.Aliases))
	for name, expansion := range parsed.Aliases {
		name = strings.TrimSpace(name)
		expansion = strings.TrimSpace(expansion)
		if name == "" || expansion == "" {
			return nil, fmt.Errorf("%s: alias entries must have non-empty names and expansions", path)
		}
		aliases[strings.ToLower(name)] = expansion
	}

	return aliases, nil
}

// aliasTarget extracts the command an alias expansion invokes: its first
// word. Flags and arguments baked into the expansion are irrelevant to
// dependency resolution.
func aliasTarget(expansion string) string {
	fields := strings.Fields(expansion)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SPDX-License-Identifier: MPL-2.0

package registry

// shellBuiltins lists the bash builtin commands (plus the POSIX special
// builtins). Names resolved here report CoreSource as their origin.
var shellBuiltins = []string{
	".",
	":",
	"[",
	"alias",
	"bg",
	"bind",
	"break",
	"builtin",
	"caller",
	"cd",
	"command",
	"compgen",
	"complete",
	"compopt",
	"continue",
	"declare",
	"dirs",
	"disown",
	"echo",
	"enable",
	"eval",
	"exec",
	"exit",
	"export",
	"false",
	"fc",
	"fg",
	"getopts",
	"hash",
	"help",
	"history",
	"jobs",
	"kill",
	"let",
	"local",
	"logout",
	"mapfile",
	"popd",
	"printf",
	"pushd",
	"pwd",
	"read",
	"readarray",
	"readonly",
	"return",
	"set",
	"shift",
	"shopt",
	"source",
	"suspend",
	"test",
	"times",
	"trap",
	"true",
	"type",
	"typeset",
	"ulimit",
	"umask",
	"unalias",
	"unset",
	"wait",
}

func builtinSet() map[string]struct{} {
	set := make(map[string]struct{}, len(shellBuiltins))
	for _, name := range shellBuiltins {
		set[name] = struct{}{}
	}
	return set
}

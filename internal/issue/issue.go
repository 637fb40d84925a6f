// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ScriptNotFoundId Id = iota + 1
	ScriptParseErrorId
	PackNotFoundId
	PackParseErrorId
	PackCollisionId
	AliasFileParseErrorId
	ConfigLoadFailedId
	SourceNotApprovedId
	DepthCapReachedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	scriptNotFoundIssue = &Issue{
		id: ScriptNotFoundId,
		mdMsg: `
# Script not found!

We could not read the script you asked us to analyze.

## Things you can try:
- Check the path for typos
- Analyze from standard input instead:
~~~
$ cat myscript.sh | shdeps analyze -
~~~

- Pass the script text directly:
~~~
$ shdeps analyze --command 'deploy_widget --fast'
~~~`,
	}

	scriptParseErrorIssue = &Issue{
		id: ScriptParseErrorId,
		mdMsg: `
# Failed to parse script!

The script contains shell syntax we could not parse. Nothing gets analyzed
until the script parses cleanly.

## Common issues:
- Unclosed quotes or here-documents
- An ` + "`if`/`for`/`while`" + ` without its closing keyword
- Stray control operators

## Things you can try:
- Check the error message above for the specific line/column
- Run the script through ` + "`bash -n`" + ` to confirm the syntax error
- Analyze a smaller fragment to narrow it down`,
	}

	packNotFoundIssue = &Issue{
		id: PackNotFoundId,
		mdMsg: `
# Source pack not found!

We searched for a source pack but couldn't find one in the expected locations.

## Search locations (in order of precedence):
1. Current directory
2. ~/.shdeps/sources/
3. Paths configured in your config file

## Things you can try:
- Create a source pack in your current directory:
~~~
$ shdeps source init toolkit
~~~

- List the packs we can see:
~~~
$ shdeps source list
~~~

## Example pack structure:
~~~
toolkit.shpack/
├── sourcepack.cue
└── lib.sh
~~~`,
	}

	packParseErrorIssue = &Issue{
		id: PackParseErrorId,
		mdMsg: `
# Failed to load source pack!

The pack's manifest or one of its library files is invalid.

## Common issues:
- Invalid CUE syntax in sourcepack.cue
- Manifest name not matching the directory name
- Shell syntax errors in a *.sh library file
- The same function defined in two library files

## Things you can try:
- Validate the pack and see every problem at once:
~~~
$ shdeps source validate ./toolkit.shpack
~~~

- Check the error message above for the specific file

## Example of a valid manifest:
~~~cue
name: "toolkit"
description: "Deployment helpers"
~~~`,
	}

	packCollisionIssue = &Issue{
		id: PackCollisionId,
		mdMsg: `
# Source pack name collision!

Two or more included packs resolve to the same identifier, so lookups
would be ambiguous.

## Things you can try:
- Give the colliding entries unique aliases in your config:
~~~cue
includes: [
	{path: "/work/a/toolkit.shpack", alias: "work"},
	{path: "/home/me/toolkit.shpack", alias: "mine"},
]
~~~

- Or remove one of the entries`,
	}

	aliasFileParseErrorIssue = &Issue{
		id: AliasFileParseErrorId,
		mdMsg: `
# Failed to parse alias file!

Your alias definitions file contains invalid TOML or empty entries.

## Expected format:
~~~toml
[aliases]
ll = "ls -la"
gst = "git status"
~~~

## Things you can try:
- Check the error message above for the offending key
- Point at a different file:
~~~
$ shdeps analyze --alias-file ./aliases.toml myscript.sh
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the shdeps configuration file.

## Configuration file locations:
- Linux: ~/.config/shdeps/config.cue
- macOS: ~/Library/Application Support/shdeps/config.cue
- Windows: %APPDATA%\shdeps\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ shdeps config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/shdeps/config.cue
~~~

## Example configuration:
~~~cue
approved_sources: ["toolkit"]

registry: {
	scan_path: true
}

ui: {
	color_scheme: "auto"
	verbose: false
}
~~~`,
	}

	sourceNotApprovedIssue = &Issue{
		id: SourceNotApprovedId,
		mdMsg: `
# Source not approved!

A definition was found in a source pack, but that pack is not on your
approved list, so it will not be inlined.

## Things you can try:
- Approve the pack for this run:
~~~
$ shdeps analyze --source toolkit myscript.sh
~~~

- Or approve it permanently in your config:
~~~cue
approved_sources: ["toolkit"]
~~~`,
	}

	depthCapReachedIssue = &Issue{
		id: DepthCapReachedId,
		mdMsg: `
# Analysis depth cap reached!

Recursive expansion stopped before the dependency closure settled. Results
up to the cap are still reported.

## Common causes:
- An explicit --max-depth that is too small for your packs
- A registry answering inconsistently between lookups

## Things you can try:
- Raise or drop the cap:
~~~
$ shdeps analyze --recurse --max-depth 0 myscript.sh
~~~

- Run with --verbose to see which level stopped`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Common causes:
- Script or pack files not readable by your user
- Trying to write config into a protected directory

## Things you can try:
- Check file/directory permissions
- Run shdeps from a directory you own`,
	}

	issues = map[Id]*Issue{
		scriptNotFoundIssue.Id():      scriptNotFoundIssue,
		scriptParseErrorIssue.Id():    scriptParseErrorIssue,
		packNotFoundIssue.Id():        packNotFoundIssue,
		packParseErrorIssue.Id():      packParseErrorIssue,
		packCollisionIssue.Id():       packCollisionIssue,
		aliasFileParseErrorIssue.Id(): aliasFileParseErrorIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		sourceNotApprovedIssue.Id():   sourceNotApprovedIssue,
		depthCapReachedIssue.Id():     depthCapReachedIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}

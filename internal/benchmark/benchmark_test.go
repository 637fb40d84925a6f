// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shdeps-cli/internal/registry"
	"shdeps-cli/internal/resolve"
	"shdeps-cli/internal/script"
	"shdeps-cli/pkg/sourcepack"
)

// sampleScript is a representative deployment script: local functions, a
// pipeline, builtins, and a couple of calls that resolve out of packs.
const sampleScript = `#!/usr/bin/env bash
set -euo pipefail

log() {
  echo "[deploy] $1"
}

check_prereqs() {
  command -v tar
}

log "starting"
check_prereqs
build_artifact --target release | tee build.log
push_artifact build.log
notify_team "deploy finished"
log "done"
`

// writeBenchPack writes a pack whose functions chain into each other so the
// recursive benchmarks exercise more than one analysis level.
func writeBenchPack(b *testing.B, dir, name string) string {
	b.Helper()

	packDir := filepath.Join(dir, name+".shpack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		b.Fatalf("mkdir pack: %v", err)
	}

	manifest := fmt.Sprintf("name: %q\n", name)
	if err := os.WriteFile(filepath.Join(packDir, "sourcepack.cue"), []byte(manifest), 0o644); err != nil {
		b.Fatalf("write manifest: %v", err)
	}

	var lib strings.Builder
	lib.WriteString("build_artifact() {\n  _compile \"$@\"\n}\n\n")
	lib.WriteString("push_artifact() {\n  upload_blob \"$1\"\n}\n\n")
	lib.WriteString("upload_blob() {\n  echo \"uploading $1\"\n}\n\n")
	lib.WriteString("notify_team() {\n  echo \"$1\"\n}\n\n")
	lib.WriteString("_compile() {\n  echo compiling\n}\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&lib, "\nhelper_%02d() {\n  echo %d\n}\n", i, i)
	}
	if err := os.WriteFile(filepath.Join(packDir, "lib.sh"), []byte(lib.String()), 0o644); err != nil {
		b.Fatalf("write library: %v", err)
	}

	return packDir
}

func benchAnalyzer(b *testing.B) *resolve.Analyzer {
	b.Helper()

	packDir := writeBenchPack(b, b.TempDir(), "toolkit")
	pack, err := sourcepack.Load(packDir)
	if err != nil {
		b.Fatalf("load pack: %v", err)
	}

	host := registry.NewHost(
		[]*sourcepack.Pack{pack},
		registry.WithPathScan(false),
	)
	return resolve.New(host)
}

func BenchmarkScriptParse(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := script.Parse(sampleScript, "bench.sh"); err != nil {
			b.Fatalf("Parse() error: %v", err)
		}
	}
}

func BenchmarkSourcePackLoad(b *testing.B) {
	packDir := writeBenchPack(b, b.TempDir(), "toolkit")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sourcepack.Load(packDir); err != nil {
			b.Fatalf("Load() error: %v", err)
		}
	}
}

func BenchmarkRegistryLookup(b *testing.B) {
	packDir := writeBenchPack(b, b.TempDir(), "toolkit")
	pack, err := sourcepack.Load(packDir)
	if err != nil {
		b.Fatalf("load pack: %v", err)
	}
	host := registry.NewHost([]*sourcepack.Pack{pack}, registry.WithPathScan(false))
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := host.Lookup(ctx, "push_artifact"); err != nil {
			b.Fatalf("Lookup() error: %v", err)
		}
	}
}

func BenchmarkAnalyzeFlat(b *testing.B) {
	analyzer := benchAnalyzer(b)
	ctx := context.Background()
	req := resolve.Request{
		Script:          sampleScript,
		Name:            "bench.sh",
		ApprovedSources: []string{"toolkit"},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := analyzer.Analyze(ctx, req); err != nil {
			b.Fatalf("Analyze() error: %v", err)
		}
	}
}

func BenchmarkAnalyzeRecursive(b *testing.B) {
	analyzer := benchAnalyzer(b)
	ctx := context.Background()
	req := resolve.Request{
		Script:            sampleScript,
		Name:              "bench.sh",
		ApprovedSources:   []string{"toolkit"},
		ExpandRecursively: true,
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := analyzer.Analyze(ctx, req); err != nil {
			b.Fatalf("Analyze() error: %v", err)
		}
	}
}

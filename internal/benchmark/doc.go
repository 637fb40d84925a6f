// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// These benchmarks cover the hot paths of the shdeps codebase:
//   - Script parsing and candidate extraction
//   - Source pack loading (CUE manifest validation plus function scanning)
//   - Registry lookups
//   - End-to-end analysis, flat and recursive
//
// To generate a PGO profile, run:
//
//	go test -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark

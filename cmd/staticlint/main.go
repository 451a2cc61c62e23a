/*
Staticlint runs the project's static analysis suite through multichecker.

# How it works

The program uses golang.org/x/tools/go/analysis/multichecker to run a set of
analysis.Analyzer values over Go source. multichecker combines the analyzers
so a single command runs all of them.

The suite contains:

 1. analyzers from golang.org/x/tools/go/analysis/passes;
 2. every SA check of honnef.co/go/tools/staticcheck;
 3. QF1001 from quickfix and ST1005 from stylecheck;
 4. osexit, which forbids a direct os.Exit call inside main.main.

Usage:

	go run ./cmd/staticlint ./...

# Standard analyzers

These live in golang.org/x/tools/go/analysis/passes and catch common
mistakes:

  - appends: append calls with a single argument.
  - assign: useless self-assignments.
  - atomic: x = atomic.AddInt64(&x, 1) style misuse of sync/atomic.
  - bools: redundant or suspicious boolean expressions.
  - buildtag: malformed build tags.
  - composite: unkeyed fields in composite literals of imported types.
  - copylock: locks passed by value.
  - defers: defer of time.Since and similar eager evaluations.
  - directive: misplaced or unknown //go: directives.
  - errorsas: non-pointer second argument to errors.As.
  - httpresponse: using an HTTP response before checking the error.
  - ifaceassert: impossible interface-to-interface assertions.
  - loopclosure: loop variables captured by goroutines.
  - lostcancel: context.CancelFunc that is never called.
  - nilfunc: comparisons of functions with nil.
  - printf: format string and argument mismatches.
  - shift: shifts that equal or exceed the integer width.
  - sigchanyzer: unbuffered channels passed to signal.Notify.
  - stdmethods: misspelled well-known method signatures (String, ServeHTTP).
  - stringintconv: string(int) conversions.
  - structtag: malformed struct tags.
  - testinggoroutine: t.Fatal called from goroutines started by a test.
  - tests: malformed test, benchmark and example names.
  - timeformat: time formats using 2006-02-01.
  - unmarshal: non-pointer values passed to Unmarshal.
  - unreachable: code after return or panic.
  - unusedresult: ignored results of pure functions such as fmt.Sprintf.
  - waitgroup: sync.WaitGroup.Add called inside the goroutine.

# Staticcheck

Only the SA group of honnef.co/go/tools/staticcheck is enabled: these are
the checks that find real bugs (invalid API usage, suspicious constructs,
dead stores, concurrency mistakes).

# Quickfix and stylecheck

  - QF1001: apply De Morgan's law to simplify a negated condition.
  - ST1005: error strings should not be capitalized or end with punctuation.

# osexit

The osexit analyzer reports os.Exit called directly in the main function of
package main. Exiting there skips deferred cleanup; main should return an
error to a helper instead. A report looks like:

	os.Exit call is forbidden in main function: os.Exit(1)
*/
package main

import (
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/appends"
	"golang.org/x/tools/go/analysis/passes/assign"
	"golang.org/x/tools/go/analysis/passes/atomic"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/buildtag"
	"golang.org/x/tools/go/analysis/passes/composite"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/defers"
	"golang.org/x/tools/go/analysis/passes/directive"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/ifaceassert"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilfunc"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shift"
	"golang.org/x/tools/go/analysis/passes/sigchanyzer"
	"golang.org/x/tools/go/analysis/passes/stdmethods"
	"golang.org/x/tools/go/analysis/passes/stringintconv"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/testinggoroutine"
	"golang.org/x/tools/go/analysis/passes/tests"
	"golang.org/x/tools/go/analysis/passes/timeformat"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"golang.org/x/tools/go/analysis/passes/unusedresult"
	"golang.org/x/tools/go/analysis/passes/waitgroup"
	"honnef.co/go/tools/quickfix"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"
)

// extraChecks are the non-SA checks enabled by name.
var extraChecks = map[string]bool{
	"QF1001": true,
	"ST1005": true,
}

func analyzers() []*analysis.Analyzer {
	used := map[string]bool{}
	var out []*analysis.Analyzer

	add := func(a *analysis.Analyzer) {
		if !used[a.Name] {
			out = append(out, a)
			used[a.Name] = true
		}
	}

	for _, a := range []*analysis.Analyzer{
		appends.Analyzer,
		assign.Analyzer,
		atomic.Analyzer,
		bools.Analyzer,
		buildtag.Analyzer,
		composite.Analyzer,
		copylock.Analyzer,
		defers.Analyzer,
		directive.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		ifaceassert.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		nilfunc.Analyzer,
		printf.Analyzer,
		shift.Analyzer,
		sigchanyzer.Analyzer,
		stdmethods.Analyzer,
		stringintconv.Analyzer,
		structtag.Analyzer,
		testinggoroutine.Analyzer,
		tests.Analyzer,
		timeformat.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,
		unusedresult.Analyzer,
		waitgroup.Analyzer,
	} {
		add(a)
	}

	for _, a := range staticcheck.Analyzers {
		if strings.HasPrefix(a.Analyzer.Name, "SA") {
			add(a.Analyzer)
		}
	}

	for _, a := range quickfix.Analyzers {
		if extraChecks[a.Analyzer.Name] {
			add(a.Analyzer)
		}
	}
	for _, a := range stylecheck.Analyzers {
		if extraChecks[a.Analyzer.Name] {
			add(a.Analyzer)
		}
	}

	add(OSExitAnalyzer)

	return out
}

func main() {
	multichecker.Main(analyzers()...)
}

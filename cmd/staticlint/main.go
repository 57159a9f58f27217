// Command staticlint bundles the analyzers the project is checked with
// into a single multichecker binary: a set of go vet passes, two
// third-party analyzers, the project's own JWT analyzer and the
// staticcheck analyzers listed in config.json.
//
// config.json is looked up next to the executable unless the
// STATICLINT_CONFIG environment variable points somewhere else.
package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/userauth/cmd/staticlint/nounverifiedjwt"
)

const configFileName = `config.json`

// ConfigData lists the staticcheck analyzers to enable, e.g. "SA1000".
type ConfigData struct {
	Staticcheck []string
}

func configPath() (string, error) {
	if path := os.Getenv("STATICLINT_CONFIG"); path != "" {
		return path, nil
	}

	executable, err := os.Executable()
	if err != nil {
		return "", err
	}

	return filepath.Join(filepath.Dir(executable), configFileName), nil
}

func loadConfig() (ConfigData, error) {
	var cfg ConfigData

	path, err := configPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(data, &cfg)
	return cfg, err
}

func selectStaticcheck(names []string) []*analysis.Analyzer {
	enabled := make(map[string]bool, len(names))
	for _, name := range names {
		enabled[name] = true
	}

	var selected []*analysis.Analyzer
	for _, v := range staticcheck.Analyzers {
		if enabled[v.Analyzer.Name] {
			selected = append(selected, v.Analyzer)
		}
	}

	return selected
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer, // response bodies the router tests open
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer, // bun/json/env/validate tags
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		nounverifiedjwt.Analyzer,
	}

	multichecker.Main(append(checks, selectStaticcheck(cfg.Staticcheck)...)...)
}

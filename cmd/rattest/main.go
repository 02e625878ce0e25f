package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xplshn/ratc/pkg/codegen"
	"github.com/xplshn/ratc/pkg/compiler"
	"github.com/xplshn/ratc/pkg/config"
)

// Golden is what a source file is expected to compile to.
type Golden struct {
	Hash     string   `json:"hash"`
	OK       bool     `json:"ok"`
	Listing  string   `json:"listing,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type FileTestResult struct {
	File     string        `json:"file"`
	Status   string        `json:"status"` // PASS, FAIL, STALE, SKIP, ERROR
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Duration time.Duration `json:"duration"`
}

var (
	generateGolden = flag.Bool("generate-golden", false, "Write golden .json files for every matched source file.")
	testFiles      = flag.String("test-files", "tests/*.rat", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ratcFlags      = flag.String("flags", "", "-W/-F switches applied to every compile (space-separated).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	if *jobs < 1 {
		*jobs = 1
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	if *generateGolden {
		for _, file := range files {
			if err := writeGolden(file); err != nil {
				log.Fatalf("%s[ERROR]%s Could not generate golden file for %s: %v\n", cRed, cNone, file, err)
			}
			log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, getJSONPath(file))
		}
		return
	}

	results := runSuite(files)
	printSummary(results)
	writeJSONReport(results)
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

func newConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	for _, f := range strings.Fields(*ratcFlags) {
		if err := cfg.ApplyFlag(f); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

func hashSource(src []byte) string {
	return fmt.Sprintf("%x", xxhash.Sum64(src))
}

// compileGolden compiles src in-process and records what came out.
func compileGolden(src []byte) (*Golden, error) {
	cfg, err := newConfig()
	if err != nil {
		return nil, err
	}
	g := &Golden{Hash: hashSource(src)}
	res, err := compiler.Compile(string(src), cfg)
	if err != nil {
		g.Error = err.Error()
		return g, nil
	}
	out, err := codegen.NewListingBackend().Generate(res.Program, res.Symbols, cfg)
	if err != nil {
		return nil, err
	}
	g.OK, g.Listing = true, out.String()
	for _, w := range res.Warnings {
		if cfg.IsWarningEnabled(w.Kind) {
			g.Warnings = append(g.Warnings, fmt.Sprintf("%d:%d: %s [-W%s]", w.Tok.Line, w.Tok.Column, w.Msg, cfg.Warnings[w.Kind].Name))
		}
	}
	return g, nil
}

func writeGolden(sourceFile string) error {
	src, err := os.ReadFile(sourceFile)
	if err != nil {
		return err
	}
	g, err := compileGolden(src)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data to JSON: %w", err)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(getJSONPath(sourceFile), data, 0o644)
}

func runSuite(files []string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file)
			}
		}()
	}

	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var all []*FileTestResult
	for r := range resultsChan {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return all
}

func testFile(file string) *FileTestResult {
	start := time.Now()
	src, err := os.ReadFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read source: %v", err)}
	}

	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	var want Golden
	if err := json.Unmarshal(goldenData, &want); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	got, err := compileGolden(src)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	if *verbose {
		log.Printf("[%s] compiled in %v (hash %s)", file, time.Since(start), got.Hash)
	}

	res := &FileTestResult{File: file, Duration: time.Since(start)}
	if diff := cmp.Diff(&want, got, cmpopts.IgnoreFields(Golden{}, "Hash"), cmpopts.EquateEmpty()); diff != "" {
		res.Status, res.Message, res.Diff = "FAIL", "Output does not match golden file (-want +got)", diff
		return res
	}
	if want.Hash != got.Hash {
		res.Status, res.Message = "STALE", "Output matches, but the source changed since the golden file was written; regenerate it"
		return res
	}
	res.Status, res.Message = "PASS", "Output matches golden file"
	return res
}

func expandGlobPatterns(patterns string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func printSummary(results []*FileTestResult) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "STALE", "SKIP":
			color = cYellow
		}
		fmt.Printf("%s[%s]%s %s: %s\n", color, r.Status, cNone, r.File, r.Message)
		if r.Diff != "" {
			fmt.Printf("%s%s%s\n", cCyan, r.Diff, cNone)
		}
	}
	fmt.Printf("\n%sSummary:%s %d passed, %d failed, %d stale, %d skipped, %d errors\n",
		cBold, cNone, counts["PASS"], counts["FAIL"], counts["STALE"], counts["SKIP"], counts["ERROR"])
}

func writeJSONReport(results []*FileTestResult) {
	report := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		report[r.File] = r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("%s[WARN]%s Failed to marshal test report: %v\n", cYellow, cNone, err)
		return
	}
	out := *outputJSON
	if *jsonDir != "" {
		out = filepath.Join(*jsonDir, *outputJSON)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		log.Printf("%s[WARN]%s Failed to write test report %s: %v\n", cYellow, cNone, out, err)
	}
}

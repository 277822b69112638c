// Command validate checks Parquet files written by the local storage backend.
// For every file it verifies that the file decodes, that all rows share one
// latitude/longitude pair, that no timestamp is empty, and that the object
// key follows the partition layout.
//
// Usage:
//
//	go run ./cmd/validate -dir data/open-meteo
//	go run ./cmd/validate -print data/open-meteo/2024/01/01/13:05:09-1a2b3c4d.parquet
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/couchcryptid/meteo-etl-service/internal/adapter/parquet"
	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

// leafPattern matches <YYYY>/<MM>/<DD>/<HH:MM:SS>[-suffix].parquet at the end
// of a key.
var leafPattern = regexp.MustCompile(`(^|/)\d{4}/\d{2}/\d{2}/\d{2}:\d{2}:\d{2}(-[0-9a-f]+)?\.parquet$`)

// phase tracks pass/fail for one file.
type phase struct {
	name   string
	rows   int
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "directory to scan recursively for .parquet files")
	printRows := flag.Bool("print", false, "print decoded rows as JSON")
	flag.Parse()

	files := flag.Args()
	if *dir != "" {
		found, err := findParquet(*dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scan %s: %v\n", *dir, err)
			os.Exit(1)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(files, *printRows))
}

func run(files []string, printRows bool) int {
	fmt.Println("=== Forecast Parquet Validation ===")
	fmt.Println()

	phases := make([]*phase, 0, len(files))
	for _, f := range files {
		p, table := validateFile(f)
		phases = append(phases, p)
		if printRows && table != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(table.Rows)
		}
	}

	failed := 0
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			failed++
		}
		fmt.Printf("  %-60s %4d rows  %s\n", p.name, p.rows, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if failed == 0 {
		fmt.Printf("\nAll %d files passed.\n", len(phases))
		return 0
	}
	fmt.Printf("\nValidation FAILED for %d of %d files.\n", failed, len(phases))
	return 1
}

func findParquet(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, domain.ParquetExt) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func validateFile(path string) (*phase, *domain.ForecastTable) {
	p := &phase{name: path}

	if !leafPattern.MatchString(filepath.ToSlash(path)) {
		p.errorf("key does not match <YYYY>/<MM>/<DD>/<HH:MM:SS>[-suffix].parquet")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read: %v", err)
		return p, nil
	}
	table, err := parquet.Decode(data)
	if err != nil {
		p.errorf("%v", err)
		return p, nil
	}
	p.rows = table.Len()
	checkRows(p, table)
	return p, &table
}

// checkRows verifies the exploded row invariants.
func checkRows(p *phase, table domain.ForecastTable) {
	if table.Len() == 0 {
		return
	}
	lat, lon := table.Rows[0].Latitude, table.Rows[0].Longitude
	seen := make(map[string]int, table.Len())
	for i, row := range table.Rows {
		if row.Latitude != lat || row.Longitude != lon {
			p.errorf("row %d: location %v,%v differs from %v,%v", i, row.Latitude, row.Longitude, lat, lon)
		}
		if row.Time == "" {
			p.errorf("row %d: empty time", i)
		}
		if prev, ok := seen[row.Time]; ok {
			p.errorf("row %d: time %s duplicates row %d", i, row.Time, prev)
		}
		seen[row.Time] = i
	}
}

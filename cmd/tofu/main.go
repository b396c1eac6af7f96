package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/spiros/tofu"
)

func main() {
	var (
		fieldSpec  string
		fieldsFile string
		n          int
		jitter     int
		human      bool
		verbose    bool
		seed       int64
		out        string

		fieldsPath    string
		encodingsPath string
		statsPath     string

		dbUrl       string
		schemaName  string
		tableName   string
		appendTable bool
	)

	flag.StringVar(&fieldSpec, "f", "", "Comma-separated field ids to generate. Defaults to all fields.")
	flag.StringVar(&fieldsFile, "F", "", "File with one field id per line.")
	flag.IntVar(&n, "n", 10, "Number of records to generate.")
	flag.IntVar(&jitter, "j", 0, "Jitter percentage for missingness.")
	flag.BoolVar(&human, "H", false, "Decode values into human readable format.")
	flag.BoolVar(&verbose, "v", false, "Be verbose.")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed.")
	flag.StringVar(&out, "o", "", "Output file. Defaults to a timestamped file.")

	flag.StringVar(&fieldsPath, "lookup.fields", tofu.DefaultFieldsPath, "Fields dictionary path.")
	flag.StringVar(&encodingsPath, "lookup.encodings", tofu.DefaultEncodingsPath, "Encodings table path.")
	flag.StringVar(&statsPath, "lookup.stats", tofu.DefaultStatsPath, "Statistics table path.")

	flag.StringVar(&dbUrl, "db", "", "Database URL. When set, the table is loaded into Postgres.")
	flag.StringVar(&schemaName, "schema", "public", "Schema name.")
	flag.StringVar(&tableName, "table", "synthetic", "Table name.")
	flag.BoolVar(&appendTable, "append", false, "Append to table.")

	flag.Parse()

	if jitter < 0 || jitter >= 100 {
		log.Fatal("jitter value must be >= 0 and < 100")
	}

	fields, err := parseFieldSpec(fieldSpec)
	if err != nil {
		log.Fatal(err)
	}

	r := tofu.Request{
		FieldsPath:    fieldsPath,
		EncodingsPath: encodingsPath,
		StatsPath:     statsPath,

		Fields:     fields,
		FieldsFile: fieldsFile,

		N:      n,
		Jitter: jitter,
		Human:  human,
		Seed:   seed,

		Out: out,

		Database:    dbUrl,
		Schema:      schemaName,
		Table:       tableName,
		AppendTable: appendTable,

		Verbose: verbose,
	}

	if err := tofu.Generate(&r); err != nil {
		log.Fatal(err)
	}
}

func parseFieldSpec(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")

	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid field id %q", p)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

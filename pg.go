package tofu

import (
	"bytes"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"text/template"

	"github.com/lib/pq"
	uuid "github.com/satori/go.uuid"

	"github.com/spiros/tofu/dictionary"
	"github.com/spiros/tofu/synth"
)

var (
	badChars *regexp.Regexp
	sepChars *regexp.Regexp

	sqlTmpl = template.New("sql")

	queryTmpls = map[string]string{
		"createSchema": `create schema if not exists "{{.Schema}}"`,
		"createTable":  `create table if not exists "{{.Schema}}"."{{.Table}}" ( {{.Columns}} )`,
		"dropTable":    `drop table if exists "{{.Schema}}"."{{.Table}}"`,
		"renameTable":  `alter table "{{.Schema}}"."{{.TempTable}}" rename to "{{.Table}}"`,
		"analyzeTable": `analyze "{{.Schema}}"."{{.Table}}"`,
	}
)

func init() {
	// Initialize SQL statement templates.
	for name, tmpl := range queryTmpls {
		template.Must(sqlTmpl.New(name).Parse(tmpl))
	}

	badChars = regexp.MustCompile(`[^a-z0-9_\-\.\+]+`)
	sepChars = regexp.MustCompile(`[_\-\.\+]+`)
}

// Map of field value types to SQL column types. Jittered values load as
// NULL, so columns are not declared not-null.
var sqlTypeMap = map[dictionary.ValueType]string{
	dictionary.IntegerType:             "integer",
	dictionary.ContinuousType:          "real",
	dictionary.DateType:                "date",
	dictionary.TimeType:                "timestamp",
	dictionary.CategoricalSingleType:   "text",
	dictionary.CategoricalMultipleType: "text",
	dictionary.UnsupportedType:         "text",
}

// SchemaColumn is a data definition for one synthesized column.
type SchemaColumn struct {
	// Name is the cleaned, SQL-safe column name.
	Name string `json:"name"`

	// Type is the SQL type of the column.
	Type string `json:"type"`
}

// Schema is the SQL shape of a synthetic table, identifier column first.
type Schema struct {
	Columns []*SchemaColumn `json:"columns"`
}

// NewSchema derives the SQL schema of a synthetic table. Decoded values
// are labels rather than codes, so human readable tables are all text.
func NewSchema(t *synth.Table, human bool) *Schema {
	columns := make([]*SchemaColumn, 0, len(t.Columns)+1)

	columns = append(columns, &SchemaColumn{
		Name: synth.IDColumn,
		Type: "text",
	})

	for _, c := range t.Columns {
		typ := sqlTypeMap[c.Type]
		if human {
			typ = "text"
		}

		columns = append(columns, &SchemaColumn{
			Name: cleanColumnName(c.Name),
			Type: typ,
		})
	}

	return &Schema{
		Columns: columns,
	}
}

type tableData struct {
	Schema    string
	TempTable string
	Table     string
	Columns   string
}

func cleanColumnName(n string) string {
	n = strings.ToLower(n)
	n = badChars.ReplaceAllString(n, "_")
	return sepChars.ReplaceAllString(n, "_")
}

type Client struct {
	db *sql.DB
}

func New(db *sql.DB) *Client {
	return &Client{
		db: db,
	}
}

// execTx calls a function within a transaction.
func (c *Client) execTx(fn func(tx *sql.Tx) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Replace loads the table under a temporary name and swaps it in, so a
// failed load never clobbers an existing table.
func (c *Client) Replace(schemaName, tableName string, s *Schema, t *synth.Table) (int64, error) {
	tempTableName := uuid.NewV4().String()

	if err := c.createSchema(schemaName); err != nil {
		return 0, err
	}

	if err := c.createTable(schemaName, tempTableName, s); err != nil {
		return 0, err
	}

	n, err := c.copyTable(schemaName, tempTableName, s, t)
	if err != nil {
		return 0, err
	}

	if err := c.renameTable(schemaName, tempTableName, tableName); err != nil {
		return n, err
	}

	return n, c.analyzeTable(schemaName, tableName)
}

// Append loads the table into an existing table, creating it if needed.
func (c *Client) Append(schemaName, tableName string, s *Schema, t *synth.Table) (int64, error) {
	if err := c.createSchema(schemaName); err != nil {
		return 0, err
	}

	if err := c.createTable(schemaName, tableName, s); err != nil {
		return 0, err
	}

	n, err := c.copyTable(schemaName, tableName, s, t)
	if err != nil {
		return 0, err
	}

	return n, c.analyzeTable(schemaName, tableName)
}

func (c *Client) createSchema(schemaName string) error {
	data := &tableData{
		Schema: schemaName,
	}

	var b bytes.Buffer
	if err := sqlTmpl.ExecuteTemplate(&b, "createSchema", data); err != nil {
		return err
	}

	return c.execTx(func(tx *sql.Tx) error {
		sql := b.String()
		_, err := tx.Exec(sql)
		if err != nil {
			return fmt.Errorf("error creating schema: %s\n%s", err, sql)
		}

		return nil
	})
}

func (c *Client) createTable(schemaName, tableName string, s *Schema) error {
	// Column order follows the table's field-processing order.
	columns := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		columns[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(col.Name), col.Type)
	}

	data := &tableData{
		Schema:  schemaName,
		Table:   tableName,
		Columns: strings.Join(columns, ","),
	}

	return c.execTx(func(tx *sql.Tx) error {
		var b bytes.Buffer
		if err := sqlTmpl.ExecuteTemplate(&b, "createTable", data); err != nil {
			return err
		}

		sql := b.String()
		if _, err := tx.Exec(sql); err != nil {
			return fmt.Errorf("error creating table: %s\n%s", err, sql)
		}

		return nil
	})
}

func (c *Client) renameTable(schemaName, tempTableName, tableName string) error {
	data := &tableData{
		Schema:    schemaName,
		TempTable: tempTableName,
		Table:     tableName,
	}

	tmpls := []string{
		"dropTable",
		"renameTable",
	}

	var b bytes.Buffer

	return c.execTx(func(tx *sql.Tx) error {
		for _, name := range tmpls {
			b.Reset()
			if err := sqlTmpl.ExecuteTemplate(&b, name, data); err != nil {
				return err
			}

			if _, err := tx.Exec(b.String()); err != nil {
				return fmt.Errorf("error renaming table: %s", err)
			}
		}

		return nil
	})
}

func (c *Client) analyzeTable(schemaName, tableName string) error {
	return c.execTx(func(tx *sql.Tx) error {
		data := &tableData{
			Schema: schemaName,
			Table:  tableName,
		}

		var b bytes.Buffer
		if err := sqlTmpl.ExecuteTemplate(&b, "analyzeTable", data); err != nil {
			return err
		}

		sql := b.String()
		if _, err := tx.Exec(sql); err != nil {
			return fmt.Errorf("error analyzing table: %s\n%s", err, sql)
		}

		return nil
	})
}

// copyTable bulk loads the synthetic table. Missing markers and empty
// placeholders become NULL so typed columns accept them.
func (c *Client) copyTable(schemaName, tableName string, s *Schema, t *synth.Table) (int64, error) {
	columns := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		columns[i] = col.Name
	}

	var n int64

	err := c.execTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(pq.CopyInSchema(schemaName, tableName, columns...))
		if err != nil {
			return fmt.Errorf("error preparing copy: %s", err)
		}

		cargs := make([]interface{}, len(columns))

		for i, id := range t.IDs {
			cargs[0] = id

			for j, col := range t.Columns {
				v := col.Values[i]
				if v == "" || v == synth.Missing {
					cargs[j+1] = nil
				} else {
					cargs[j+1] = v
				}
			}

			if _, err := stmt.Exec(cargs...); err != nil {
				return fmt.Errorf("error sending row: %s", err)
			}

			n++
		}

		// Empty exec to flush the buffer.
		if _, err := stmt.Exec(); err != nil {
			return fmt.Errorf("error executing copy: %s", err)
		}

		return stmt.Close()
	})

	if err != nil {
		return 0, err
	}

	return n, nil
}

// loadTable connects and loads a synthetic table into Postgres.
func loadTable(r *Request, t *synth.Table) error {
	db, err := sql.Open("postgres", r.Database)
	if err != nil {
		return fmt.Errorf("cannot open db connection: %s", err)
	}
	defer db.Close()

	schemaName := r.Schema
	if schemaName == "" {
		schemaName = "public"
	}

	tableName := r.Table
	if tableName == "" {
		tableName = "synthetic"
	}

	log.Printf(`Begin load into "%s"."%s"`, schemaName, tableName)

	var n int64
	c := New(db)
	s := NewSchema(t, r.Human)

	if r.AppendTable {
		n, err = c.Append(schemaName, tableName, s, t)
	} else {
		n, err = c.Replace(schemaName, tableName, s, t)
	}
	if err != nil {
		return fmt.Errorf("error loading: %s", err)
	}

	log.Printf("Loaded %d records", n)

	return nil
}

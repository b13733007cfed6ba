package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/viant/rescache/schema"
)

// SchemaTable records the layout fingerprint of every materialized type.
const SchemaTable = "resource_schema"

const schemaTableDDL = `CREATE TABLE IF NOT EXISTS resource_schema (
    type        TEXT PRIMARY KEY,
    fingerprint TEXT NOT NULL,
    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return out
}

// TableDDL returns the main table DDL: the declared attributes in order,
// id as primary key, and data as the final column.
func TableDDL(rt *schema.ResourceType) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n", quote(rt.Table()))
	for _, a := range rt.Attributes {
		if a.Name == schema.IDAttribute {
			fmt.Fprintf(&sb, "    %s TEXT NOT NULL PRIMARY KEY,\n", quote(a.Name))
			continue
		}
		fmt.Fprintf(&sb, "    %s %s,\n", quote(a.Name), a.Type.SQLType())
	}
	fmt.Fprintf(&sb, "    %s TEXT NOT NULL\n);", quote(schema.DataColumn))
	return sb.String()
}

// IndexDDL returns one index per sortable attribute.
func IndexDDL(rt *schema.ResourceType) []string {
	var out []string
	for _, name := range rt.Sortable {
		if name == schema.IDAttribute {
			continue
		}
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s);",
			quote(rt.Table()+"_"+name+"_idx"), quote(rt.Table()), quote(name)))
	}
	return out
}

// SearchTableDDL returns the FTS5 shadow table DDL. Its columns are exactly
// the full-text attributes; rows are linked to the main table by rowid. It
// returns "" for types without full-text attributes.
func SearchTableDDL(rt *schema.ResourceType) string {
	if len(rt.FullText) == 0 {
		return ""
	}
	return fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s);",
		quote(rt.SearchTable()), strings.Join(quoteAll(rt.FullText), ", "))
}

// SearchTriggers returns the AFTER INSERT/UPDATE/DELETE triggers that mirror
// main table writes into the shadow search table within the same statement.
func SearchTriggers(rt *schema.ResourceType) []string {
	if len(rt.FullText) == 0 {
		return nil
	}
	table := quote(rt.Table())
	search := quote(rt.SearchTable())
	cols := strings.Join(quoteAll(rt.FullText), ", ")
	values := func(alias string) string {
		refs := make([]string, len(rt.FullText))
		for i, c := range rt.FullText {
			refs[i] = alias + "." + quote(c)
		}
		return strings.Join(refs, ", ")
	}
	base := rt.Table()

	insertTrig := fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s AFTER INSERT ON %s
BEGIN
    INSERT INTO %s(rowid, %s) VALUES (NEW.rowid, %s);
END;`, quote(base+"_ai"), table, search, cols, values("NEW"))

	updateTrig := fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s AFTER UPDATE ON %s
BEGIN
    DELETE FROM %s WHERE rowid = OLD.rowid;
    INSERT INTO %s(rowid, %s) VALUES (NEW.rowid, %s);
END;`, quote(base+"_au"), table, search, search, cols, values("NEW"))

	deleteTrig := fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s AFTER DELETE ON %s
BEGIN
    DELETE FROM %s WHERE rowid = OLD.rowid;
END;`, quote(base+"_ad"), table, search)

	return []string{insertTrig, updateTrig, deleteTrig}
}

// CreateDDL returns every statement materializing rt, in execution order.
func CreateDDL(rt *schema.ResourceType) []string {
	stmts := []string{TableDDL(rt)}
	stmts = append(stmts, IndexDDL(rt)...)
	if ddl := SearchTableDDL(rt); ddl != "" {
		stmts = append(stmts, ddl)
	}
	return append(stmts, SearchTriggers(rt)...)
}

// DropDDL returns the statements removing everything CreateDDL creates.
func DropDDL(rt *schema.ResourceType) []string {
	base := rt.Table()
	return []string{
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s;", quote(base+"_ai")),
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s;", quote(base+"_au")),
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s;", quote(base+"_ad")),
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", quote(rt.SearchTable())),
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", quote(base)),
	}
}

// Fingerprint identifies the layout of rt; any change to columns, types,
// sortable or full-text attributes changes it.
func Fingerprint(rt *schema.ResourceType) string {
	sum := sha256.Sum256([]byte(strings.Join(CreateDDL(rt), "\n")))
	return hex.EncodeToString(sum[:])
}

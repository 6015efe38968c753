// Package introspect reads the tables of an existing PostgreSQL schema
// and turns them back into schema model tables.
package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("dblayer.introspect")

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type ExistingTable struct {
	TableName   string
	Columns     []ExistingColumn
	ForeignKeys []ExistingForeignKey
	Indexes     []ExistingIndex
}

type ExistingColumn struct {
	ColumnName       string
	DataType         string
	IsNullable       bool
	ColumnDefault    *string
	MaxLength        *int32
	NumericPrecision *int32
	NumericScale     *int32
	IsPrimaryKey     bool
	IsUnique         bool
}

type ExistingForeignKey struct {
	ConstraintName   string
	ColumnName       string
	ReferencesTable  string
	ReferencesColumn string
	OnDelete         string
	OnUpdate         string
}

type ExistingIndex struct {
	IndexName string
	TableName string
	Columns   []string
	IsUnique  bool
	IsPrimary bool
	IndexType string
}

// Column returns the named column or nil.
func (t *ExistingTable) Column(name string) *ExistingColumn {
	for i := range t.Columns {
		if t.Columns[i].ColumnName == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ForeignKey returns the foreign key on column or nil.
func (t *ExistingTable) ForeignKey(column string) *ExistingForeignKey {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].ColumnName == column {
			return &t.ForeignKeys[i]
		}
	}
	return nil
}

const tablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

// IntrospectDatabase reads every base table of the named schema, usually
// public.
func IntrospectDatabase(ctx context.Context, q Querier, schemaName string) ([]ExistingTable, error) {
	rows, err := q.Query(ctx, tablesQuery, schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	tableNames, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning table names: %w", err)
	}

	tables := make([]ExistingTable, 0, len(tableNames))
	for _, tableName := range tableNames {
		columns, err := getColumns(ctx, q, schemaName, tableName)
		if err != nil {
			return nil, fmt.Errorf("getting columns for table %s: %w", tableName, err)
		}
		foreignKeys, err := getForeignKeys(ctx, q, schemaName, tableName)
		if err != nil {
			return nil, fmt.Errorf("getting foreign keys for table %s: %w", tableName, err)
		}
		indexes, err := getIndexes(ctx, q, schemaName, tableName)
		if err != nil {
			return nil, fmt.Errorf("getting indexes for table %s: %w", tableName, err)
		}
		tables = append(tables, ExistingTable{
			TableName:   tableName,
			Columns:     columns,
			ForeignKeys: foreignKeys,
			Indexes:     indexes,
		})
	}
	logger.Debugf("introspected %d tables of schema %s", len(tables), schemaName)
	return tables, nil
}

// One row per column: a column taking part in several constraints is
// folded with bool_or.
const columnsQuery = `
SELECT
	c.column_name,
	c.data_type,
	(c.is_nullable = 'YES') AS is_nullable,
	c.column_default,
	c.character_maximum_length,
	c.numeric_precision,
	c.numeric_scale,
	COALESCE(bool_or(tc.constraint_type = 'PRIMARY KEY'), false) AS is_primary,
	COALESCE(bool_or(tc.constraint_type = 'UNIQUE'), false) AS is_unique
FROM information_schema.columns c
LEFT JOIN information_schema.key_column_usage kcu
	ON c.table_schema = kcu.table_schema AND c.table_name = kcu.table_name AND c.column_name = kcu.column_name
LEFT JOIN information_schema.table_constraints tc
	ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE c.table_schema = $1 AND c.table_name = $2
GROUP BY c.column_name, c.data_type, c.is_nullable, c.column_default,
	c.character_maximum_length, c.numeric_precision, c.numeric_scale, c.ordinal_position
ORDER BY c.ordinal_position`

func getColumns(ctx context.Context, q Querier, schemaName, tableName string) ([]ExistingColumn, error) {
	rows, err := q.Query(ctx, columnsQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ExistingColumn])
}

const foreignKeysQuery = `
SELECT
	tc.constraint_name,
	kcu.column_name,
	ccu.table_name AS foreign_table_name,
	ccu.column_name AS foreign_column_name,
	COALESCE(rc.delete_rule, 'NO ACTION'),
	COALESCE(rc.update_rule, 'NO ACTION')
FROM information_schema.table_constraints AS tc
JOIN information_schema.key_column_usage AS kcu
	ON tc.constraint_name = kcu.constraint_name
	AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage AS ccu
	ON ccu.constraint_name = tc.constraint_name
	AND ccu.table_schema = tc.table_schema
LEFT JOIN information_schema.referential_constraints AS rc
	ON tc.constraint_name = rc.constraint_name
	AND tc.table_schema = rc.constraint_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
	AND tc.table_schema = $1
	AND tc.table_name = $2
ORDER BY kcu.ordinal_position`

func getForeignKeys(ctx context.Context, q Querier, schemaName, tableName string) ([]ExistingForeignKey, error) {
	rows, err := q.Query(ctx, foreignKeysQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ExistingForeignKey])
}

const indexesQuery = `
SELECT
	ic.relname AS index_name,
	t.relname AS table_name,
	array_to_string(array_agg(a.attname ORDER BY array_position(idx.indkey, a.attnum)), ',') AS column_names,
	idx.indisunique,
	idx.indisprimary,
	am.amname AS index_type
FROM pg_index idx
JOIN pg_class ic ON ic.oid = idx.indexrelid
JOIN pg_class t ON t.oid = idx.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_am am ON am.oid = ic.relam
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(idx.indkey)
WHERE n.nspname = $1 AND t.relname = $2
GROUP BY ic.relname, t.relname, idx.indisunique, idx.indisprimary, am.amname
ORDER BY ic.relname`

func getIndexes(ctx context.Context, q Querier, schemaName, tableName string) ([]ExistingIndex, error) {
	rows, err := q.Query(ctx, indexesQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}
	defer rows.Close()

	var indexes []ExistingIndex
	for rows.Next() {
		var idx ExistingIndex
		var columnNames string
		if err := rows.Scan(
			&idx.IndexName,
			&idx.TableName,
			&columnNames,
			&idx.IsUnique,
			&idx.IsPrimary,
			&idx.IndexType,
		); err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		idx.Columns = splitColumns(columnNames)
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index rows: %w", err)
	}
	return indexes, nil
}

func splitColumns(list string) []string {
	columns := strings.Split(list, ",")
	for i, col := range columns {
		columns[i] = strings.TrimSpace(col)
	}
	return columns
}

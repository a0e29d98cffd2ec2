package repository

import (
	"fmt"
	"strings"
)

// upsertQuery builds INSERT ... ON CONFLICT (key) DO UPDATE for cols.
func upsertQuery(table, key string, cols []column) (string, []interface{}) {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	sets := make([]string, 0, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		names[i] = c.name
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = c.value
		if c.name != key {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c.name, c.name))
		}
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table, strings.Join(names, ", "), strings.Join(marks, ", "), key, strings.Join(sets, ", "))
	return q, args
}

// insertQuery builds a plain INSERT for cols.
func insertQuery(table string, cols []column) (string, []interface{}) {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		names[i] = c.name
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = c.value
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", "))
	return q, args
}

// updateQuery builds UPDATE table SET cols WHERE key = $n.
func updateQuery(table, key string, keyValue interface{}, cols []column) (string, []interface{}) {
	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c.name, i+1)
		args = append(args, c.value)
	}
	args = append(args, keyValue)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		table, strings.Join(sets, ", "), key, len(cols)+1)
	return q, args
}

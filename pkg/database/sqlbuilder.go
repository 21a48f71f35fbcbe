package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

func Excluded(column string) string {
	return fmt.Sprintf("EXCLUDED.%s", column)
}

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

func NewInsertBuilder(dialect Dialect) *InsertBuilder {
	return &InsertBuilder{dialect.Flavor().NewInsertBuilder()}
}

// OnConflictUpdate turns the insert into an upsert: rows colliding on conflict
// have every update column replaced by the incoming value.
// Both PostgreSQL and SQLite accept this form.
func (b *InsertBuilder) OnConflictUpdate(conflict []string, update []string) *InsertBuilder {
	sets := make([]string, 0, len(update))
	for _, col := range update {
		sets = append(sets, fmt.Sprintf("%s = %s", col, Excluded(col)))
	}
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflict, ", "), strings.Join(sets, ", ")))
	return b
}

func (b *InsertBuilder) OnConflictDoNothing() *InsertBuilder {
	b.SQL("ON CONFLICT DO NOTHING")
	return b
}

type SelectBuilder struct {
	*sqlbuilder.SelectBuilder
}

func NewSelectBuilder(dialect Dialect) *SelectBuilder {
	return &SelectBuilder{dialect.Flavor().NewSelectBuilder()}
}

type UpdateBuilder struct {
	*sqlbuilder.UpdateBuilder
}

func NewUpdateBuilder(dialect Dialect) *UpdateBuilder {
	return &UpdateBuilder{dialect.Flavor().NewUpdateBuilder()}
}

// Escaper escapes LIKE wildcards so a value only matches literally.
// Patterns built from its output must carry ESCAPE '\'.
var Escaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikeContains returns a pattern matching values that contain s literally
func LikeContains(s string) string {
	return "%" + Escaper.Replace(s) + "%"
}

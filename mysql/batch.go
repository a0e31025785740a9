package mysql

import (
	"strings"

	"dbcopy/value"
)

// rowBatch accumulates decoded rows for one INSERT. Row slots and the
// argument slice are reused between batches.
type rowBatch struct {
	rows  [][]value.Value
	n     int
	size  int
	width int
	args  []any
}

func newRowBatch(size, width int) *rowBatch {
	return &rowBatch{
		rows:  make([][]value.Value, 0, min(size, 4096)),
		size:  size,
		width: width,
	}
}

// next returns the slot for the next row.
func (b *rowBatch) next() []value.Value {
	if b.n == len(b.rows) {
		b.rows = append(b.rows, make([]value.Value, b.width))
	}
	row := b.rows[b.n]
	b.n++
	return row
}

func (b *rowBatch) len() int { return b.n }

func (b *rowBatch) full() bool { return b.n >= b.size }

func (b *rowBatch) reset() {
	for _, row := range b.rows[:b.n] {
		clear(row)
	}
	b.n = 0
}

// bind flattens the batch into statement arguments, row by row.
func (b *rowBatch) bind() []any {
	b.args = b.args[:0]
	for _, row := range b.rows[:b.n] {
		for _, v := range row {
			b.args = append(b.args, v.Arg())
		}
	}
	return b.args
}

// insertBuilder renders multi-row INSERT statements for one table.
type insertBuilder struct {
	prefix string
	tuple  string
	cache  map[int]string
}

func newInsertBuilder(table string, columns []string) *insertBuilder {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return &insertBuilder{
		prefix: "INSERT INTO " + quoteIdent(table) + " (" + strings.Join(quoted, ", ") + ") VALUES ",
		tuple:  "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")",
		cache:  make(map[int]string, 2),
	}
}

// statement returns the INSERT for rows rows.
func (b *insertBuilder) statement(rows int) string {
	if s, ok := b.cache[rows]; ok {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(b.prefix) + rows*(len(b.tuple)+2))
	sb.WriteString(b.prefix)
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.tuple)
	}
	s := sb.String()
	b.cache[rows] = s
	return s
}

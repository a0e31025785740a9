package internal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"
)

// TableSelector lets the user pick which tables to migrate.
type TableSelector struct {
	tables []string
	out    io.Writer
}

// NewTableSelector creates a selector over a sorted copy of tables.
func NewTableSelector(tables []string) *TableSelector {
	sorted := make([]string, len(tables))
	copy(sorted, tables)
	sort.Strings(sorted)

	return &TableSelector{tables: sorted, out: os.Stdout}
}

// Select uses the checkbox prompt when stdin is a terminal and the
// numbered list otherwise.
func (ts *TableSelector) Select() ([]string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return ts.SelectTables()
	}
	return ts.SelectTablesSimple(os.Stdin)
}

// SelectTables presents a checkbox prompt followed by a confirmation.
func (ts *TableSelector) SelectTables() ([]string, error) {
	if len(ts.tables) == 0 {
		return nil, fmt.Errorf("no tables available for selection")
	}

	Logger.Debug("Found tables for selection", "count", len(ts.tables))

	fmt.Fprintf(ts.out, "\n📋 Found %d table(s) in the source database.\n", len(ts.tables))
	fmt.Fprintln(ts.out, "Use ↑/↓ to navigate, SPACE to select/deselect, ENTER to confirm")

	var selected []string
	prompt := &survey.MultiSelect{
		Message:  "Select tables to migrate:",
		Options:  ts.tables,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
		if err == terminal.InterruptErr {
			return nil, fmt.Errorf("selection cancelled by user")
		}
		return nil, fmt.Errorf("selection error: %w", err)
	}

	ts.printSelection(selected)

	var confirm bool
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("Proceed with migrating %d selected table(s)?", len(selected)),
		Default: true,
	}
	if err := survey.AskOne(confirmPrompt, &confirm); err != nil {
		return nil, fmt.Errorf("confirmation error: %w", err)
	}
	if !confirm {
		return nil, fmt.Errorf("operation cancelled by user")
	}
	return selected, nil
}

// SelectTablesSimple prints a numbered list and reads a comma-separated
// list of numbers, or "all", from r.
func (ts *TableSelector) SelectTablesSimple(r io.Reader) ([]string, error) {
	if len(ts.tables) == 0 {
		return nil, fmt.Errorf("no tables available for selection")
	}

	fmt.Fprintln(ts.out, "\n📋 Available Tables:")
	for i, table := range ts.tables {
		fmt.Fprintf(ts.out, "  %d. %s\n", i+1, table)
	}
	fmt.Fprint(ts.out, "Enter table numbers (comma-separated, e.g., 1,3,5) or 'all' for all tables: ")

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("selection error: %w", err)
	}

	selected := ts.parseSelection(line)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no tables selected")
	}
	ts.printSelection(selected)
	return selected, nil
}

// parseSelection skips entries that do not number a listed table.
func (ts *TableSelector) parseSelection(input string) []string {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "all") {
		return ts.tables
	}

	var selected []string
	seen := make(map[int]bool)
	for _, part := range strings.Split(input, ",") {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || num < 1 || num > len(ts.tables) || seen[num] {
			continue
		}
		seen[num] = true
		selected = append(selected, ts.tables[num-1])
	}
	return selected
}

func (ts *TableSelector) printSelection(selected []string) {
	fmt.Fprintf(ts.out, "\n✅ Selected %d table(s):\n", len(selected))
	for _, table := range selected {
		fmt.Fprintf(ts.out, "  - %s\n", table)
	}
}

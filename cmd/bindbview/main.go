// Command bindbview is a read-only TUI for paging through a BinDB table
// order, rendering rank, token IDs, and count per row.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kryptco/steg/bindb"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
var rowStyle = lipgloss.NewStyle().PaddingLeft(1)
var footerStyle = lipgloss.NewStyle().Faint(true)

const pageSize = 20

type model struct {
	store     *bindb.Store
	order     int
	total     int64
	rows      []bindb.Line
	err       error
	paginator paginator.Model
}

func newModel(store *bindb.Store, order int, total int64) model {
	p := paginator.New()
	p.Type = paginator.Dots
	p.PerPage = pageSize
	p.SetTotalPages(int((total + pageSize - 1) / pageSize))
	return model{store: store, order: order, total: total, paginator: p}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) loadPage() model {
	start := int64(m.paginator.Page) * pageSize
	rows, err := m.store.Iterate(m.order, start+1, pageSize, false)
	if err != nil {
		m.err = err
		return m
	}
	m.rows = rows
	m.err = nil
	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.paginator, cmd = m.paginator.Update(msg)
	return m.loadPage(), cmd
}

func (m model) View() string {
	var b strings.Builder
	start := int64(m.paginator.Page) * pageSize
	b.WriteString(headerStyle.Render(fmt.Sprintf("order %d | rows %d-%d of %d", m.order, start+1, start+int64(len(m.rows)), m.total)))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(rowStyle.Render("error: " + m.err.Error()))
	}
	for i, row := range m.rows {
		ids := make([]string, len(row.IDs))
		for j, id := range row.IDs {
			ids[j] = strconv.Itoa(int(id))
		}
		b.WriteString(rowStyle.Render(fmt.Sprintf("%-8d %-30s %d", start+int64(i)+1, strings.Join(ids, ","), row.Count)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.paginator.View())
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("left/right to page, q to quit"))
	return b.String()
}

func main() {
	dir := flag.String("tables", ".", "bindb tables directory")
	order := flag.Int("order", 1, "n-gram order to browse")
	nMax := flag.Int("n-max", 3, "maximum n-gram order in the store")
	flag.Parse()

	store, err := bindb.Open(*dir, *nMax)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer store.Close()

	t, err := store.Table(*order)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	m := newModel(store, *order, t.Size())
	m = m.loadPage()

	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

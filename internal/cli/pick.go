package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sentichart/pkg/errors"
	"github.com/matzehuels/sentichart/pkg/pipeline"
	"github.com/matzehuels/sentichart/pkg/source"
)

// pickCommand creates the interactive picker over stored simulations.
func (c *CLI) pickCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		view    viewFlags
	)

	cmd := &cobra.Command{
		Use:   "pick [dir]",
		Short: "Choose a stored simulation interactively and render it",
		Long: `Choose a stored simulation interactively and render it.

Lists the simulations saved by 'fetch' (from the configured store, or from
dir when given), newest first. The chosen one is rendered like 'render'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			opts := pipeline.Options{Logger: c.Logger}
			if err := view.apply(&opts, cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			var store source.Store
			if len(args) == 1 {
				store, err = source.NewDirStore(args[0])
			} else {
				store, err = openStore(ctx, cfg)
			}
			if err != nil {
				return err
			}
			defer store.Close()

			return c.runPick(ctx, store, opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	view.register(cmd, true)

	return cmd
}

func (c *CLI) runPick(ctx context.Context, store source.Store, opts pipeline.Options, output string, noCache bool) error {
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printInfo("No stored simulations")
		printNextStep("Fetch one", appName+" fetch AAPL")
		return nil
	}

	final, err := tea.NewProgram(NewEntryListModel(entries), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	m, ok := final.(EntryListModel)
	if !ok || m.Selected == nil {
		return nil
	}

	data, found, err := store.Load(ctx, m.Selected.Key)
	if err != nil {
		return err
	}
	if !found {
		return errors.New(errors.ErrCodeNotFound, "simulation %s disappeared from the store", m.Selected.Key.ID())
	}
	opts.Input = data
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	input := output
	if input == "" {
		input = defaultName(pipeline.Options{Ticker: m.Selected.Key.Ticker, Start: m.Selected.Key.Start, End: m.Selected.Key.End})
	}
	return c.runRender(ctx, input, output, opts, runnerOpts{noCache: noCache, offline: true})
}

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// EntryListModel - Interactive simulation selection
// =============================================================================

// EntryListModel is the bubbletea model for choosing a stored simulation.
type EntryListModel struct {
	Entries  []source.Entry
	Cursor   int
	Selected *source.Entry
	Height   int
	Offset   int

	now func() time.Time
}

// NewEntryListModel creates a new entry list model.
func NewEntryListModel(entries []source.Entry) EntryListModel {
	return EntryListModel{
		Entries: entries,
		Height:  15,
		now:     time.Now,
	}
}

func (m EntryListModel) Init() tea.Cmd {
	return nil
}

func (m EntryListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "enter":
			e := m.Entries[m.Cursor]
			m.Selected = &e
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m EntryListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Simulation"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ render  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Entries))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, e.Key.Ticker, orDash(e.Key.Start), orDash(e.Key.End), m.relativeTime(e.UpdatedAt)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Ticker", "Start", "End", "Fetched").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 { // header
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 4 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func (m EntryListModel) relativeTime(t time.Time) string {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	return formatRelativeTime(t, now())
}

func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "—"
	}
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

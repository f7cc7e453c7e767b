package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/explorer"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/overlay"
	"github.com/matzehuels/linkscope/pkg/selection"
	"github.com/matzehuels/linkscope/pkg/views"
)

// exploreCommand creates the interactive explorer command.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		src     sourceFlags
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "explore [node-id]",
		Short: "Explore a relationship graph interactively",
		Long: `Open the interactive explorer. Select a node and expand it to pull in its
neighbors; lock nodes to keep them in place through relayouts; filter,
switch layouts and save or load named views.

Logging is discarded while the explorer runs unless --log-file is set.`,
		Example: `  linkscope explore P:alice --dataset relations.json
  linkscope explore --url http://localhost:8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger := newLogger(w, c.Logger.GetLevel())

			session, err := c.openBackend(src)
			if err != nil {
				return err
			}
			ws, err := c.workspace(session, src.noCache, logger)
			if err != nil {
				return err
			}

			seed := ""
			if len(args) == 1 {
				seed = args[0]
			}
			m := newExploreModel(ctx, ws, session.label, seed)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	src.register(cmd)
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")

	return cmd
}

// =============================================================================
// Explorer Model
// =============================================================================

// Explorer styles
var (
	exploreCursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	exploreSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	exploreLockedStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	exploreErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
	explorePaneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

// moveStep is how far one keypress drags a node.
const moveStep = 20.0

type inputMode int

const (
	modeNormal inputMode = iota
	modeFilter
	modeSeed
	modeSave
	modeViews
)

// Completion messages. Network and layout work runs in tea.Cmds; Update
// applies their results one at a time.
type (
	seededMsg struct {
		id    string
		found int
		warns int
		err   error
	}
	expandedMsg struct {
		id     string
		before int
		err    error
	}
	layoutMsg struct {
		algorithm string
		err       error
	}
	savedMsg struct {
		name string
		id   string
		err  error
	}
	loadedMsg struct {
		report views.LoadReport
		err    error
	}
	viewListMsg struct {
		list []views.Summary
		err  error
	}
)

// exploreModel is the bubbletea model of the explorer.
type exploreModel struct {
	ctx    context.Context
	ws     *explorer.Workspace
	source string
	seed   string

	nodes  []graph.Node // visible nodes, sorted by id
	cursor int
	offset int
	height int

	mode       inputMode
	input      string
	savedViews []views.Summary
	viewCursor int

	showStats bool
	busy      int
	status    string
	failed    bool
}

// newExploreModel creates the model. A non-empty seed is expanded on start.
func newExploreModel(ctx context.Context, ws *explorer.Workspace, source, seed string) exploreModel {
	m := exploreModel{
		ctx:    ctx,
		ws:     ws,
		source: source,
		seed:   seed,
		height: 15,
	}
	if seed != "" {
		m.busy = 1
		m.status = "Fetching " + seed + "..."
	} else {
		m.status = "Press n to enter a seed node"
	}
	m.refresh()
	return m
}

func (m exploreModel) Init() tea.Cmd {
	if m.seed == "" {
		return nil
	}
	return m.seedCmd(m.seed)
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != modeNormal {
			return m.updateInput(msg)
		}
		return m.updateNormal(msg)
	case tea.WindowSizeMsg:
		m.height = msg.Height - 14
		if m.height < 5 {
			m.height = 5
		}
		m.clampCursor()

	case seededMsg:
		m.busy--
		if msg.err != nil {
			m.fail(msg.err)
			break
		}
		m.refresh()
		m.notify(fmt.Sprintf("Seeded %s with %d relations", msg.id, msg.found), msg.warns)
	case expandedMsg:
		m.busy--
		if msg.err != nil {
			m.fail(msg.err)
			break
		}
		m.refresh()
		m.ok(fmt.Sprintf("Expanded %s (+%d nodes)", msg.id, m.ws.Store().NodeCount()-msg.before))
	case layoutMsg:
		m.busy--
		if msg.err != nil {
			m.fail(msg.err)
			break
		}
		m.refresh()
		m.ok("Layout: " + msg.algorithm)
	case savedMsg:
		m.busy--
		if msg.err != nil {
			m.fail(msg.err)
			break
		}
		m.ok(fmt.Sprintf("Saved view %q (%s)", msg.name, msg.id))
	case loadedMsg:
		m.busy--
		if msg.err != nil {
			m.fail(msg.err)
			break
		}
		m.refresh()
		m.notify(fmt.Sprintf("Loaded view %q: %d nodes, %d edges", msg.report.Name, msg.report.Nodes, msg.report.Edges), len(msg.report.Dropped))
	case viewListMsg:
		m.busy--
		if msg.err != nil {
			m.fail(msg.err)
			break
		}
		if len(msg.list) == 0 {
			m.ok("No saved views")
			break
		}
		m.savedViews = msg.list
		m.viewCursor = 0
		m.mode = modeViews
	}
	return m, nil
}

func (m exploreModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel := m.ws.Selection()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.clampCursor()
	case "down", "j":
		if m.cursor < len(m.nodes)-1 {
			m.cursor++
		}
		m.clampCursor()
	case "enter":
		if n, ok := m.current(); ok {
			if err := sel.Tap(n.ID); err != nil {
				m.fail(err)
			} else {
				m.ok("Selected " + n.ID)
			}
		}
	case "esc":
		sel.TapCanvas()
		m.ok("Selection cleared")
	case "l", " ":
		if n, ok := m.current(); ok {
			locked, err := sel.DoubleTap(n.ID)
			if err != nil {
				m.fail(err)
				break
			}
			m.refresh()
			if locked {
				m.ok("Locked " + n.ID)
			} else {
				m.ok("Unlocked " + n.ID)
			}
		}
	case "e", "x":
		id, ok := sel.Selected()
		if !ok {
			m.fail(selection.ErrNoSelection)
			break
		}
		m.busy++
		m.status, m.failed = "Expanding "+id+"...", false
		return m, m.expandCmd()
	case "H", "J", "K", "L":
		m.moveCurrent(msg.String())
	case "/":
		m.mode = modeFilter
		m.input = m.ws.Query()
	case "n":
		m.mode = modeSeed
		m.input = ""
	case "s":
		if !m.ws.HasViews() {
			m.fail(explorer.ErrNoRepository)
			break
		}
		m.mode = modeSave
		m.input = ""
	case "o":
		if !m.ws.HasViews() {
			m.fail(explorer.ErrNoRepository)
			break
		}
		m.busy++
		return m, m.listViewsCmd()
	case "a":
		m.busy++
		return m, m.layoutCmd(nextAlgorithm(m.ws.Algorithms(), m.ws.LayoutConfig().Algorithm))
	case "r":
		m.busy++
		return m, m.layoutCmd(m.ws.LayoutConfig().Algorithm)
	case "t":
		m.showStats = !m.showStats
	}
	return m, nil
}

func (m exploreModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeViews {
		switch msg.String() {
		case "esc", "q":
			m.mode = modeNormal
		case "up", "k":
			if m.viewCursor > 0 {
				m.viewCursor--
			}
		case "down", "j":
			if m.viewCursor < len(m.savedViews)-1 {
				m.viewCursor++
			}
		case "enter":
			id := m.savedViews[m.viewCursor].ID
			m.mode = modeNormal
			m.busy++
			m.status, m.failed = "Loading view...", false
			return m, m.loadCmd(id)
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		if m.mode == modeFilter {
			m.ws.SetQuery("")
			m.refresh()
		}
		m.mode = modeNormal
		return m, nil
	case tea.KeyEnter:
		mode, input := m.mode, strings.TrimSpace(m.input)
		m.mode = modeNormal
		switch mode {
		case modeFilter:
			m.ok(fmt.Sprintf("%d nodes match %q", len(m.nodes), input))
		case modeSeed:
			if err := lserrors.ValidateNodeID(input); err != nil {
				m.fail(err)
				return m, nil
			}
			m.busy++
			m.status, m.failed = "Fetching "+input+"...", false
			return m, m.seedCmd(input)
		case modeSave:
			if err := lserrors.ValidateViewName(input); err != nil {
				m.fail(err)
				return m, nil
			}
			m.busy++
			m.status, m.failed = "Saving...", false
			return m, m.saveCmd(input)
		}
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	default:
		return m, nil
	}

	if m.mode == modeFilter {
		m.ws.SetQuery(m.input)
		m.refresh()
	}
	return m, nil
}

// =============================================================================
// Commands
// =============================================================================

func (m exploreModel) seedCmd(id string) tea.Cmd {
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg {
		res, err := ws.Seed(ctx, id)
		return seededMsg{id: id, found: len(res.Triples), warns: len(res.Report.Warnings), err: err}
	}
}

// expandCmd expands whatever is selected when the command runs and
// reports that node, not the one under the cursor at key press.
func (m exploreModel) expandCmd() tea.Cmd {
	ws, ctx := m.ws, m.ctx
	before := ws.Store().NodeCount()
	return func() tea.Msg {
		id, err := ws.ExpandSelected(ctx)
		return expandedMsg{id: id, before: before, err: err}
	}
}

func (m exploreModel) layoutCmd(algorithm string) tea.Cmd {
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg {
		_, err := ws.SetAlgorithm(ctx, algorithm)
		return layoutMsg{algorithm: algorithm, err: err}
	}
}

func (m exploreModel) saveCmd(name string) tea.Cmd {
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg {
		id, err := ws.SaveView(ctx, name)
		return savedMsg{name: name, id: id, err: err}
	}
}

func (m exploreModel) loadCmd(id string) tea.Cmd {
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg {
		report, err := ws.LoadView(ctx, id)
		return loadedMsg{report: report, err: err}
	}
}

func (m exploreModel) listViewsCmd() tea.Cmd {
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg {
		list, err := ws.ListViews(ctx)
		return viewListMsg{list: list, err: err}
	}
}

// =============================================================================
// State Helpers
// =============================================================================

// refresh reloads the visible nodes from the workspace.
func (m *exploreModel) refresh() {
	snap := m.ws.Snapshot()
	vis := overlay.Filter(snap, m.ws.Query())
	nodes := make([]graph.Node, 0, len(vis.VisibleNodes))
	for _, id := range vis.VisibleNodes {
		if n, ok := snap.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	m.nodes = nodes
	m.clampCursor()
}

func (m *exploreModel) clampCursor() {
	if m.cursor >= len(m.nodes) {
		m.cursor = len(m.nodes) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m exploreModel) current() (graph.Node, bool) {
	if m.cursor < 0 || m.cursor >= len(m.nodes) {
		return graph.Node{}, false
	}
	return m.nodes[m.cursor], true
}

func (m *exploreModel) moveCurrent(key string) {
	n, ok := m.current()
	if !ok {
		return
	}
	var pos graph.Position
	if n.Position != nil {
		pos = *n.Position
	}
	switch key {
	case "H":
		pos.X -= moveStep
	case "L":
		pos.X += moveStep
	case "K":
		pos.Y -= moveStep
	case "J":
		pos.Y += moveStep
	}
	if err := m.ws.Move(n.ID, pos); err != nil {
		m.fail(err)
		return
	}
	m.refresh()
	m.ok(fmt.Sprintf("Moved %s to (%.0f, %.0f)", n.ID, pos.X, pos.Y))
}

func (m *exploreModel) ok(s string) {
	m.status, m.failed = s, false
}

// notify reports s, mentioning how many items were skipped as malformed.
func (m *exploreModel) notify(s string, skipped int) {
	if skipped > 0 {
		s += fmt.Sprintf(" (%d skipped as malformed)", skipped)
	}
	m.ok(s)
}

// fail shows err as a notification. Errors never end the session.
func (m *exploreModel) fail(err error) {
	msg := lserrors.UserMessage(err)
	if lserrors.Retryable(err) {
		msg += " (try again)"
	}
	m.status, m.failed = msg, true
}

// nextAlgorithm returns the algorithm after current, wrapping around.
func nextAlgorithm(algs []string, current string) string {
	if len(algs) == 0 {
		return current
	}
	i := slices.Index(algs, current)
	return algs[(i+1)%len(algs)]
}

// =============================================================================
// View
// =============================================================================

func (m exploreModel) View() string {
	var b strings.Builder

	cfg := m.ws.LayoutConfig()
	header := StyleTitle.Render("linkscope") + " " + StyleDim.Render(m.source+" · "+cfg.Algorithm)
	if q := m.ws.Query(); q != "" {
		header += " " + StyleHighlight.Render("/"+q)
	}
	if m.busy > 0 {
		header += " " + styleIconSpinner.Render("⠿")
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if m.mode == modeViews {
		b.WriteString(m.viewsList())
	} else {
		list := m.nodeList()
		side := m.detail()
		if m.showStats {
			st := m.ws.Stats()
			top := overlay.Degrees(m.ws.Snapshot())
			if len(top) > 3 {
				top = top[:3]
			}
			side = lipgloss.JoinVertical(lipgloss.Left, side, statsTable(st, top))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", side))
	}
	b.WriteString("\n\n")

	switch m.mode {
	case modeFilter:
		b.WriteString("filter: " + m.input + "█\n")
	case modeSeed:
		b.WriteString("seed node: " + m.input + "█\n")
	case modeSave:
		b.WriteString("view name: " + m.input + "█\n")
	}

	if m.failed {
		b.WriteString(styleIconError.Render(iconError) + " " + exploreErrorStyle.Render(m.status))
	} else {
		b.WriteString(styleIconInfo.Render(iconInfo) + " " + m.status)
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ move  ⏎ select  l lock  e expand  HJKL drag  / filter  n seed  a layout  s save  o open  t stats  q quit"))
	return b.String()
}

func (m exploreModel) nodeList() string {
	if len(m.nodes) == 0 {
		return StyleDim.Render("(empty graph)")
	}
	selected, _ := m.ws.Selection().Selected()

	var b strings.Builder
	end := min(m.offset+m.height, len(m.nodes))
	for i := m.offset; i < end; i++ {
		n := m.nodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = iconCursor + " "
		}
		lock := StyleDim.Render(iconFree)
		if n.Locked {
			lock = exploreLockedStyle.Render(iconLocked)
		}
		pos := "     -"
		if n.Position != nil {
			pos = fmt.Sprintf("%6.0f,%-6.0f", n.Position.X, n.Position.Y)
		}
		line := fmt.Sprintf("%-22s %-18s", n.ID, truncate(n.DisplayLabel(), 18))
		switch {
		case n.ID == selected:
			line = exploreSelectedStyle.Render(line)
		case i == m.cursor:
			line = exploreCursorStyle.Render(line)
		}
		b.WriteString(cursor + lock + " " + line + " " + StyleDim.Render(pos) + "\n")
	}
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.nodes))))
	return b.String()
}

// detail lists the relations of the node under the cursor.
func (m exploreModel) detail() string {
	n, ok := m.current()
	if !ok {
		return ""
	}
	var lines []string
	lines = append(lines, StyleTitle.Render(n.DisplayLabel()), StyleDim.Render(n.ID+" · "+n.Type))
	for _, e := range m.ws.Snapshot().SortedEdges() {
		switch n.ID {
		case e.Source:
			lines = append(lines, fmt.Sprintf("%s %s", StyleDim.Render("-"+e.Label+"->"), e.Target))
		case e.Target:
			lines = append(lines, fmt.Sprintf("%s %s", StyleDim.Render("<-"+e.Label+"-"), e.Source))
		}
		if len(lines) >= 12 {
			lines = append(lines, StyleDim.Render("..."))
			break
		}
	}
	return explorePaneStyle.Render(strings.Join(lines, "\n"))
}

func (m exploreModel) viewsList() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Open View"))
	b.WriteString("\n")
	for i, v := range m.savedViews {
		cursor := "  "
		line := fmt.Sprintf("%-30s %s", truncate(v.Name, 30), StyleDim.Render(v.ID))
		if i == m.viewCursor {
			cursor = iconCursor + " "
			line = exploreCursorStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}
	b.WriteString(StyleDim.Render("⏎ open  esc cancel"))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

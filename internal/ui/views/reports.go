package views

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/strack/internal/models"
	"github.com/tgienger/strack/internal/reports"
	"github.com/tgienger/strack/internal/ui/keys"
	"github.com/tgienger/strack/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// Mode is what the report view is currently showing
type Mode int

const (
	ModeList Mode = iota
	ModeSearch
	ModeForm
	ModeDetail
	ModeConfirmDelete
	ModeConfirmClear
	ModeImport
	ModeHelp
)

// FilterChanged is sent whenever the search text or date range changes
type FilterChanged struct {
	Filter reports.Filter
}

type importReadMsg struct {
	path string
	data []byte
	err  error
}

type exportDoneMsg struct {
	path  string
	count int
	err   error
}

// ReportListView lists, filters and edits reports
type ReportListView struct {
	store      *reports.Store
	exportPath string
	styles     *styles.Styles
	keys       keys.KeyMap

	width  int
	height int

	mode     Mode
	prevMode Mode // restored when the help popup closes
	cursor   int
	scrollY  int
	visible  []models.Report

	searchInput textinput.Model
	dateRange   reports.DateRange

	form        *ReportForm
	importInput textinput.Model

	deleteTargetID   string
	deleteTargetName string

	status    string
	statusErr bool
}

// NewReportListView creates the view. store must already be loaded.
func NewReportListView(store *reports.Store, exportPath string) *ReportListView {
	s := styles.NewStyles()
	km := keys.DefaultKeyMap()

	search := textinput.New()
	search.Placeholder = "Search..."
	search.CharLimit = 100

	importInput := textinput.New()
	importInput.Placeholder = "path/to/" + reports.ExportFilename
	importInput.CharLimit = 500

	return &ReportListView{
		store:       store,
		exportPath:  exportPath,
		styles:      s,
		keys:        km,
		mode:        ModeList,
		searchInput: search,
		dateRange:   reports.RangeAll,
		form:        NewReportForm(s, km),
		importInput: importInput,
	}
}

// SetFilter restores a saved filter without announcing it
func (v *ReportListView) SetFilter(f reports.Filter) {
	v.searchInput.SetValue(f.Search)
	v.dateRange = f.Range
	if v.dateRange == "" {
		v.dateRange = reports.RangeAll
	}
	v.refresh()
}

// Filter returns the active filter
func (v *ReportListView) Filter() reports.Filter {
	return reports.Filter{Search: v.searchInput.Value(), Range: v.dateRange}
}

// Mode returns the current mode
func (v *ReportListView) Mode() Mode {
	return v.mode
}

// Visible returns the reports currently shown
func (v *ReportListView) Visible() []models.Report {
	return v.visible
}

// Init initializes the view
func (v *ReportListView) Init() tea.Cmd {
	v.refresh()
	return nil
}

// refresh re-queries the store; called after every mutation and filter change
func (v *ReportListView) refresh() {
	v.visible = v.store.List(v.Filter())
	if v.cursor >= len(v.visible) {
		v.cursor = max(0, len(v.visible)-1)
	}
	v.ensureVisible()
}

func (v *ReportListView) filterChanged() tea.Cmd {
	v.cursor = 0
	v.scrollY = 0
	v.refresh()
	f := v.Filter()
	return func() tea.Msg { return FilterChanged{Filter: f} }
}

func (v *ReportListView) setStatus(msg string, isErr bool) {
	v.status = msg
	v.statusErr = isErr
}

func (v *ReportListView) selected() (models.Report, bool) {
	if v.cursor < 0 || v.cursor >= len(v.visible) {
		return models.Report{}, false
	}
	return v.visible[v.cursor], true
}

// Update handles messages
func (v *ReportListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.form.SetWidth(clamp(contentWidth-10, 20, 50))
		v.ensureVisible()
		return v, nil

	case importReadMsg:
		return v, v.applyImport(msg)

	case exportDoneMsg:
		if msg.err != nil {
			v.setStatus("Export failed: "+msg.err.Error(), true)
		} else {
			v.setStatus(fmt.Sprintf("Exported %d report(s) to %s", msg.count, msg.path), false)
		}
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case ModeHelp:
			// Any key closes it
			v.mode = v.prevMode
			return v, nil
		case ModeSearch:
			return v.updateSearch(msg)
		case ModeForm:
			return v.updateForm(msg)
		case ModeDetail:
			return v.updateDetail(msg)
		case ModeConfirmDelete:
			return v.updateConfirmDelete(msg)
		case ModeConfirmClear:
			return v.updateConfirmClear(msg)
		case ModeImport:
			return v.updateImport(msg)
		}
		return v.updateList(msg)
	}

	return v, nil
}

func (v *ReportListView) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Help):
		v.prevMode = v.mode
		v.mode = ModeHelp
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.visible)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if _, ok := v.selected(); ok {
			v.mode = ModeDetail
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.form.StartNew()
		v.mode = ModeForm
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit):
		return v, v.startEdit()

	case key.Matches(msg, v.keys.Delete):
		v.startDelete()
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.mode = ModeSearch
		v.searchInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Range):
		v.dateRange = v.dateRange.Next()
		return v, v.filterChanged()

	case key.Matches(msg, v.keys.Reset):
		v.searchInput.Reset()
		v.dateRange = reports.RangeAll
		return v, v.filterChanged()

	case key.Matches(msg, v.keys.Import):
		v.importInput.Reset()
		v.importInput.Focus()
		v.mode = ModeImport
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Export):
		return v, v.exportCmd()

	case key.Matches(msg, v.keys.Clear):
		v.mode = ModeConfirmClear
		return v, nil
	}

	return v, nil
}

func (v *ReportListView) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
		v.searchInput.Blur()
		v.mode = ModeList
		return v, nil
	}

	before := v.searchInput.Value()
	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	if v.searchInput.Value() == before {
		return v, cmd
	}
	return v, tea.Batch(cmd, v.filterChanged())
}

func (v *ReportListView) startEdit() tea.Cmd {
	r, ok := v.selected()
	if !ok {
		return nil
	}
	v.form.StartEdit(r)
	v.mode = ModeForm
	return textinput.Blink
}

func (v *ReportListView) startDelete() {
	r, ok := v.selected()
	if !ok {
		return
	}
	v.deleteTargetID = r.ID
	v.deleteTargetName = r.Title
	v.mode = ModeConfirmDelete
}

func (v *ReportListView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	result, cmd := v.form.Update(msg)
	switch result {
	case formCancel:
		v.mode = ModeList
		return v, nil
	case formSubmit:
		v.saveForm()
		return v, nil
	}
	return v, cmd
}

// saveForm routes the form to Create or Update. Validation failures keep
// the form open with the message shown.
func (v *ReportListView) saveForm() {
	fields := v.form.Fields()

	var err error
	var status string
	if id := v.form.EditingID(); id != "" {
		var found bool
		found, err = v.store.Update(id, fields)
		status = "Report updated"
		if err == nil && !found {
			status = "Report no longer exists"
		}
	} else {
		_, err = v.store.Create(fields)
		status = "Report saved"
		if err == nil {
			// New reports are prepended
			v.cursor = 0
			v.scrollY = 0
		}
	}

	var verr *reports.ValidationError
	if errors.As(err, &verr) {
		v.form.SetError("Title and location are required.")
		return
	}
	if err != nil {
		v.form.SetError(err.Error())
		return
	}

	v.mode = ModeList
	v.setStatus(status, false)
	v.refresh()
}

func (v *ReportListView) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
		v.mode = ModeList
		return v, nil
	case key.Matches(msg, v.keys.Edit):
		return v, v.startEdit()
	case key.Matches(msg, v.keys.Delete):
		v.startDelete()
		return v, nil
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	}
	return v, nil
}

func (v *ReportListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.mode = ModeList
		if _, err := v.store.Delete(v.deleteTargetID); err != nil {
			v.setStatus("Delete failed: "+err.Error(), true)
			return v, nil
		}
		v.setStatus(fmt.Sprintf("Deleted %q", v.deleteTargetName), false)
		v.refresh()
		return v, nil
	case "n", "N", "esc":
		v.mode = ModeList
		return v, nil
	}
	return v, nil
}

func (v *ReportListView) updateConfirmClear(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.mode = ModeList
		if err := v.store.Clear(); err != nil {
			v.setStatus("Clear failed: "+err.Error(), true)
			return v, nil
		}
		v.setStatus("All reports cleared", false)
		v.refresh()
		return v, nil
	case "n", "N", "esc":
		v.mode = ModeList
		return v, nil
	}
	return v, nil
}

func (v *ReportListView) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.importInput.Blur()
		v.mode = ModeList
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		path := strings.TrimSpace(v.importInput.Value())
		if path == "" {
			return v, nil
		}
		v.importInput.Blur()
		v.mode = ModeList
		v.setStatus("Importing "+path+"...", false)
		return v, readImportFile(path)
	}

	var cmd tea.Cmd
	v.importInput, cmd = v.importInput.Update(msg)
	return v, cmd
}

// readImportFile reads the file off the update loop; the result comes back
// as an importReadMsg and is merged there.
func readImportFile(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		return importReadMsg{path: path, data: data, err: err}
	}
}

func (v *ReportListView) applyImport(msg importReadMsg) tea.Cmd {
	if msg.err != nil {
		v.setStatus("Cannot import: "+msg.err.Error(), true)
		return nil
	}

	before := v.store.Count()
	if _, err := v.store.Import(msg.data); err != nil {
		v.setStatus(err.Error(), true)
		return nil
	}

	v.setStatus(fmt.Sprintf("Imported %d report(s) from %s", v.store.Count()-before, filepath.Base(msg.path)), false)
	v.refresh()
	return nil
}

func (v *ReportListView) exportCmd() tea.Cmd {
	data, err := v.store.Export()
	count := v.store.Count()
	path := v.exportPath
	return func() tea.Msg {
		if err != nil {
			return exportDoneMsg{path: path, err: err}
		}
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return exportDoneMsg{path: path, err: err}
			}
		}
		err := os.WriteFile(path, data, 0644)
		return exportDoneMsg{path: path, count: count, err: err}
	}
}

func (v *ReportListView) visibleItems() int {
	// Each report item is 3 lines (title + meta + notes) + 1 margin
	availableHeight := max(v.height-12, 4)
	return max(availableHeight/4, 1)
}

func (v *ReportListView) ensureVisible() {
	visibleItems := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

// View renders the view
func (v *ReportListView) View() string {
	switch v.mode {
	case ModeHelp:
		return v.renderHelpPopup()
	case ModeForm:
		return v.form.View(v.width, v.height)
	case ModeDetail:
		return v.renderDetail()
	case ModeConfirmDelete:
		return v.renderConfirm("Delete Report?", v.deleteTargetName)
	case ModeConfirmClear:
		return v.renderConfirm("Clear All Reports?", fmt.Sprintf("%d report(s) will be removed.", v.store.Count()))
	case ModeImport:
		return v.renderImport()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderList())
	b.WriteString("\n")
	b.WriteString(v.renderStatus())
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *ReportListView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	searchStyle := s.Input
	if v.mode == ModeSearch {
		searchStyle = s.InputFocused
	}
	searchBox := searchStyle.Width(clamp(contentWidth-24, 10, 40)).Render(v.searchInput.View())
	badge := s.Badge.Render(string(v.dateRange))

	title := lipgloss.JoinHorizontal(lipgloss.Bottom,
		s.Title.Render("Reports"), "  ",
		s.TitleMuted.Render(fmt.Sprintf("%d report(s)", v.store.Count())),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Center, searchBox, "  ", badge),
	)
}

func (v *ReportListView) renderList() string {
	s := v.styles

	if len(v.visible) == 0 {
		if v.store.Count() == 0 {
			return s.TitleMuted.Render("No reports yet. Press 'n' to create one.")
		}
		return s.TitleMuted.Render("No reports match the current filter.")
	}

	var items []string
	endIdx := min(v.scrollY+v.visibleItems(), len(v.visible))
	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderItem(v.visible[i], i == v.cursor))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *ReportListView) renderItem(r models.Report, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	lineStyle := s.ListItem.Width(width)
	if selected {
		lineStyle = s.ListSelected.Width(width)
	}

	notes := firstLine(r.Notes)
	if notes == "" {
		notes = s.TitleMuted.Render("no notes")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lineStyle.Render(s.ReportTitle.Render(r.Title)),
		lineStyle.Render(s.ReportMeta.Render(r.Location+" • "+reports.DisplayWhen(r))),
		lineStyle.Render(notes),
	) + "\n"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func (v *ReportListView) renderStatus() string {
	if v.status == "" {
		return ""
	}
	if v.statusErr {
		return v.styles.StatusError.Render(v.status)
	}
	return v.styles.StatusBar.Render(v.status)
}

func (v *ReportListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 60 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	k := v.styles.HelpKey
	return v.styles.Help.Render(
		fmt.Sprintf("%s new • %s edit • %s del • %s search • %s range • %s export • %s import • %s help",
			k.Render("n"), k.Render("e"), k.Render("d"), k.Render("/"),
			k.Render("f"), k.Render("x"), k.Render("i"), k.Render("?"),
		),
	)
}

func (v *ReportListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	bindings := []key.Binding{
		v.keys.Enter, v.keys.New, v.keys.Edit, v.keys.Delete,
		v.keys.Search, v.keys.Range, v.keys.Reset,
		v.keys.Export, v.keys.Import, v.keys.Clear, v.keys.Quit,
	}
	helpItems := make([]string, 0, len(bindings)+2)
	for _, b := range bindings {
		h := b.Help()
		helpItems = append(helpItems, fmt.Sprintf("%s %s", s.HelpKey.Width(8).Render(h.Key), h.Desc))
	}
	helpItems = append(helpItems, "", s.TitleMuted.Render("Press any key to close"))

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ReportListView) renderDetail() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	r, ok := v.selected()
	if !ok {
		return s.TitleMuted.Render("Nothing selected")
	}

	field := func(label, value string) string {
		if value == "" {
			value = s.TitleMuted.Render("—")
		}
		return s.HelpKey.Width(10).Render(label) + " " + value
	}

	rows := []string{
		s.Title.Render(r.Title),
		"",
		field("Location", r.Location),
		field("When", reports.DisplayWhen(r)),
		field("Created", stampText(r.Created, r.CreatedAt)),
		field("Updated", stampText(r.Updated, r.UpdatedAt)),
		field("ID", r.ID),
		"",
		s.ListItem.Width(clamp(contentWidth-6, 20, 70)).Render(r.Notes),
		"",
		s.TitleMuted.Render("e: edit • d: delete • Esc: back"),
	}

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

// stampText shows a stored timestamp in local time, or as stored when it
// does not parse
func stampText(parse func() (time.Time, bool), raw string) string {
	t, ok := parse()
	if !ok {
		return raw
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

func (v *ReportListView) renderConfirm(title, detail string) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render(title),
		"",
		s.TitleMuted.Render(detail),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ReportListView) renderImport() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 60)

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Import Reports"),
		"",
		"JSON file:",
		s.InputFocused.Width(inputWidth).Render(v.importInput.View()),
		"",
		s.TitleMuted.Render("Imported reports are added in front of existing ones."),
		s.TitleMuted.Render("Enter: import • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

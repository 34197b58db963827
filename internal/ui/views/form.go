package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/strack/internal/models"
	"github.com/tgienger/strack/internal/reports"
	"github.com/tgienger/strack/internal/ui/keys"
	"github.com/tgienger/strack/internal/ui/styles"
)

// Form field focus order
const (
	fieldTitle = iota
	fieldLocation
	fieldDate
	fieldTime
	fieldNotes
	fieldSave
	fieldCount
)

// formResult tells the owning view what the last key did to the form
type formResult int

const (
	formContinue formResult = iota
	formSubmit
	formCancel
)

// ReportForm edits the fields of a new or existing report
type ReportForm struct {
	styles *styles.Styles
	keys   keys.KeyMap

	title    textinput.Model
	location textinput.Model
	date     textinput.Model
	time     textinput.Model
	notes    textarea.Model

	focusIdx  int
	editingID string // empty while creating
	err       string
}

// NewReportForm creates an empty form
func NewReportForm(s *styles.Styles, km keys.KeyMap) *ReportForm {
	title := textinput.New()
	title.Placeholder = "What happened"
	title.CharLimit = 200

	location := textinput.New()
	location.Placeholder = "Where"
	location.CharLimit = 200

	date := textinput.New()
	date.Placeholder = "YYYY-MM-DD"
	date.CharLimit = 32

	tm := textinput.New()
	tm.Placeholder = "HH:MM"
	tm.CharLimit = 16

	notes := textarea.New()
	notes.Placeholder = "Notes"
	notes.CharLimit = 5000
	notes.SetWidth(50)
	notes.SetHeight(4)
	notes.ShowLineNumbers = false

	return &ReportForm{
		styles:   s,
		keys:     km,
		title:    title,
		location: location,
		date:     date,
		time:     tm,
		notes:    notes,
	}
}

// StartNew clears the form for a new report
func (f *ReportForm) StartNew() {
	f.editingID = ""
	f.err = ""
	f.title.Reset()
	f.location.Reset()
	f.date.Reset()
	f.time.Reset()
	f.notes.Reset()
	f.focusIdx = fieldTitle
	f.updateFocus()
}

// StartEdit fills the form from r
func (f *ReportForm) StartEdit(r models.Report) {
	f.editingID = r.ID
	f.err = ""
	f.title.SetValue(r.Title)
	f.location.SetValue(r.Location)
	f.date.SetValue(r.Date)
	f.time.SetValue(r.Time)
	f.notes.SetValue(r.Notes)
	f.focusIdx = fieldTitle
	f.updateFocus()
}

// EditingID returns the id being edited, or "" for a new report
func (f *ReportForm) EditingID() string {
	return f.editingID
}

// Fields returns the current input values
func (f *ReportForm) Fields() reports.Fields {
	return reports.Fields{
		Title:    f.title.Value(),
		Location: f.location.Value(),
		Date:     strings.TrimSpace(f.date.Value()),
		Time:     strings.TrimSpace(f.time.Value()),
		Notes:    f.notes.Value(),
	}
}

// SetError shows msg under the form
func (f *ReportForm) SetError(msg string) {
	f.err = msg
}

// SetWidth resizes the notes area
func (f *ReportForm) SetWidth(w int) {
	f.notes.SetWidth(w)
}

// Update handles a key while the form is open
func (f *ReportForm) Update(msg tea.KeyMsg) (formResult, tea.Cmd) {
	switch {
	case key.Matches(msg, f.keys.Back):
		return formCancel, nil

	case key.Matches(msg, f.keys.Save):
		return formSubmit, nil

	case msg.String() == "shift+tab":
		f.focusIdx = (f.focusIdx + fieldCount - 1) % fieldCount
		f.updateFocus()
		return formContinue, nil

	case key.Matches(msg, f.keys.Tab):
		f.focusIdx = (f.focusIdx + 1) % fieldCount
		f.updateFocus()
		return formContinue, nil

	case key.Matches(msg, f.keys.Enter) && f.focusIdx != fieldNotes:
		if f.focusIdx == fieldSave {
			return formSubmit, nil
		}
		f.focusIdx++
		f.updateFocus()
		return formContinue, nil
	}

	var cmd tea.Cmd
	switch f.focusIdx {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldLocation:
		f.location, cmd = f.location.Update(msg)
	case fieldDate:
		f.date, cmd = f.date.Update(msg)
	case fieldTime:
		f.time, cmd = f.time.Update(msg)
	case fieldNotes:
		f.notes, cmd = f.notes.Update(msg)
	}
	return formContinue, cmd
}

func (f *ReportForm) updateFocus() {
	f.title.Blur()
	f.location.Blur()
	f.date.Blur()
	f.time.Blur()
	f.notes.Blur()

	switch f.focusIdx {
	case fieldTitle:
		f.title.Focus()
	case fieldLocation:
		f.location.Focus()
	case fieldDate:
		f.date.Focus()
	case fieldTime:
		f.time.Focus()
	case fieldNotes:
		f.notes.Focus()
	}
}

// View renders the form centered in a width x height area
func (f *ReportForm) View(width, height int) string {
	s := f.styles
	contentWidth := styles.ContentWidth(width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	fieldStyle := func(idx int) lipgloss.Style {
		if f.focusIdx == idx {
			return s.InputFocused.Width(inputWidth)
		}
		return s.Input.Width(inputWidth)
	}

	btnStyle := s.Button
	if f.focusIdx == fieldSave {
		btnStyle = s.ButtonFocused
	}

	heading := "New Report"
	btnLabel := " Save "
	if f.editingID != "" {
		heading = "Edit Report"
		btnLabel = " Update "
	}

	rows := []string{
		s.Title.Render(heading),
		"",
		"Title:",
		fieldStyle(fieldTitle).Render(f.title.View()),
		"Location:",
		fieldStyle(fieldLocation).Render(f.location.View()),
		"Date / Time:",
		lipgloss.JoinHorizontal(lipgloss.Top,
			fieldStyle(fieldDate).Width(inputWidth/2).Render(f.date.View()),
			fieldStyle(fieldTime).Width(inputWidth-inputWidth/2).Render(f.time.View()),
		),
		"Notes:",
		fieldStyle(fieldNotes).Render(f.notes.View()),
		"",
		btnStyle.Render(btnLabel),
	}
	if f.err != "" {
		rows = append(rows, "", s.StatusError.Render(f.err))
	}
	rows = append(rows, "", s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)

	centered := lipgloss.Place(contentWidth, height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, width, height)
}

package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/tgienger/strack/internal/reports"
	"github.com/tgienger/strack/internal/ui/views"
)

// Settings keys for the remembered filter
const (
	settingSearch = "last_search"
	settingRange  = "last_range"
)

// Settings is the key-value storage used to remember UI state between runs
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

type App struct {
	settings Settings
	log      *zap.Logger
	reports  *views.ReportListView
	width    int
	height   int
}

// Creates a new application. store must not have been loaded yet; it is
// loaded here, once.
func NewApp(store *reports.Store, settings Settings, exportPath string, log *zap.Logger) *App {
	store.Load()
	return &App{
		settings: settings,
		log:      log,
		reports:  views.NewReportListView(store, exportPath),
	}
}

func (a *App) Init() tea.Cmd {
	cmd := a.reports.Init()

	// Restore the last used filter
	search, err := a.settings.GetSetting(settingSearch)
	if err != nil {
		a.log.Warn("reading saved search", zap.Error(err))
	}
	rangeName, err := a.settings.GetSetting(settingRange)
	if err != nil {
		a.log.Warn("reading saved date range", zap.Error(err))
	}
	dateRange, err := reports.ParseDateRange(rangeName)
	if err != nil {
		a.log.Warn("ignoring saved date range", zap.Error(err))
	}
	if search != "" || dateRange != reports.RangeAll {
		a.reports.SetFilter(reports.Filter{Search: search, Range: dateRange})
	}

	return cmd
}

func (a *App) saveFilter(f reports.Filter) {
	var err error
	if f.Search == "" && (f.Range == "" || f.Range == reports.RangeAll) {
		err = a.settings.DeleteSetting(settingSearch)
		if err == nil {
			err = a.settings.DeleteSetting(settingRange)
		}
	} else {
		err = a.settings.SetSetting(settingSearch, f.Search)
		if err == nil {
			err = a.settings.SetSetting(settingRange, string(f.Range))
		}
	}
	if err != nil {
		a.log.Warn("saving filter", zap.Error(err))
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case views.FilterChanged:
		a.saveFilter(msg.Filter)
		return a, nil
	}

	_, cmd := a.reports.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	return a.reports.View()
}

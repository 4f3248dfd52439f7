package calendar

import (
	"strings"
	"sync"
	"time"

	appLog "calboard/internal/log"
	"calboard/internal/model"
)

const (
	DefaultErrorClearDelay = 5 * time.Second
	DefaultSaveDelay       = 500 * time.Millisecond

	confirmDeleteEventMsg    = "Are you sure you want to delete this event?"
	confirmDeleteCategoryMsg = "Are you sure you want to delete this category?"
)

// Options configures a new State. Zero values pick the defaults.
type Options struct {
	Clock Clock

	// Categories seeds the category store; empty means DefaultCategories.
	Categories []model.Category
	// DefaultCategory preselects a category in the create dialog. If it
	// does not exist the first category is used.
	DefaultCategory string

	ErrorClearDelay time.Duration
	SaveDelay       time.Duration
}

// State is the whole calendar board: month grid, selection, event and
// category stores, dialogs, the confirmation gate and the error slot.
//
// All methods are safe for concurrent use. Timer callbacks take the same
// lock, so every mutation is serialized.
type State struct {
	mu sync.Mutex

	clock           Clock
	errorClearDelay time.Duration
	saveDelay       time.Duration
	defaultCategory string

	events     *EventStore
	categories *CategoryStore

	anchor   model.Day
	grid     []model.Day
	selected *model.Day
	sidebar  bool

	searchTerm string

	eventDialog    bool
	dialogGen      uint64
	form           model.EventForm
	categoryDialog bool

	confirm  Confirmation
	handlers map[ActionKind]func(PendingAction) error

	// loading is set by Save and cleared only by its commit; closing the
	// dialog does not cancel a pending save.
	loading bool

	errMsg   *string
	errGen   uint64
	errTimer Timer
}

func NewState(opts Options) *State {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.ErrorClearDelay <= 0 {
		opts.ErrorClearDelay = DefaultErrorClearDelay
	}
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = DefaultSaveDelay
	}

	s := &State{
		clock:           opts.Clock,
		errorClearDelay: opts.ErrorClearDelay,
		saveDelay:       opts.SaveDelay,
		defaultCategory: opts.DefaultCategory,
		events:          NewEventStore(opts.Clock.Now),
		categories:      NewCategoryStore(opts.Categories),
	}
	s.handlers = map[ActionKind]func(PendingAction) error{
		ActionDeleteEvent:    s.deleteEventLocked,
		ActionDeleteCategory: s.deleteCategoryLocked,
	}
	s.setAnchorLocked(s.todayLocked())
	return s
}

func (s *State) todayLocked() model.Day {
	return model.DayOf(s.clock.Now())
}

// ---- selection and navigation ----

// IsSameDay compares calendar days, ignoring time of day.
func IsSameDay(a, b model.Day) bool { return a == b }

func (s *State) setAnchorLocked(d model.Day) {
	s.anchor = d
	s.grid = GenerateGrid(d)
}

func (s *State) SelectDate(d model.Day) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = &d
	s.sidebar = true
	appLog.Debug("date selected", "date", d)
}

func (s *State) CloseSidebar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeSidebarLocked()
}

func (s *State) closeSidebarLocked() {
	s.sidebar = false
	s.selected = nil
}

func (s *State) NextMonth() { s.moveMonth(1) }

func (s *State) PrevMonth() { s.moveMonth(-1) }

func (s *State) moveMonth(offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAnchorLocked(s.anchor.AddMonths(offset))
	s.closeSidebarLocked()
	appLog.Debug("month changed", "anchor", s.anchor)
}

// Today re-anchors the grid on the current date.
func (s *State) Today() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAnchorLocked(s.todayLocked())
	s.closeSidebarLocked()
	appLog.Debug("month changed", "anchor", s.anchor)
}

func (s *State) Anchor() model.Day {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor
}

func (s *State) Grid() []model.Day {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Day, len(s.grid))
	copy(out, s.grid)
	return out
}

func (s *State) SelectedDate() (model.Day, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return model.Day{}, false
	}
	return *s.selected, true
}

func (s *State) SidebarVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebar
}

func (s *State) IsInAnchorMonth(d model.Day) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return d.SameMonth(s.anchor)
}

func (s *State) IsToday(d model.Day) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return d == s.todayLocked()
}

// ---- events ----

func (s *State) EventsOn(d model.Day) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.EventsOn(d)
}

func (s *State) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.All()
}

func (s *State) Search(term string, scope model.Day) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Search(term, scope)
}

func (s *State) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchTerm = term
}

// FilteredEvents is the sidebar list: the selected day's events matching
// the current search term. Nothing is listed without a selected day.
func (s *State) FilteredEvents() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filteredLocked()
}

func (s *State) filteredLocked() []model.Event {
	if s.selected == nil {
		return []model.Event{}
	}
	return s.events.Search(s.searchTerm, *s.selected)
}

// CreateEvent adds an event immediately, bypassing the dialog. Validation
// failures are also reported through the error slot.
func (s *State) CreateEvent(form model.EventForm, date *model.Day) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(form, date)
}

func (s *State) createLocked(form model.EventForm, date *model.Day) (model.Event, error) {
	ev, err := s.events.Create(form, date, s.categories.Exists)
	if err != nil {
		s.failLocked("create event", err)
		return model.Event{}, err
	}
	appLog.Debug("event created", "id", ev.ID, "date", ev.Date, "category", ev.CategoryID)
	return ev, nil
}

// UpdateEvent applies form to event id. Unknown ids are ignored.
func (s *State) UpdateEvent(id int64, form model.EventForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, form)
}

func (s *State) updateLocked(id int64, form model.EventForm) error {
	_, found, err := s.events.Update(id, form, s.categories.Exists)
	if err != nil {
		s.failLocked("update event", err)
		return err
	}
	if !found {
		appLog.Debug("event update skipped; unknown id", "id", id)
		return nil
	}
	appLog.Debug("event updated", "id", id)
	return nil
}

// RequestDeleteEvent opens the confirmation prompt for deleting event id.
func (s *State) RequestDeleteEvent(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirm.Request(confirmDeleteEventMsg, PendingAction{Kind: ActionDeleteEvent, EventID: id})
}

func (s *State) deleteEventLocked(a PendingAction) error {
	if !s.events.Delete(a.EventID) {
		appLog.Debug("event delete skipped; unknown id", "id", a.EventID)
	} else {
		appLog.Debug("event deleted", "id", a.EventID)
	}
	if s.form.EditingID != nil && *s.form.EditingID == a.EventID {
		s.closeEventDialogLocked()
	}
	return nil
}

// ---- categories ----

func (s *State) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories.List()
}

func (s *State) ColorFor(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories.ColorFor(id)
}

func (s *State) AddCategory(name, color string) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, err := s.categories.Add(name, color)
	if err != nil {
		s.failLocked("add category", err)
		return model.Category{}, err
	}
	appLog.Debug("category added", "id", cat.ID, "name", cat.Name)
	return cat, nil
}

// RequestDeleteCategory checks that id can go and, if so, opens the
// confirmation prompt. The check is repeated when the user confirms.
func (s *State) RequestDeleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.categories.CheckDelete(id, s.events.UsesCategory(id)); err != nil {
		s.failLocked("delete category", err)
		return err
	}
	s.confirm.Request(confirmDeleteCategoryMsg, PendingAction{Kind: ActionDeleteCategory, CategoryID: id})
	return nil
}

func (s *State) deleteCategoryLocked(a PendingAction) error {
	if err := s.categories.CheckDelete(a.CategoryID, s.events.UsesCategory(a.CategoryID)); err != nil {
		s.failLocked("delete category", err)
		return err
	}
	if s.categories.Remove(a.CategoryID) {
		appLog.Debug("category deleted", "id", a.CategoryID)
	}
	return nil
}

func (s *State) OpenCategoryDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categoryDialog = true
}

func (s *State) CloseCategoryDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categoryDialog = false
	s.clearErrorLocked()
	s.searchTerm = ""
}

// ---- confirmation ----

// Confirm runs the pending destructive action through the dispatch table.
func (s *State) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	action, ok := s.confirm.Confirm()
	if !ok {
		return ErrNothingToConfirm
	}
	handler, ok := s.handlers[action.Kind]
	if !ok {
		return ErrNothingToConfirm
	}
	return handler(action)
}

func (s *State) CancelConfirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirm.Cancel()
}

// ---- dialog and save flow ----

func (s *State) OpenCreateDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = model.EventForm{
		CategoryID: s.createCategoryLocked(),
		StartTime:  "09:00",
		EndTime:    "10:00",
	}
	s.eventDialog = true
	s.dialogGen++
}

func (s *State) createCategoryLocked() string {
	if s.defaultCategory != "" && s.categories.Exists(s.defaultCategory) {
		return s.defaultCategory
	}
	return s.categories.Default().ID
}

// OpenEditDialog loads event id into the buffer. It reports false, and
// leaves the dialog untouched, when the id is unknown.
func (s *State) OpenEditDialog(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events.Get(id)
	if !ok {
		return false
	}
	editing := ev.ID
	s.form = model.EventForm{
		Title:       ev.Title,
		Description: ev.Description,
		CategoryID:  ev.CategoryID,
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		EditingID:   &editing,
	}
	s.eventDialog = true
	s.dialogGen++
	return true
}

// SetForm replaces the buffer's fields. The create/edit mode is kept.
func (s *State) SetForm(f model.EventForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.EditingID = s.form.EditingID
	s.form = f
}

func (s *State) Form() model.EventForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

func (s *State) CloseEventDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeEventDialogLocked()
}

func (s *State) closeEventDialogLocked() {
	s.eventDialog = false
	s.form = model.EventForm{}
	s.clearErrorLocked()
	s.searchTerm = ""
}

// Save validates the buffer and, if it is valid, commits it after the
// save delay. While the commit is pending Loading is true, even if the
// dialog is closed in the meantime.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return ErrSaveInProgress
	}
	if !s.eventDialog {
		return ErrDialogClosed
	}

	form := s.form
	if strings.TrimSpace(form.Title) == "" {
		s.failLocked("save event", ErrTitleRequired)
		return ErrTitleRequired
	}
	if s.selected == nil {
		s.failLocked("save event", ErrDateRequired)
		return ErrDateRequired
	}
	if err := ValidateForm(form, s.categories.Exists); err != nil {
		s.failLocked("save event", err)
		return err
	}

	date := *s.selected
	gen := s.dialogGen
	s.loading = true
	s.clock.AfterFunc(s.saveDelay, func() {
		s.commit(form, date, gen)
	})
	return nil
}

func (s *State) commit(form model.EventForm, date model.Day, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false

	var err error
	if form.EditingID != nil {
		err = s.updateLocked(*form.EditingID, form)
	} else {
		_, err = s.createLocked(form, &date)
	}
	if err != nil {
		return
	}

	// A dialog opened after this save started belongs to the user.
	if s.dialogGen == gen {
		s.closeEventDialogLocked()
	}
}

func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ---- error slot ----

// ErrorMessage returns the current user-visible error, if any.
func (s *State) ErrorMessage() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errMsg == nil {
		return "", false
	}
	return *s.errMsg, true
}

func (s *State) failLocked(op string, err error) {
	appLog.Info("calendar validation failed", "op", op, "reason", err.Error())
	s.setErrorLocked(err.Error())
}

// setErrorLocked shows msg and schedules its removal. A newer message
// replaces the older one's timer, so an old timer can never clear it.
func (s *State) setErrorLocked(msg string) {
	if s.errTimer != nil {
		s.errTimer.Stop()
	}
	s.errGen++
	gen := s.errGen
	s.errMsg = &msg
	s.errTimer = s.clock.AfterFunc(s.errorClearDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.errGen != gen {
			return
		}
		s.errMsg = nil
		s.errTimer = nil
	})
}

func (s *State) clearErrorLocked() {
	if s.errTimer != nil {
		s.errTimer.Stop()
		s.errTimer = nil
	}
	s.errGen++
	s.errMsg = nil
}

// ---- import ----

// Entry is an event to add without going through the dialog, such as one
// read from an ICS feed.
type Entry struct {
	Date model.Day
	Form model.EventForm
}

// Import adds entries that pass validation and skips the rest. It never
// touches the error slot.
func (s *State) Import(entries []Entry) (added, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		date := e.Date
		if _, err := s.events.Create(e.Form, &date, s.categories.Exists); err != nil {
			appLog.Debug("import entry skipped", "date", e.Date, "title", e.Form.Title, "reason", err.Error())
			skipped++
			continue
		}
		added++
	}
	return added, skipped
}

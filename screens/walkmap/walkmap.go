// Package walkmap holds the walkability map screen: an undoable view state and a
// metric-driven map load with automatic retry.
package walkmap

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/loader"
)

// Metric selects which walkability score the map shows
type Metric string

const (
	MetricOverall      Metric = "overall"
	MetricSafety       Metric = "safety"
	MetricAmenities    Metric = "amenities"
	MetricConnectivity Metric = "connectivity"
	MetricComfort      Metric = "comfort"
)

// MetricOption describes a selectable metric
type MetricOption struct {
	Value Metric `json:"value"`
	Label string `json:"label"`
	Score int    `json:"score"`
}

// Metrics lists the selectable metrics in display order. Scores are static.
var Metrics = []MetricOption{
	{Value: MetricOverall, Label: "Overall Walkability", Score: 78},
	{Value: MetricSafety, Label: "Safety", Score: 82},
	{Value: MetricAmenities, Label: "Amenities", Score: 65},
	{Value: MetricConnectivity, Label: "Connectivity", Score: 90},
	{Value: MetricComfort, Label: "Comfort", Score: 75},
}

// Filter is a toggleable map data layer
type Filter struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Filters lists the available map layers
var Filters = []Filter{
	{ID: "sidewalks", Label: "Sidewalks"},
	{ID: "crosswalks", Label: "Crosswalks"},
	{ID: "lighting", Label: "Street Lighting"},
	{ID: "traffic", Label: "Traffic Density"},
	{ID: "speed_limits", Label: "Speed Limits"},
	{ID: "public_transit", Label: "Public Transit"},
	{ID: "bike_lanes", Label: "Bike Lanes"},
	{ID: "accessibility", Label: "Accessibility Features"},
}

// Detail levels
const (
	DetailSimple   = "simple"
	DetailDetailed = "detailed"
)

// View field names
const (
	FieldMetric      = "metric"
	FieldShowSidebar = "showSidebar"
	FieldDetailLevel = "detailLevel"
	FieldFilters     = "filters"
)

// MapParams are the load parameters; a change of metric triggers a new load
type MapParams struct {
	Metric Metric `json:"metric"`
}

// MapData is one loaded map
type MapData struct {
	Metric   Metric    `json:"metric"`
	Label    string    `json:"label"`
	Score    int       `json:"score"`
	LoadedAt time.Time `json:"loadedAt"`
}

// View is the screen's undoable view state
type View struct {
	Metric      Metric   `json:"metric"`
	ShowSidebar bool     `json:"showSidebar"`
	DetailLevel string   `json:"detailLevel"`
	Filters     []string `json:"filters"`
}

func lookupMetric(m Metric) (MetricOption, bool) {
	i := slices.IndexFunc(Metrics, func(o MetricOption) bool { return o.Value == m })
	if i < 0 {
		return MetricOption{}, false
	}
	return Metrics[i], true
}

// Score returns the static score of a metric
func Score(m Metric) (int, bool) {
	option, ok := lookupMetric(m)
	return option.Score, ok
}

type options struct {
	loaderOpts      []loader.Option
	historyCapacity int
	logger          *zerolog.Logger
}

// Option configures a Screen
type Option func(*options)

// WithLoaderOptions passes options to the map loader
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(o *options) {
		o.loaderOpts = append(o.loaderOpts, opts...)
	}
}

// WithHistoryCapacity bounds the view undo history
func WithHistoryCapacity(capacity int) Option {
	return func(o *options) {
		o.historyCapacity = capacity
	}
}

// WithLogger sets a custom logger for the screen and its loader
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// Screen is the walkability map. It is not safe for concurrent use, except for
// the loader accessors which may be called from any goroutine. View listeners run
// on the caller's goroutine; load listeners run on the loader's.
type Screen struct {
	draft   *walkflow.DraftFormState
	history *walkflow.HistoryStack
	loader  *loader.Loader[MapParams, MapData]
	logger  zerolog.Logger

	listeners []viewListenerEntry
	nextID    int
}

// New creates a map screen loading from source. Call Start to run the first load.
func New(source Source, opts ...Option) (*Screen, error) {
	if source == nil {
		return nil, fmt.Errorf("map source is required")
	}

	o := &options{historyCapacity: walkflow.DefaultHistoryCapacity}
	for _, opt := range opts {
		opt(o)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)
	if o.logger != nil {
		logger = *o.logger
	}

	draft, err := walkflow.NewDraftFormState(map[string]any{
		FieldMetric:      MetricOverall,
		FieldShowSidebar: true,
		FieldDetailLevel: DetailSimple,
		FieldFilters:     []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create view state: %w", err)
	}

	loaderOpts := append([]loader.Option{loader.WithName("walkmap"), loader.WithLogger(logger)}, o.loaderOpts...)

	return &Screen{
		draft:   draft,
		history: walkflow.NewHistoryStack(o.historyCapacity),
		loader:  loader.New[MapParams, MapData](source.Fetch, loaderOpts...),
		logger:  logger.With().Str("screen", "walkmap").Logger(),
	}, nil
}

// Start loads the map for the current metric
func (s *Screen) Start() {
	s.loader.Trigger(MapParams{Metric: s.View().Metric})
}

// View returns the current view state
func (s *Screen) View() View {
	var v View
	if err := s.draft.Decode(&v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to decode view state")
	}
	if v.Filters == nil {
		v.Filters = []string{}
	}
	return v
}

// SetMetric switches the displayed metric and reloads the map
func (s *Screen) SetMetric(m Metric) error {
	if _, ok := lookupMetric(m); !ok {
		return walkflow.NewValidationError(FieldMetric, fmt.Sprintf("unknown metric %q", m))
	}
	changed, err := s.mutate(FieldMetric, m)
	if err != nil || !changed {
		return err
	}
	s.loader.Trigger(MapParams{Metric: m})
	return nil
}

// ToggleSidebar shows or hides the sidebar
func (s *Screen) ToggleSidebar() error {
	_, err := s.mutate(FieldShowSidebar, !s.View().ShowSidebar)
	return err
}

// ToggleDetailLevel switches between simple and detailed explanations
func (s *Screen) ToggleDetailLevel() error {
	next := DetailDetailed
	if s.View().DetailLevel == DetailDetailed {
		next = DetailSimple
	}
	_, err := s.mutate(FieldDetailLevel, next)
	return err
}

// ToggleFilter adds or removes a map layer
func (s *Screen) ToggleFilter(id string) error {
	if !slices.ContainsFunc(Filters, func(f Filter) bool { return f.ID == id }) {
		return walkflow.NewValidationError(FieldFilters, fmt.Sprintf("unknown filter %q", id))
	}

	filters := s.View().Filters
	if i := slices.Index(filters, id); i >= 0 {
		filters = slices.Delete(filters, i, i+1)
	} else {
		filters = append(filters, id)
	}
	_, err := s.mutate(FieldFilters, filters)
	return err
}

// Undo restores the previous view state and reloads the map if the metric changed.
// It returns false when there is nothing to undo.
func (s *Screen) Undo() bool {
	snap, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.draft.Restore(snap)
	walkflow.LogUndo(s.logger, snap.Seq(), s.history.Len())
	s.emit(Event{Type: EventUndoApplied})

	// Nothing to reload before the first load
	if _, started := s.loader.Params(); started {
		s.loader.Trigger(MapParams{Metric: s.View().Metric})
	}
	return true
}

// CanUndo reports whether Undo would change anything
func (s *Screen) CanUndo() bool {
	return s.history.Len() > 0
}

// HistoryLen returns the number of undoable view changes
func (s *Screen) HistoryLen() int {
	return s.history.Len()
}

// Load returns the map load bookkeeping
func (s *Screen) Load() walkflow.LoadAttempt {
	return s.loader.Attempt()
}

// Data returns the loaded map while the current load is successful
func (s *Screen) Data() (MapData, bool) {
	return s.loader.Result()
}

// Retry reloads the map after automatic retries were exhausted
func (s *Screen) Retry() error {
	return s.loader.ManualRetry()
}

// Subscribe registers a load listener and returns a func that removes it.
// View changes are reported through SubscribeView.
func (s *Screen) Subscribe(fn loader.Listener) func() {
	return s.loader.Subscribe(fn)
}

// Close stops the map loader
func (s *Screen) Close() {
	s.loader.Close()
}

// mutate records the current view and stores value under name
func (s *Screen) mutate(name string, value any) (bool, error) {
	changed, err := s.draft.Changes(name, value)
	if err != nil || !changed {
		return false, err
	}

	s.history.Push(s.draft.Snapshot())
	if err := s.draft.SetField(name, value); err != nil {
		s.history.Undo()
		return false, err
	}
	walkflow.LogFieldChanged(s.logger, name, s.history.Len())
	s.emit(Event{Type: EventViewChanged, Field: name})
	return true, nil
}

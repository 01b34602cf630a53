// Package profile owns the profile snapshot and the session lifecycle that
// drives the screen flow: welcome, setup, dimension confirmation, dashboard.
//
// A Service is the single writer of its snapshot. Methods are serialised so
// user events are applied one at a time.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/lifematrix/internal/apperr"
	"github.com/starford/lifematrix/internal/checksum"
	"github.com/starford/lifematrix/internal/identity"
	"github.com/starford/lifematrix/internal/models"
	"github.com/starford/lifematrix/internal/parser"
	"github.com/starford/lifematrix/internal/radar"
	"github.com/starford/lifematrix/internal/remotesync"
	"github.com/starford/lifematrix/internal/scoring"
	"github.com/starford/lifematrix/internal/storage"
)

// DefaultKey is the store key that holds the snapshot.
const DefaultKey = "life_matrix_v4_data"

const (
	// HistoryLimit is the number of entries kept; older ones are evicted.
	HistoryLimit = 100
	// RecentLimit is the number of entries shown on the dashboard.
	RecentLimit = 10
	// EntryPoints is the experience one entry adds.
	EntryPoints = 1

	fallbackName      = "Traveler"
	fallbackDimName   = "Unknown"
	fallbackDimColor  = "bg-slate-400"
	dateLayout        = "Jan 2 15:04"
	defaultMirrorWait = 15 * time.Second
)

// Service holds the running profile.
type Service struct {
	store    storage.Provider
	key      string
	ident    identity.Provider
	mirror   remotesync.Mirror
	logger   *slog.Logger
	notify   Notifier
	now      func() time.Time
	newID    func() string
	presets  []models.Dimension
	location *time.Location

	mu          sync.Mutex
	stage       Stage
	guest       bool
	userID      string // signed-in user as last applied, "" when signed out
	snap        models.Snapshot
	storedSum   string // checksum of the stored document as last read or written
	pending     []event
	unsubscribe func()
	mirrors     sync.WaitGroup
}

type event struct {
	kind string
	data any
}

// Option configures a Service.
type Option func(*Service)

// WithKey overrides the store key.
func WithKey(key string) Option {
	return func(s *Service) { s.key = key }
}

// WithIdentity sets the identity collaborator.
func WithIdentity(p identity.Provider) Option {
	return func(s *Service) { s.ident = p }
}

// WithMirror sets the remote sync strategy.
func WithMirror(m remotesync.Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithNotifier registers the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides history entry id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithPresets sets the dimensions offered to a fresh profile.
func WithPresets(dims []models.Dimension) Option {
	return func(s *Service) {
		if len(dims) > 0 {
			s.presets = append([]models.Dimension(nil), dims...)
		}
	}
}

// WithLocation sets the time zone used for entry display dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// NewService creates a Service. Call Load before anything else.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:    store,
		key:      DefaultKey,
		mirror:   remotesync.Noop{},
		logger:   slog.Default(),
		now:      time.Now,
		newID:    func() string { return "rec_" + uuid.NewString() },
		presets:  models.DefaultDimensions(),
		location: time.Local,
		stage:    StageUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap = models.Snapshot{Dimensions: append([]models.Dimension(nil), s.presets...)}
	return s
}

// Load restores the persisted snapshot. A snapshot with at least one
// dimension goes straight to the dashboard; anything else starts fresh.
// Read failures are logged and treated as a fresh start. Afterwards the
// service follows sign-in changes reported by the identity provider.
func (s *Service) Load(_ context.Context) Stage {
	stage, first := s.load()
	if first && s.ident != nil {
		// Subscribe reports the current user right away, so not under the lock.
		unsub := s.ident.Subscribe(s.userChanged)
		s.mu.Lock()
		s.unsubscribe = unsub
		s.mu.Unlock()
	}
	return stage
}

func (s *Service) load() (Stage, bool) {
	s.mu.Lock()
	defer s.unlock()

	if s.stage != StageUninitialized {
		return s.stage, false
	}

	if user, ok := s.currentUser(); ok {
		s.userID = user.ID
	}

	restored, sum, err := s.read()
	switch {
	case err == nil && len(restored.Dimensions) > 0:
		s.snap = restored
		s.storedSum = sum
		s.stage = StageDashboard
		s.logger.Info("profile restored",
			slog.Int("dimensions", len(restored.Dimensions)),
			slog.Int("history", len(restored.History)))
		return s.stage, true
	case err == nil:
		// Keep name/avatar from a partial snapshot, offer presets again.
		s.snap.Name = restored.Name
		s.snap.Avatar = restored.Avatar
	case errors.Is(err, apperr.ErrNotFound):
	default:
		s.logger.Error("persistence read failure", slog.String("key", s.key), slog.String("error", err.Error()))
	}

	s.stage = StageWelcome
	if s.userID != "" {
		s.stage = StageSetup
	}
	return s.stage, true
}

// Reload re-reads the stored snapshot and adopts it when another writer
// changed it. It reports whether anything was adopted. Only the dashboard
// stage follows the store; earlier stages are still being set up here.
func (s *Service) Reload() bool {
	s.mu.Lock()
	defer s.unlock()
	if !s.syncLocked() {
		return false
	}
	s.emit(EventProfileUpdated, nil)
	return true
}

// Close stops following the identity provider and waits for in-flight
// remote mirrors.
func (s *Service) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	s.Wait()
}

// Stage returns the current screen stage.
func (s *Service) Stage() Stage {
	s.mu.Lock()
	defer s.unlock()
	return s.stage
}

// Session derives the identity state from the identity collaborator.
func (s *Service) Session() identity.Session {
	s.mu.Lock()
	defer s.unlock()
	return s.session()
}

// Snapshot returns a copy of the current profile.
func (s *Service) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.unlock()
	return s.snap.Clone()
}

// SignIn runs the interactive sign-in. Failure is logged, the stage is left
// unchanged and an error wrapping apperr.ErrSignInFailed is returned.
func (s *Service) SignIn(ctx context.Context) (identity.Session, error) {
	if s.ident == nil {
		s.logger.Error("identity failure", slog.String("error", "no identity provider"))
		return s.Session(), fmt.Errorf("profile: sign in: %w", apperr.ErrSignInFailed)
	}
	// Not under the lock: the provider may block on the user.
	user, err := s.ident.SignInInteractive(ctx)

	s.mu.Lock()
	defer s.unlock()
	if err != nil {
		s.logger.Error("identity failure", slog.String("error", err.Error()))
		return s.session(), fmt.Errorf("profile: sign in: %w: %v", apperr.ErrSignInFailed, err)
	}
	// Usually already applied through the subscription.
	s.applyUserLocked(&user)
	return s.session(), nil
}

// SignOut signs the user out. The profile and stage are kept.
func (s *Service) SignOut() identity.Session {
	if s.ident != nil {
		s.ident.SignOut()
	}
	s.mu.Lock()
	defer s.unlock()
	s.applyUserLocked(nil)
	return s.session()
}

// userChanged is the identity subscription callback.
func (s *Service) userChanged(user *identity.Handle) {
	s.mu.Lock()
	defer s.unlock()
	if s.stage == StageUninitialized {
		return
	}
	s.applyUserLocked(user)
}

// applyUserLocked moves the session to user (nil for signed out). A user
// appearing on the welcome screen moves the flow on to setup. Repeated
// reports of the same user are ignored.
func (s *Service) applyUserLocked(user *identity.Handle) {
	id := ""
	if user != nil {
		id = user.ID
	}
	if id == s.userID {
		return
	}
	s.userID = id
	if user == nil {
		s.logger.Info("signed out")
	} else {
		s.logger.Info("signed in", slog.String("user", user.ID))
		s.guest = false
		if s.stage == StageWelcome {
			s.stage = StageSetup
		}
		if s.snap.Name == "" && user.DisplayName != "" {
			s.snap.Name = user.DisplayName
		}
	}
	s.emit(EventSessionChanged, s.session())
}

// ContinueAsGuest leaves the welcome stage without signing in.
func (s *Service) ContinueAsGuest() (Stage, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.stage != StageWelcome {
		return s.stage, s.stageErr(StageWelcome)
	}
	s.guest = true
	s.stage = StageSetup
	s.emit(EventSessionChanged, s.session())
	return s.stage, nil
}

// UpdateProfile sets the display name and avatar. On the dashboard the
// change is persisted; during setup it is held until Enter.
func (s *Service) UpdateProfile(name, avatar string) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.unlock()
	switch s.stage {
	case StageSetup, StageConfirm, StageDashboard:
	default:
		return s.snap.Clone(), s.stageErr(StageSetup)
	}
	s.syncLocked()
	s.snap.Name = strings.TrimSpace(name)
	s.snap.Avatar = avatar
	s.saveIfActive()
	s.emit(EventProfileUpdated, nil)
	return s.snap.Clone(), nil
}

// Continue moves from setup to dimension confirmation. A name is required.
func (s *Service) Continue() (Stage, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.stage != StageSetup {
		return s.stage, s.stageErr(StageSetup)
	}
	if s.snap.Name == "" {
		return s.stage, fmt.Errorf("profile: name is required: %w", apperr.ErrInvalidInput)
	}
	s.stage = StageConfirm
	return s.stage, nil
}

// Back returns from dimension confirmation to setup.
func (s *Service) Back() (Stage, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.stage != StageConfirm {
		return s.stage, s.stageErr(StageConfirm)
	}
	s.stage = StageSetup
	return s.stage, nil
}

// ToggleDimension flips whether the dimension with id is active. Positions
// never change, so the score vector stays aligned.
func (s *Service) ToggleDimension(id string) (models.Dimension, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.stage == StageUninitialized || s.stage == StageWelcome {
		return models.Dimension{}, s.stageErr(StageSetup)
	}
	s.syncLocked()
	i := s.snap.DimensionIndex(id)
	if i < 0 {
		return models.Dimension{}, fmt.Errorf("profile: dimension %q: %w", id, apperr.ErrNotFound)
	}
	s.snap.Dimensions[i].Active = !s.snap.Dimensions[i].Active
	s.saveIfActive()
	s.emit(EventProfileUpdated, nil)
	return s.snap.Dimensions[i], nil
}

// Enter confirms the dimensions and opens the dashboard with a zeroed score
// vector and empty history.
func (s *Service) Enter() (Stage, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.stage != StageConfirm {
		return s.stage, s.stageErr(StageConfirm)
	}
	s.snap.Scores = make([]int, len(s.snap.Dimensions))
	s.snap.History = []models.HistoryEntry{}
	s.stage = StageDashboard
	s.save()
	s.emit(EventProfileUpdated, nil)
	return s.stage, nil
}

// RecordProgress adds one point of experience to the dimension at index
// (its position in the full sequence) and logs text in the history.
//
// The in-memory change always sticks: a failed save is logged, not rolled
// back.
func (s *Service) RecordProgress(index int, text string) (models.HistoryEntry, error) {
	if strings.TrimSpace(text) == "" {
		return models.HistoryEntry{}, fmt.Errorf("profile: text is required: %w", apperr.ErrInvalidInput)
	}
	if index < 0 {
		return models.HistoryEntry{}, fmt.Errorf("profile: index %d: %w", index, apperr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.unlock()
	if s.stage != StageDashboard {
		return models.HistoryEntry{}, s.stageErr(StageDashboard)
	}
	s.syncLocked()

	s.snap.GrowScores(index + 1)
	s.snap.Scores[index] += EntryPoints

	name, color := fallbackDimName, fallbackDimColor
	if index < len(s.snap.Dimensions) {
		name = s.snap.Dimensions[index].Name
		color = s.snap.Dimensions[index].Color
	}
	now := s.now()
	entry := models.HistoryEntry{
		ID:        s.newID(),
		DimName:   name,
		DimColor:  color,
		Text:      text,
		Tags:      parser.Tags(text),
		Points:    EntryPoints,
		Timestamp: now.UnixMilli(),
		DateStr:   now.In(s.location).Format(dateLayout),
	}

	history := make([]models.HistoryEntry, 0, min(len(s.snap.History)+1, HistoryLimit))
	history = append(history, entry)
	history = append(history, s.snap.History...)
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}
	s.snap.History = history

	s.save()
	s.logger.Debug("progress recorded", slog.Int("index", index), slog.String("dimension", name))
	s.emit(EventProgressRecorded, map[string]any{"index": index, "entry": entry})
	return entry, nil
}

// History returns up to limit most recent entries; limit <= 0 returns all.
func (s *Service) History(limit int) []models.HistoryEntry {
	s.mu.Lock()
	defer s.unlock()
	h := s.snap.Clone().History
	if limit > 0 && len(h) > limit {
		h = h[:limit]
	}
	return h
}

// DimensionStat is the per-dimension dashboard line.
type DimensionStat struct {
	Index    int     `json:"index"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Active   bool    `json:"active"`
	Score    int     `json:"score"`
	Level    int     `json:"level"`
	Progress float64 `json:"progress"`
}

// Dashboard is the aggregate view shown in the dashboard stage.
type Dashboard struct {
	Stage      Stage                 `json:"stage"`
	Session    identity.Session      `json:"session"`
	Name       string                `json:"name"`
	Avatar     string                `json:"avatar,omitempty"`
	TotalLevel int                   `json:"totalLevel"`
	Balance    int                   `json:"balance"`
	Dimensions []DimensionStat       `json:"dimensions"`
	Radar      *radar.Scene          `json:"radar"`
	Recent     []models.HistoryEntry `json:"recent"`
}

// Dashboard computes the aggregate view. size is the radar target size.
func (s *Service) Dashboard(size float64) Dashboard {
	s.mu.Lock()
	defer s.unlock()

	snap := s.snap.Clone()
	name := snap.Name
	if name == "" {
		name = fallbackName
	}
	stats := make([]DimensionStat, len(snap.Dimensions))
	for i, d := range snap.Dimensions {
		score := snap.Score(i)
		stats[i] = DimensionStat{
			Index:    i,
			ID:       d.ID,
			Name:     d.Name,
			Color:    d.Color,
			Active:   d.Active,
			Score:    score,
			Level:    scoring.Level(score),
			Progress: scoring.Progress(score),
		}
	}
	recent := snap.History
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	if recent == nil {
		recent = []models.HistoryEntry{}
	}
	return Dashboard{
		Stage:      s.stage,
		Session:    s.session(),
		Name:       name,
		Avatar:     snap.Avatar,
		TotalLevel: scoring.TotalLevel(snap.Scores),
		Balance:    scoring.Balance(snap.Scores),
		Dimensions: stats,
		Radar:      s.radarLocked(size),
		Recent:     recent,
	}
}

// Radar lays out the radar scene for the current profile. Before the
// dashboard every dimension shows zero experience.
func (s *Service) Radar(size float64) *radar.Scene {
	s.mu.Lock()
	defer s.unlock()
	return s.radarLocked(size)
}

// Activate hit-tests a point on the radar scene of the given size and
// returns the full-sequence index of the dimension under it.
func (s *Service) Activate(size float64, p radar.Point) (int, bool) {
	return s.Radar(size).HitTest(p)
}

// Wait blocks until in-flight remote mirrors finish.
func (s *Service) Wait() {
	s.mirrors.Wait()
}

func (s *Service) radarLocked(size float64) *radar.Scene {
	scores := s.snap.Scores
	if s.stage != StageDashboard {
		scores = make([]int, len(s.snap.Dimensions))
	}
	return radar.Layout(s.snap.Dimensions, scores, size)
}

// read returns the stored snapshot and the checksum of its encoding.
func (s *Service) read() (models.Snapshot, string, error) {
	var snap models.Snapshot
	data, err := s.store.Get(s.key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return snap, "", err
		}
		return snap, "", &apperr.PersistenceError{Op: apperr.OpRead, Key: s.key, Err: err}
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, "", &apperr.PersistenceError{Op: apperr.OpRead, Key: s.key, Err: err}
	}
	return snap, checksum.Sum(data), nil
}

// syncLocked adopts the stored snapshot if another writer replaced it since
// this service last read or wrote it, so a following save does not drop
// their changes. Read failures keep the in-memory state.
func (s *Service) syncLocked() bool {
	if s.stage != StageDashboard {
		return false
	}
	stored, sum, err := s.read()
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return false
	case err != nil:
		s.logger.Warn("persistence read failure", slog.String("key", s.key), slog.String("error", err.Error()))
		return false
	case sum == s.storedSum || len(stored.Dimensions) == 0:
		return false
	}
	s.snap = stored
	s.storedSum = sum
	s.logger.Info("profile reloaded from store",
		slog.Int("history", len(stored.History)))
	return true
}

func (s *Service) saveIfActive() {
	if s.stage == StageDashboard {
		s.save()
	}
}

// save writes the whole snapshot and, for a signed-in user, mirrors it in
// the background. Failures are logged only.
func (s *Service) save() {
	s.snap.UpdatedAt = s.now().UTC()
	if s.snap.History == nil {
		s.snap.History = []models.HistoryEntry{}
	}
	data, err := json.Marshal(s.snap)
	if err == nil {
		err = s.store.Put(s.key, data)
	}
	if err == nil {
		s.storedSum = checksum.Sum(data)
	} else {
		perr := &apperr.PersistenceError{Op: apperr.OpWrite, Key: s.key, Err: err}
		s.logger.Error("persistence write failure", slog.String("key", s.key), slog.String("error", perr.Error()))
	}

	user, ok := s.currentUser()
	if !ok || s.mirror == nil {
		return
	}
	snap := s.snap.Clone()
	s.mirrors.Add(1)
	go func() {
		defer s.mirrors.Done()
		ctx, cancel := context.WithTimeout(context.Background(), defaultMirrorWait)
		defer cancel()
		if err := s.mirror.Mirror(ctx, user, snap); err != nil {
			s.logger.Warn("remote mirror failed", slog.String("user", user.ID), slog.String("error", err.Error()))
		}
	}()
}

func (s *Service) currentUser() (identity.Handle, bool) {
	if s.ident == nil {
		return identity.Handle{}, false
	}
	return s.ident.CurrentUser()
}

func (s *Service) session() identity.Session {
	if user, ok := s.currentUser(); ok {
		return identity.Session{Kind: identity.Authenticated, User: &user}
	}
	if s.guest {
		return identity.Session{Kind: identity.Guest}
	}
	return identity.Session{Kind: identity.SignedOut}
}

// emit queues an event; unlock delivers it once mu is released.
func (s *Service) emit(kind string, data any) {
	if s.notify != nil {
		s.pending = append(s.pending, event{kind: kind, data: data})
	}
}

// unlock releases mu and then delivers the events queued while it was held,
// so a Notifier may call back into the Service.
func (s *Service) unlock() {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, e := range events {
		s.notify(e.kind, e.data)
	}
}

func (s *Service) stageErr(want Stage) error {
	return fmt.Errorf("profile: stage is %s, want %s: %w", s.stage, want, apperr.ErrStageMismatch)
}

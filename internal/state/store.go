// Package state owns the persisted budget document: first-run creation,
// version migration, monthly rollover, the advisory write lock and reset.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgeto/internal/calendar"
	"budgeto/internal/core"
	"budgeto/internal/log"
	"budgeto/internal/seed"
	"budgeto/internal/storage"
)

// Seeder supplies first-run categories and dev-mode demo data.
type Seeder interface {
	SeedCategories() []core.Category
	GenerateMockData(now time.Time) seed.MockData
}

type Options struct {
	Keys       storage.Keys
	Calendar   *calendar.Calendar
	Logger     *log.Logger
	DevMode    bool
	Seeder     Seeder
	Notifier   Notifier
	LockPolicy LockPolicy
}

// Transitions reports what Initialize did to the stored document.
type Transitions struct {
	Created            bool
	Migrated           bool
	FromVersion        int
	CategoriesMigrated bool
	RolledOver         bool
	Repaired           bool
}

func (t Transitions) changed() bool {
	return t.Created || t.Migrated || t.CategoriesMigrated || t.RolledOver || t.Repaired
}

type Store struct {
	kv       storage.KeyValueStore
	keys     storage.Keys
	cal      *calendar.Calendar
	logger   *log.Logger
	devMode  bool
	seeder   Seeder
	notifier Notifier
	lock     *advisoryLock
}

func New(kv storage.KeyValueStore, opts Options) *Store {
	if opts.Keys == (storage.Keys{}) {
		opts.Keys = storage.NewKeys("")
	}
	if opts.Calendar == nil {
		opts.Calendar = calendar.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Seeder == nil {
		opts.Seeder = seed.NewRandomGenerator()
	}
	logger := opts.Logger.WithComponent(log.ComponentState)
	return &Store{
		kv:       kv,
		keys:     opts.Keys,
		cal:      opts.Calendar,
		logger:   logger,
		devMode:  opts.DevMode,
		seeder:   opts.Seeder,
		notifier: opts.Notifier,
		lock:     newAdvisoryLock(kv, opts.Keys.Lock, opts.LockPolicy, opts.Calendar.NowLocal, logger),
	}
}

func (s *Store) Keys() storage.Keys { return s.keys }

func (s *Store) Calendar() *calendar.Calendar { return s.cal }

// Load returns the stored document as written, without migration, or nil
// when nothing has been stored yet.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	raw, ok, err := s.kv.Get(ctx, s.keys.AppState)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	return decodeDocument(raw)
}

// LoadInitialized returns the state after creation, migration and rollover,
// persisting whatever changed. It also stamps the last-opened key.
func (s *Store) LoadInitialized(ctx context.Context) (*core.AppState, error) {
	st, _, err := s.Initialize(ctx)
	return st, err
}

// Initialize is LoadInitialized that also reports the transitions applied.
func (s *Store) Initialize(ctx context.Context) (*core.AppState, Transitions, error) {
	release, err := s.lock.acquire(ctx)
	if err != nil {
		return nil, Transitions{}, err
	}
	defer release()

	st, tr, err := s.initializeLocked(ctx)
	if err != nil {
		return nil, tr, err
	}
	s.touchLastOpened(ctx)
	s.notifyTransitions(ctx, st, tr)
	return st.Clone(), tr, nil
}

func (s *Store) initializeLocked(ctx context.Context) (*core.AppState, Transitions, error) {
	var tr Transitions

	doc, err := s.Load(ctx)
	if err != nil {
		return nil, tr, err
	}

	if doc == nil {
		st, err := s.create(ctx)
		if err != nil {
			return nil, tr, err
		}
		tr.Created = true
		return st, tr, nil
	}

	upgraded, from, err := upgrade(*doc)
	if err != nil {
		return nil, tr, err
	}
	tr.FromVersion = from
	if from != upgraded.Version {
		tr.Migrated = true
		s.logger.InfoContext(ctx, "state migrated", log.NewFields().WithOperation(log.OpMigrate).WithVersion(from, upgraded.Version).ToSlice()...)
	}

	cats, catsChanged := migrateCategories(upgraded.Categories)
	if catsChanged {
		upgraded.Categories = cats
		tr.CategoriesMigrated = true
		s.logger.InfoContext(ctx, "category display keys migrated", log.FieldOperation, log.OpMigrate)
	}

	if s.repairLastReset(&upgraded) {
		tr.Repaired = true
		s.logger.WarnContext(ctx, "missing or unreadable reset anchor replaced", log.FieldLastReset, *upgraded.LastResetTimestamp)
	}

	st, err := upgraded.toState()
	if err != nil {
		return nil, tr, err
	}

	if s.cal.ShouldReset(st.LastReset) {
		cleared := len(st.VariableEntries)
		st.VariableEntries = []core.VariableEntry{}
		st.LastReset = s.cal.CurrentMonthStart()
		tr.RolledOver = true
		s.logger.InfoContext(ctx, "variable entries rolled over",
			log.FieldOperation, log.OpRollover,
			log.FieldCount, cleared,
			log.FieldLastReset, calendar.FormatISO(st.LastReset))
	}

	if tr.changed() {
		if err := s.save(ctx, st); err != nil {
			return nil, tr, err
		}
	}
	st.Version = CurrentVersion
	return st, tr, nil
}

// repairLastReset gives a present document without a usable anchor the
// current month, so rollover starts working again without losing entries.
func (s *Store) repairLastReset(doc *Document) bool {
	if doc.LastResetTimestamp != nil {
		if _, err := calendar.ParseISO(*doc.LastResetTimestamp); err == nil {
			return false
		}
	}
	iso := calendar.FormatISO(s.cal.CurrentMonthStart())
	doc.LastResetTimestamp = &iso
	return true
}

func (s *Store) create(ctx context.Context) (*core.AppState, error) {
	st := &core.AppState{
		Version:         CurrentVersion,
		FixedEntries:    []core.FixedEntry{},
		VariableEntries: []core.VariableEntry{},
		Categories:      s.seeder.SeedCategories(),
		LastReset:       s.cal.CurrentMonthStart(),
		DefaultCurrency: core.DKK,
	}

	dev, err := s.IsDevMode(ctx)
	if err != nil {
		return nil, err
	}
	if dev {
		mock := s.seeder.GenerateMockData(s.cal.NowLocal())
		st.FixedEntries = mock.FixedEntries
		st.VariableEntries = mock.VariableEntries
	}

	if err := s.save(ctx, st); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, s.keys.SeedApplied, "true"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	s.logger.InfoContext(ctx, "state initialized",
		log.FieldOperation, log.OpInit,
		"dev_mode", dev,
		log.FieldCount, len(st.VariableEntries))
	return st, nil
}

// Save writes st as the current document version.
func (s *Store) Save(ctx context.Context, st *core.AppState) error {
	release, err := s.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.save(ctx, st); err != nil {
		return err
	}
	s.notify(ctx, ChangeUpdated, st)
	return nil
}

func (s *Store) save(ctx context.Context, st *core.AppState) error {
	raw, err := encodeDocument(documentFrom(st))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	if err := s.kv.Set(ctx, s.keys.AppState, raw); err != nil {
		s.logger.ErrorContext(ctx, "state write rejected", log.NewFields().WithOperation(log.OpSave).WithError(err).ToSlice()...)
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// WithLock runs fn on the initialized state while holding the write lock and
// saves the result. If fn fails nothing is written and its error is
// returned.
func WithLock[T any](ctx context.Context, s *Store, fn func(*core.AppState) (T, error)) (T, error) {
	return withLockKind(ctx, s, ChangeUpdated, fn)
}

func withLockKind[T any](ctx context.Context, s *Store, kind ChangeKind, fn func(*core.AppState) (T, error)) (T, error) {
	var zero T

	release, err := s.lock.acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer release()

	st, tr, err := s.initializeLocked(ctx)
	if err != nil {
		return zero, err
	}
	s.notifyTransitions(ctx, st, tr)

	work := st.Clone()
	result, err := fn(work)
	if err != nil {
		return zero, err
	}
	if err := s.save(ctx, work); err != nil {
		return zero, err
	}
	s.notify(ctx, kind, work)
	return result, nil
}

// Update is WithLock for mutators without a result.
func (s *Store) Update(ctx context.Context, fn func(*core.AppState) error) error {
	_, err := WithLock(ctx, s, func(st *core.AppState) (struct{}, error) {
		return struct{}{}, fn(st)
	})
	return err
}

// Reset removes every key, preferences included, so the next load starts
// from scratch and onboarding shows again.
func (s *Store) Reset(ctx context.Context) error {
	release, err := s.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	var errs []error
	for _, key := range s.keys.All() {
		if key == s.keys.Lock {
			continue // dropped by release
		}
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	s.logger.InfoContext(ctx, "all data reset", log.FieldOperation, log.OpReset)
	s.notify(ctx, ChangeReset, nil)
	return nil
}

func (s *Store) touchLastOpened(ctx context.Context) {
	now := calendar.FormatISO(s.cal.NowLocal())
	if err := s.kv.Set(ctx, s.keys.LastOpened, now); err != nil {
		s.logger.WarnContext(ctx, "could not record last opened", log.FieldError, err)
	}
}

// LastOpened returns when LoadInitialized last ran, if ever.
func (s *Store) LastOpened(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := s.kv.Get(ctx, s.keys.LastOpened)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := calendar.ParseISO(raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (s *Store) notifyTransitions(ctx context.Context, st *core.AppState, tr Transitions) {
	switch {
	case tr.Created:
		s.notify(ctx, ChangeCreated, st)
	case tr.RolledOver:
		s.notify(ctx, ChangeRolledOver, st)
	case tr.Migrated || tr.CategoriesMigrated || tr.Repaired:
		s.notify(ctx, ChangeMigrated, st)
	}
}

func (s *Store) notify(ctx context.Context, kind ChangeKind, st *core.AppState) {
	if s.notifier == nil {
		return
	}
	change := StateChange{Kind: kind, At: s.cal.NowLocal()}
	if st != nil {
		change.Version = CurrentVersion
		change.FixedCount = len(st.FixedEntries)
		change.VariableCount = len(st.VariableEntries)
		change.DefaultCurrency = string(st.DefaultCurrency)
	}
	if err := s.notifier.Notify(ctx, change); err != nil {
		s.logger.WarnContext(ctx, "state change notification failed", log.FieldError, err, "kind", string(kind))
	}
}

// Package offset is the checkpoint reconciliation ledger. A function's
// incremental position (last-modified timestamp, last-seen row id, ...) is
// persisted as a single-row table whose columns are the checkpoint keys;
// this package loads it before a run, exposes it to the function, and
// decides whether the run's outcome needs a new snapshot written.
//
// Cross-invocation serialization is the scheduler's responsibility: at
// most one invocation per logical function runs at a time. Store performs
// a best-effort optimistic re-check of the loaded snapshot's version, but
// that is a guard against supervisor bugs, not a locking protocol.
package offset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
	"github.com/tabsdata-labs/tabsdata-go/internal/request"
	"github.com/tabsdata-labs/tabsdata-go/internal/storage"
)

type UpdateMode string

const (
	// ModeNone: no checkpoint existed and none will be written.
	ModeNone UpdateMode = "none"
	// ModeNew: a fresh checkpoint value is pending write.
	ModeNew UpdateMode = "new"
	// ModeSame: the loaded checkpoint stands for the next run; the stored
	// table already holds it, so nothing is rewritten.
	ModeSame UpdateMode = "same"
)

var (
	ErrNotLoaded           = errors.New("offset ledger not loaded")
	ErrAlreadyApplied      = errors.New("offset update already applied this invocation")
	ErrNoReturnValues      = errors.New("source does not surface offset values")
	ErrMultiRowOffset      = errors.New("persisted offset table must hold exactly one row")
	ErrNoOffsetDestination = errors.New("no destination provisioned for the offset table")
	ErrOffsetConflict      = errors.New("offset table changed since it was loaded")
)

// Ledger is built once per invocation and follows the strict sequence
// Load, optional Apply, Store.
type Ledger struct {
	logger *slog.Logger
	store  *storage.Resolver

	returnsValues   bool
	decoratorValues map[string]string

	loaded  map[string]string
	current map[string]string
	next    map[string]string

	mode               UpdateMode
	useDecoratorValues bool
	loadedVersion      string
	loadedFrom         domain.Location
	loadedOnce         bool
	appliedOnce        bool

	outputTableName string
	meta            domain.TableMeta
}

func NewLedger(logger *slog.Logger, store *storage.Resolver, returnsValues bool, decoratorValues map[string]string) *Ledger {
	return &Ledger{
		logger:          logger,
		store:           store,
		returnsValues:   returnsValues,
		decoratorValues: decoratorValues,
		loaded:          map[string]string{},
		current:         map[string]string{},
		next:            map[string]string{},
		mode:            ModeNone,
	}
}

// Load reads the request's system input offset table. A null location
// means no checkpoint exists yet and the decorator-declared initial
// values, if any, seed this run.
func (l *Ledger) Load(ctx context.Context, inv *request.Invocation) error {
	if l.loadedOnce {
		return errors.New("offset ledger loaded twice")
	}
	l.loadedOnce = true

	input, err := inv.OffsetInput()
	if err != nil || input.Location.IsNull() {
		l.mode = ModeNone
		l.useDecoratorValues = true
		maps.Copy(l.current, l.decoratorValues)
		l.logger.Info("no offset table provisioned, seeding from declared initial values",
			"initial_values", len(l.decoratorValues))
		return nil
	}

	snapshot, err := l.store.Read(ctx, input.Location)
	if err != nil {
		return fmt.Errorf("load offset table: %w", err)
	}
	if rows := snapshot.Rows(); rows != 1 {
		return fmt.Errorf("%w (got %d rows)", ErrMultiRowOffset, rows)
	}

	values := make(map[string]string)
	for _, col := range frame.UserColumns(snapshot) {
		values[col.Name] = col.Values[0]
	}
	l.loaded = values
	l.current = maps.Clone(values)
	l.mode = ModeNew
	l.useDecoratorValues = false
	l.loadedVersion = frame.SnapshotVersion(snapshot)
	l.loadedFrom = input.Location
	l.outputTableName = input.Name
	l.logger.Info("offset table loaded", "table", input.Name, "keys", len(values))
	return nil
}

// Current is the mutable working copy handed to the running function.
// Mutating it never touches the loaded checkpoint.
func (l *Ledger) Current() map[string]string {
	return l.current
}

func (l *Ledger) Mode() UpdateMode {
	return l.mode
}

func (l *Ledger) UsesDecoratorValues() bool {
	return l.useDecoratorValues
}

func (l *Ledger) Meta() domain.TableMeta {
	return l.meta
}

// Apply records the checkpoint the function surfaced. Called at most once
// per invocation, and only for sources that return offset values.
func (l *Ledger) Apply(update Update) error {
	if !l.loadedOnce {
		return ErrNotLoaded
	}
	if !l.returnsValues {
		return ErrNoReturnValues
	}
	if l.appliedOnce {
		return ErrAlreadyApplied
	}
	l.appliedOnce = true

	if update.IsReaffirm() {
		l.mode = ModeSame
		l.logger.Info("offset reaffirmed, next run reuses the stored checkpoint")
		return nil
	}
	maps.Copy(l.next, update.Values())
	l.mode = ModeNew
	return nil
}

// Changed reports whether Store has anything to write. Identical
// checkpoints are not rewritten, and a run that surfaced no update leaves
// the stored checkpoint untouched.
func (l *Ledger) Changed() bool {
	if !l.appliedOnce {
		return false
	}
	switch l.mode {
	case ModeNone, ModeSame:
		return false
	}
	return !maps.Equal(l.next, l.loaded)
}

// Store persists the pending checkpoint to the request's system output
// offset table. A no-op when nothing changed; a missing destination while
// a write is required is fatal.
func (l *Ledger) Store(ctx context.Context, inv *request.Invocation, triggeredOn time.Time, transactionID string) error {
	if !l.loadedOnce {
		return ErrNotLoaded
	}
	if !l.Changed() {
		l.logger.Info("offset unchanged, nothing to store", "mode", string(l.mode))
		return nil
	}

	output, err := inv.OffsetOutput()
	if err != nil || output.Location.IsNull() {
		return ErrNoOffsetDestination
	}

	if l.loadedVersion != "" {
		if err := l.checkConflict(ctx); err != nil {
			return err
		}
	}

	snapshot := frame.WithSystemColumns(frame.SingleRow(l.next), frame.NewStamp(transactionID, triggeredOn))
	if err := l.store.Write(ctx, output.Location, snapshot); err != nil {
		return fmt.Errorf("store offset table: %w", err)
	}
	l.meta = snapshot.Meta()
	l.outputTableName = output.Name
	l.loaded = maps.Clone(l.next)
	l.logger.Info("offset table stored",
		"table", output.Name,
		"keys", len(l.next),
		"schema_hash", l.meta.SchemaHash)
	return nil
}

// checkConflict re-reads the loaded snapshot and fails if its version
// moved, which would mean a concurrent invocation violated the external
// serialization contract.
func (l *Ledger) checkConflict(ctx context.Context) error {
	snapshot, err := l.store.Read(ctx, l.loadedFrom)
	if err != nil {
		return fmt.Errorf("recheck offset table: %w", err)
	}
	if version := frame.SnapshotVersion(snapshot); version != l.loadedVersion {
		return fmt.Errorf("%w (loaded %s, found %s)", ErrOffsetConflict, l.loadedVersion, version)
	}
	return nil
}

// Report describes the ledger's outcome for the response document. Nil
// when no checkpoint was written.
func (l *Ledger) Report() *domain.ModifiedTable {
	if l.meta == (domain.TableMeta{}) {
		return nil
	}
	return &domain.ModifiedTable{Name: l.outputTableName, Meta: l.meta}
}

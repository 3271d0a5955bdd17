package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"zakatledger/internal/commission"
	"zakatledger/internal/core"
	"zakatledger/internal/lock"
	"zakatledger/internal/log"
)

// CancelPolicy decides what happens to a snapshot when its transaction is
// cancelled.
type CancelPolicy string

const (
	CancelRetain CancelPolicy = "retain"
	CancelDelete CancelPolicy = "delete"
)

// BasisOnEdit decides which basis mode an edited transaction's snapshot uses.
type BasisOnEdit string

const (
	// BasisRefresh applies the fiscal year's current basis mode.
	BasisRefresh BasisOnEdit = "refresh"
	// BasisPreserve keeps the mode recorded when the snapshot was created.
	BasisPreserve BasisOnEdit = "preserve"
)

// Options configures an Orchestrator. Empty policies default to retaining
// snapshots on cancel and refreshing the basis mode on edit.
type Options struct {
	Locker      lock.Locker
	OnCancel    CancelPolicy
	BasisOnEdit BasisOnEdit
	Now         func() time.Time
	NewID       func() string
}

// Orchestrator records one commission snapshot per source transaction.
// Writes for the same source are serialized by the locker.
type Orchestrator struct {
	repo        Repository
	configs     ConfigResolver
	locker      lock.Locker
	onCancel    CancelPolicy
	basisOnEdit BasisOnEdit
	now         func() time.Time
	newID       func() string
	log         *log.Logger
}

// NewOrchestrator creates an Orchestrator that stores snapshots in repo and
// resolves commission configs through configs.
func NewOrchestrator(repo Repository, configs ConfigResolver, opts Options) *Orchestrator {
	o := &Orchestrator{
		repo:        repo,
		configs:     configs,
		locker:      opts.Locker,
		onCancel:    opts.OnCancel,
		basisOnEdit: opts.BasisOnEdit,
		now:         opts.Now,
		newID:       opts.NewID,
		log:         log.Default(log.ComponentSnapshot),
	}
	if o.locker == nil {
		o.locker = lock.NewLocal()
	}
	if o.onCancel == "" {
		o.onCancel = CancelRetain
	}
	if o.basisOnEdit == "" {
		o.basisOnEdit = BasisRefresh
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = func() string { return uuid.NewString() }
	}
	return o
}

// Create computes and stores the snapshot of a new transaction.
func (o *Orchestrator) Create(ctx context.Context, in Input) (*Snapshot, error) {
	const op = "snapshot.Create"

	actor, cat, err := o.prepare(ctx, op, &in)
	if err != nil {
		return nil, err
	}

	unlock, err := o.lockSource(ctx, in.Source)
	if err != nil {
		return nil, core.Persistence(op, err)
	}
	defer unlock()

	cfg, err := o.configs.Resolve(ctx, in.FiscalYearID)
	if err != nil {
		return nil, err
	}

	now := o.now().UTC()
	s := Snapshot{
		ID:           o.newID(),
		FiscalYearID: in.FiscalYearID,
		Date:         in.Date,
		Result:       cfg.Breakdown(cat, in.Gross, in.Reconciliation),
		Source:       in.Source,
		Notes:        in.Notes,
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.repo.InsertSnapshot(ctx, s); err != nil {
		if errors.Is(err, ErrSnapshotExists) {
			return nil, core.Validation(op, err)
		}
		return nil, core.Persistence(op, err)
	}

	o.log.InfoContext(ctx, "Commission snapshot created", o.fields(s, log.OpCreate)...)
	return &s, nil
}

// Upsert overwrites the computed fields of the source's snapshot, creating
// it when absent.
func (o *Orchestrator) Upsert(ctx context.Context, in Input) (*Snapshot, error) {
	const op = "snapshot.Upsert"

	actor, cat, err := o.prepare(ctx, op, &in)
	if err != nil {
		return nil, err
	}

	unlock, err := o.lockSource(ctx, in.Source)
	if err != nil {
		return nil, core.Persistence(op, err)
	}
	defer unlock()

	cfg, err := o.configs.Resolve(ctx, in.FiscalYearID)
	if err != nil {
		return nil, err
	}

	existing, err := o.repo.SnapshotBySource(ctx, in.Source)
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		now := o.now().UTC()
		s := Snapshot{
			ID:           o.newID(),
			FiscalYearID: in.FiscalYearID,
			Date:         in.Date,
			Result:       cfg.Breakdown(cat, in.Gross, in.Reconciliation),
			Source:       in.Source,
			Notes:        in.Notes,
			CreatedBy:    actor,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := o.repo.InsertSnapshot(ctx, s); err != nil {
			return nil, core.Persistence(op, err)
		}
		o.log.InfoContext(ctx, "Commission snapshot created on upsert", o.fields(s, log.OpUpsert)...)
		return &s, nil
	case err != nil:
		return nil, core.Persistence(op, err)
	}

	if o.basisOnEdit == BasisPreserve && existing.BasisMode != "" {
		cfg.BasisMode = existing.BasisMode
	}

	existing.FiscalYearID = in.FiscalYearID
	existing.Date = in.Date
	existing.Result = cfg.Breakdown(cat, in.Gross, in.Reconciliation)
	existing.Notes = in.Notes
	existing.UpdatedAt = o.now().UTC()

	if err := o.repo.UpdateSnapshot(ctx, existing); err != nil {
		return nil, core.Persistence(op, err)
	}

	o.log.InfoContext(ctx, "Commission snapshot updated", o.fields(existing, log.OpUpsert)...)
	return &existing, nil
}

// Cancel applies the cancel policy to the source's snapshot. Cancelling a
// source without a snapshot is not an error.
func (o *Orchestrator) Cancel(ctx context.Context, src core.SourceRef) error {
	const op = "snapshot.Cancel"

	if _, err := core.RequireActor(ctx, op); err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return core.Validation(op, err)
	}
	if o.onCancel == CancelRetain {
		o.log.DebugContext(ctx, "Snapshot retained after cancel",
			log.NewFields().WithSource(src).WithOperation(log.OpCancel).ToSlice()...)
		return nil
	}

	unlock, err := o.lockSource(ctx, src)
	if err != nil {
		return core.Persistence(op, err)
	}
	defer unlock()

	err = o.repo.DeleteSnapshotBySource(ctx, src)
	if errors.Is(err, ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return core.Persistence(op, err)
	}
	o.log.InfoContext(ctx, "Commission snapshot deleted",
		log.NewFields().WithSource(src).WithOperation(log.OpCancel).ToSlice()...)
	return nil
}

func (o *Orchestrator) Get(ctx context.Context, src core.SourceRef) (*Snapshot, error) {
	const op = "snapshot.Get"

	if err := src.Validate(); err != nil {
		return nil, core.Validation(op, err)
	}
	s, err := o.repo.SnapshotBySource(ctx, src)
	if errors.Is(err, ErrSnapshotNotFound) {
		return nil, core.NotFound(op, err)
	}
	if err != nil {
		return nil, core.Persistence(op, err)
	}
	return &s, nil
}

func (o *Orchestrator) List(ctx context.Context, fiscalYearID string) ([]Snapshot, error) {
	out, err := o.repo.ListSnapshots(ctx, strings.TrimSpace(fiscalYearID))
	if err != nil {
		return nil, core.Persistence("snapshot.List", err)
	}
	return out, nil
}

// Apply runs one job against the orchestrator.
func (o *Orchestrator) Apply(ctx context.Context, job Job) error {
	switch job.Op {
	case OpCreate:
		_, err := o.Create(ctx, job.Input)
		return err
	case OpUpsert:
		_, err := o.Upsert(ctx, job.Input)
		return err
	case OpCancel:
		return o.Cancel(ctx, job.Source)
	default:
		return core.Validation("snapshot.Apply", fmt.Errorf("unknown op %q", job.Op))
	}
}

// prepare checks the actor and input and maps the raw category.
func (o *Orchestrator) prepare(ctx context.Context, op string, in *Input) (string, commission.Category, error) {
	actor, err := core.RequireActor(ctx, op)
	if err != nil {
		return "", "", err
	}
	in.FiscalYearID = strings.TrimSpace(in.FiscalYearID)
	if err := in.validate(); err != nil {
		return "", "", core.Validation(op, err)
	}
	cat, ok := commission.MapCategory(in.RawCategory)
	if !ok {
		return "", "", fmt.Errorf("%s: %w: %q", op, ErrUnmappedCategory, in.RawCategory)
	}
	if in.Date.IsZero() {
		in.Date = core.Today()
	}
	return actor, cat, nil
}

func (o *Orchestrator) lockSource(ctx context.Context, src core.SourceRef) (func(), error) {
	return o.locker.Lock(ctx, "snapshot:"+src.String())
}

func (o *Orchestrator) fields(s Snapshot, op string) []any {
	return log.NewFields().
		WithSource(s.Source).
		WithOperation(op).
		With(log.FieldFiscalYear, s.FiscalYearID).
		With(log.FieldCategory, string(s.Category)).
		With(log.FieldBasisMode, string(s.BasisMode)).
		With(log.FieldAmount, s.CommissionAmount.String()).
		ToSlice()
}

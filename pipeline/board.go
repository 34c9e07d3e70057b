// Package pipeline keeps the patient pipeline board: five stage columns and
// drag moves between them, applied optimistically and reverted when the
// stage write fails.
package pipeline

import (
	"ClinicHub/models"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownTarget   = errors.New("drop target is neither a stage nor a patient")
	ErrPatientNotFound = errors.New("patient is not on the board")
)

// PatientLoader fetches the full patient list, bypassing any read cache.
type PatientLoader interface {
	ListFresh(ctx context.Context, filter models.PatientFilter) ([]models.Patient, error)
}

// StageUpdater persists a patient's stage.
type StageUpdater interface {
	UpdateStage(ctx context.Context, id string, stage models.PipelineStage) error
}

// DragEnd is the drop of a dragged card. OverID is a stage name when dropped
// on a column, or a patient id when dropped on another card.
type DragEnd struct {
	ActiveID string `json:"active_id"`
	OverID   string `json:"over_id"`
}

type MoveResult struct {
	PatientID string               `json:"patient_id"`
	From      models.PipelineStage `json:"from"`
	To        models.PipelineStage `json:"to"`
	Changed   bool                 `json:"changed"`
}

type Column struct {
	Stage    models.PipelineStage `json:"stage"`
	Patients []models.Patient     `json:"patients"`
}

// fetchTimeout bounds a board fetch. A fetch serves every coalesced caller,
// so it does not stop when the caller that started it goes away.
var fetchTimeout = 10 * time.Second

type pendingMove struct {
	from  models.PipelineStage
	to    models.PipelineStage
	token uint64
}

// settledMove is a written stage that fetches started before the write may
// not have seen yet.
type settledMove struct {
	to  models.PipelineStage
	gen uint64
}

// refreshRun is one refresh cycle shared by every caller that joins it.
type refreshRun struct {
	done    chan struct{}
	err     error
	rerun   bool
	waiters int
}

type Board struct {
	loader  PatientLoader
	updater StageUpdater

	mu       sync.RWMutex
	patients []models.Patient
	index    map[string]int
	pending  map[string]pendingMove
	settled  map[string]settledMove
	seq      uint64
	gen      uint64
	loaded   bool

	refreshMu sync.Mutex
	running   *refreshRun
}

func NewBoard(loader PatientLoader, updater StageUpdater) *Board {
	return &Board{
		loader:  loader,
		updater: updater,
		index:   make(map[string]int),
		pending: make(map[string]pendingMove),
		settled: make(map[string]settledMove),
	}
}

// Load fetches the patient list once.
func (b *Board) Load(ctx context.Context) error {
	return b.Refresh(ctx)
}

// Loaded reports whether the board has been filled at least once.
func (b *Board) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// Refresh refetches the patient list. A call made while a refresh is running
// joins it: the running cycle fetches exactly once more, and every joined
// call returns when the cycle ends, with its last error.
func (b *Board) Refresh(ctx context.Context) error {
	b.refreshMu.Lock()
	if run := b.running; run != nil {
		run.rerun = true
		run.waiters++
		b.refreshMu.Unlock()
		select {
		case <-run.done:
			return run.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	run := &refreshRun{done: make(chan struct{})}
	b.running = run
	b.refreshMu.Unlock()

	for {
		err := b.fetch(ctx)

		b.refreshMu.Lock()
		// a rerun requested during a failed fetch still gets its fetch
		if !run.rerun {
			run.err = err
			b.running = nil
			close(run.done)
			b.refreshMu.Unlock()
			if run.waiters > 0 {
				log.Debug().Int("waiters", run.waiters).Msg("pipeline refresh coalesced")
			}
			return err
		}
		run.rerun = false
		b.refreshMu.Unlock()
	}
}

func (b *Board) fetch(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
	defer cancel()

	b.mu.Lock()
	b.gen++
	started := b.gen
	b.mu.Unlock()

	patients, err := b.loader.ListFresh(ctx, models.PatientFilter{})
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, move := range b.settled {
		if started > move.gen {
			delete(b.settled, id)
		}
	}

	b.patients = patients
	b.index = make(map[string]int, len(patients))
	for i := range b.patients {
		p := &b.patients[i]
		b.index[p.ID] = i
		// moves still in flight, or written after this fetch began, win over
		// the fetched row
		if move, ok := b.pending[p.ID]; ok {
			p.PipelineStage = move.to
		} else if move, ok := b.settled[p.ID]; ok {
			p.PipelineStage = move.to
		}
	}
	b.loaded = true
	return nil
}

// Columns returns the five stages in pipeline order, each with its patients
// newest first.
func (b *Board) Columns() []Column {
	b.mu.RLock()
	defer b.mu.RUnlock()

	byStage := make(map[models.PipelineStage][]models.Patient, len(models.PipelineStages))
	for _, p := range b.patients {
		byStage[p.PipelineStage] = append(byStage[p.PipelineStage], p)
	}

	columns := make([]Column, 0, len(models.PipelineStages))
	for _, stage := range models.PipelineStages {
		patients := byStage[stage]
		if patients == nil {
			patients = []models.Patient{}
		}
		sort.SliceStable(patients, func(i, j int) bool {
			return patients[i].CreatedAt.After(patients[j].CreatedAt)
		})
		columns = append(columns, Column{Stage: stage, Patients: patients})
	}
	return columns
}

// Stage returns the board's current stage for a patient.
func (b *Board) Stage(patientID string) (models.PipelineStage, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i, ok := b.index[patientID]
	if !ok {
		return "", false
	}
	return b.patients[i].PipelineStage, true
}

// ResolveTarget maps a drop target to a stage.
func (b *Board) ResolveTarget(overID string) (models.PipelineStage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.resolveLocked(overID)
}

func (b *Board) resolveLocked(overID string) (models.PipelineStage, error) {
	if stage := models.PipelineStage(overID); stage.Valid() {
		return stage, nil
	}
	if i, ok := b.index[overID]; ok {
		return b.patients[i].PipelineStage, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, overID)
}

// Move applies a drop. A drop on the patient's own column changes nothing and
// writes nothing. Otherwise the board changes first, the stage is written,
// and the board goes back to the previous stage if the write fails.
func (b *Board) Move(ctx context.Context, drag DragEnd) (MoveResult, error) {
	b.mu.Lock()
	i, ok := b.index[drag.ActiveID]
	if !ok {
		b.mu.Unlock()
		return MoveResult{}, fmt.Errorf("%w: %s", ErrPatientNotFound, drag.ActiveID)
	}
	to, err := b.resolveLocked(drag.OverID)
	if err != nil {
		b.mu.Unlock()
		return MoveResult{}, err
	}

	from := b.patients[i].PipelineStage
	result := MoveResult{PatientID: drag.ActiveID, From: from, To: to}
	if from == to {
		b.mu.Unlock()
		return result, nil
	}

	b.seq++
	token := b.seq
	b.patients[i].PipelineStage = to
	b.pending[drag.ActiveID] = pendingMove{from: from, to: to, token: token}
	b.mu.Unlock()

	err = b.updater.UpdateStage(ctx, drag.ActiveID, to)

	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.pending[drag.ActiveID]
	superseded := !ok || current.token != token
	if !superseded {
		delete(b.pending, drag.ActiveID)
	}

	if err != nil {
		if !superseded {
			if i, ok := b.index[drag.ActiveID]; ok {
				b.patients[i].PipelineStage = from
			}
		}
		log.Error().Err(err).
			Str("patient_id", drag.ActiveID).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("pipeline move failed, reverted")
		return MoveResult{PatientID: drag.ActiveID, From: from, To: from}, fmt.Errorf("failed to move patient: %w", err)
	}

	if !superseded {
		b.settled[drag.ActiveID] = settledMove{to: to, gen: b.gen}
	}
	result.Changed = true
	return result, nil
}

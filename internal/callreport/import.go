package callreport

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/callreport-cli/internal/model"
	"github.com/sells-group/callreport-cli/internal/store"
)

// Roster column headers. The quarterly bulk package names these
// verbatim; they are matched exactly.
const (
	rosterName       = "Financial Institution Name"
	rosterFDICCert   = "FDIC Certificate Number"
	rosterOCCCharter = "OCC Charter Number"
	rosterABARouting = "Primary ABA Routing Number"
	rosterAddress    = "Financial Institution Address"
	rosterCity       = "Financial Institution City"
	rosterState      = "Financial Institution State"
	rosterZIP        = "Financial Institution Zip Code"
	rosterFilingType = "Financial Institution Filing Type"

	// RC-M memoranda text field carrying the institution's website URL.
	websiteCode = "TEXT4087"
)

// OrchestratorOptions configures a batch import.
type OrchestratorOptions struct {
	Workers    int
	Strict     bool
	Encoding   string
	Dictionary Dictionary
}

// Orchestrator runs quarterly batch imports: parse the schedule files,
// transform per entity, validate, derive ratios and persist.
type Orchestrator struct {
	store store.Store
	reg   *Registry
	dict  Dictionary

	workers  int
	strict   bool
	encoding string
}

// NewOrchestrator builds an import orchestrator over the given store.
func NewOrchestrator(st store.Store, opts OrchestratorOptions) (*Orchestrator, error) {
	reg, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}
	return &Orchestrator{
		store:    st,
		reg:      reg,
		dict:     opts.Dictionary,
		workers:  workers,
		strict:   opts.Strict,
		encoding: opts.Encoding,
	}, nil
}

// ImportResult summarizes one completed import run.
type ImportResult struct {
	RunID             string        `json:"run_id"`
	Period            model.Period  `json:"period"`
	EntitiesCreated   int           `json:"entities_created"`
	StatementsCreated int           `json:"statements_created"`
	StatementsSkipped int           `json:"statements_skipped"`
	ValidationErrors  int           `json:"validation_errors"`
	RowErrors         int           `json:"row_errors"`
	Errors            []ImportError `json:"errors,omitempty"`
}

// ProcessImport ingests one quarter's schedule files. Missing required
// schedules abort before any write; per-entity failures are recorded and
// skipped, never fatal. Re-running the same quarter is idempotent.
func (o *Orchestrator) ProcessImport(ctx context.Context, files ScheduleFiles, period model.Period) (*ImportResult, error) {
	if missing := files.MissingRequired(); len(missing) > 0 {
		return nil, &MissingSchedulesError{Missing: missing}
	}

	log := zap.L().With(zap.String("period", string(period)))
	opts := ReaderOptions{Encoding: o.encoding}

	result := &ImportResult{Period: period}

	por, err := ReadSchedule(files.POR, opts)
	if err != nil {
		return nil, err
	}
	rc, err := ReadSchedule(files.RC, opts)
	if err != nil {
		return nil, err
	}
	rcci, err := ReadSchedule(files.RCCI, opts)
	if err != nil {
		return nil, err
	}
	ri, err := ReadSchedule(files.RI, opts)
	if err != nil {
		return nil, err
	}
	result.RowErrors = por.SkippedRows + rc.SkippedRows + rcci.SkippedRows + ri.SkippedRows

	var mu sync.Mutex
	addError := func(e ImportError) {
		mu.Lock()
		result.Errors = append(result.Errors, e)
		mu.Unlock()
	}

	readOptional := func(name, path string) map[int64]Record {
		if path == "" {
			return nil
		}
		sched, err := ReadSchedule(path, opts)
		if err != nil {
			log.Warn("optional schedule unreadable, continuing without it",
				zap.String("schedule", name),
				zap.Error(err),
			)
			addError(ImportError{Kind: ErrOptionalSchedule, Field: name, Msg: err.Error()})
			return nil
		}
		result.RowErrors += sched.SkippedRows
		return indexByID(sched.Records)
	}

	rcByID := indexByID(rc.Records)
	rcciByID := indexByID(rcci.Records)
	riByID := indexByID(ri.Records)
	rcmByID := readOptional("RCM", files.RCM)
	rcnByID := readOptional("RCN", files.RCN)
	ribByID := readOptional("RIB", files.RIB)

	roster := rosterRecords(por)
	insts := make([]model.Institution, 0, len(roster))
	for _, rec := range roster {
		id, ok := rec.ID()
		if !ok {
			result.RowErrors++
			addError(ImportError{Kind: ErrMalformedRow, Msg: "roster row without entity id"})
			continue
		}
		inst := model.Institution{
			ID:         id,
			Name:       rec.Str(rosterName),
			FDICCert:   rec.Str(rosterFDICCert),
			OCCCharter: rec.Str(rosterOCCCharter),
			ABARouting: rec.Str(rosterABARouting),
			Address:    rec.Str(rosterAddress),
			City:       rec.Str(rosterCity),
			State:      rec.Str(rosterState),
			ZIP:        rec.Str(rosterZIP),
			FilingType: rec.Str(rosterFilingType),
		}
		if m, ok := rcmByID[id]; ok {
			inst.Website = m.Str(websiteCode)
		}
		insts = append(insts, inst)
	}

	runID, err := o.store.StartImportRun(ctx, period)
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	entitiesCreated, err := o.store.UpsertInstitutions(ctx, insts)
	if err != nil {
		o.failRun(ctx, runID, err)
		return nil, err
	}
	result.EntitiesCreated = entitiesCreated

	var created, skipped, invalid atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, inst := range insts {
		g.Go(func() error {
			id := inst.ID

			rcRec, hasRC := rcByID[id]
			riRec, hasRI := riByID[id]
			if !hasRC || !hasRI {
				skipped.Add(1)
				addError(ImportError{
					Kind:     ErrMissingStatement,
					EntityID: id,
					Msg:      "no balance sheet or income statement filed",
				})
				return nil
			}

			merged := rcRec
			if detail, ok := rcciByID[id]; ok {
				merged = MergeRecords(rcRec, detail)
			}

			bs, missingBS := TransformBalanceSheet(o.reg, merged)
			is, missingIS := TransformIncomeStatement(o.reg, riRec)
			if o.strict {
				if all := append(missingBS, missingIS...); len(all) > 0 {
					addError(ImportError{
						Kind:     ErrTransform,
						EntityID: id,
						Field:    strings.Join(all, ","),
						Msg:      "absent under every candidate code: " + o.describeMissing(all),
					})
				}
			}

			validation := Validate(bs, is)
			if !validation.IsValid {
				invalid.Add(1)
				addError(ImportError{
					Kind:     ErrValidation,
					EntityID: id,
					Msg:      strings.Join(validation.Errors, "; "),
				})
			}

			ratios, err := CalculateRatios(bs, is, period)
			if err != nil {
				return eris.Wrapf(err, "callreport: ratios for entity %d", id)
			}

			st := &model.Statement{
				EntityID:        id,
				Period:          period,
				BalanceSheet:    bs,
				IncomeStatement: is,
				Ratios:          ratios,
				Validation:      validation,
			}
			if rec, ok := rcnByID[id]; ok {
				cq := TransformCreditQuality(o.reg, rec)
				st.CreditQuality = &cq
			}
			if rec, ok := ribByID[id]; ok {
				co := TransformChargeOffs(o.reg, rec)
				st.ChargeOffs = &co
			}

			wasCreated, err := o.store.UpsertStatement(gctx, st)
			if err != nil {
				return err
			}
			if wasCreated {
				created.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.failRun(ctx, runID, err)
		return nil, err
	}

	result.StatementsCreated = int(created.Load())
	result.StatementsSkipped = int(skipped.Load())
	result.ValidationErrors = int(invalid.Load())

	counts := store.ImportCounts{
		EntitiesCreated:   result.EntitiesCreated,
		StatementsCreated: result.StatementsCreated,
		StatementsSkipped: result.StatementsSkipped,
		ValidationErrors:  result.ValidationErrors,
		RowErrors:         result.RowErrors,
	}
	if err := o.store.CompleteImportRun(ctx, runID, counts); err != nil {
		return nil, err
	}

	log.Info("import complete",
		zap.String("run_id", runID),
		zap.Int("entities_created", result.EntitiesCreated),
		zap.Int("statements_created", result.StatementsCreated),
		zap.Int("statements_skipped", result.StatementsSkipped),
		zap.Int("validation_errors", result.ValidationErrors),
		zap.Int("row_errors", result.RowErrors),
	)

	return result, nil
}

// describeMissing renders missing canonical fields, annotated with the
// primary candidate code's published description when a dictionary is
// loaded.
func (o *Orchestrator) describeMissing(names []string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name
		if o.dict == nil {
			continue
		}
		if cands := o.reg.Candidates(name); len(cands) > 0 {
			if desc := o.dict.Describe(cands[0]); desc != cands[0] {
				parts[i] = name + " (" + desc + ")"
			}
		}
	}
	return strings.Join(parts, ", ")
}

func (o *Orchestrator) failRun(ctx context.Context, runID string, cause error) {
	if err := o.store.FailImportRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Error("failed to record import run failure",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}

// indexByID maps records by entity id, dropping rows without one.
func indexByID(recs []Record) map[int64]Record {
	out := make(map[int64]Record, len(recs))
	for _, rec := range recs {
		if id, ok := rec.ID(); ok {
			out[id] = rec
		}
	}
	return out
}

// rosterRecords returns the roster's records. The roster carries a single
// header row, unlike the schedules' code + description pair, so the row
// ReadSchedule consumed as descriptions is recovered when it is data.
func rosterRecords(sched *Schedule) []Record {
	recs := sched.Records
	idIdx := -1
	for i, code := range sched.Codes {
		if code == idField {
			idIdx = i
			break
		}
	}
	if idIdx < 0 || idIdx >= len(sched.Descriptions) {
		return recs
	}
	if _, err := strconv.ParseFloat(sched.Descriptions[idIdx], 64); err != nil {
		return recs
	}

	rec := make(Record, len(sched.Descriptions))
	for i, cell := range sched.Descriptions {
		if i >= len(sched.Codes) || cell == "" {
			continue
		}
		if n, err := strconv.ParseFloat(cell, 64); err == nil {
			rec[sched.Codes[i]] = Value{Raw: cell, Num: n, Numeric: true}
		} else {
			rec[sched.Codes[i]] = Value{Raw: cell}
		}
	}
	return append([]Record{rec}, recs...)
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdiddy/survey-engine/internal/discover"
	"github.com/pdiddy/survey-engine/pkg/types"
)

type fakePlanner struct {
	plan *types.Plan
	err  error
}

func (f *fakePlanner) Generate(ctx context.Context, query string) (*types.Plan, error) {
	return f.plan, f.err
}

type fakeStore struct {
	saved []*types.Plan
	err   error
}

func (f *fakeStore) SavePlan(ctx context.Context, p *types.Plan) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p)
	return nil
}

type fakeResearcher struct {
	errs   map[string]error
	calls  []string
	onCall func(subtopic string)
}

func (f *fakeResearcher) ResearchSubtopic(ctx context.Context, plan *types.Plan, subtopic string) (discover.Result, error) {
	f.calls = append(f.calls, subtopic)
	if f.onCall != nil {
		f.onCall(subtopic)
	}
	if err := f.errs[subtopic]; err != nil {
		return discover.Result{}, err
	}
	return discover.Result{Subtopic: subtopic, Evaluated: 2, Relevant: 1}, nil
}

type fakeReporter struct {
	text  string
	err   error
	calls int
}

func (f *fakeReporter) Build(ctx context.Context, plan *types.Plan) (string, error) {
	f.calls++
	return f.text, f.err
}

func testPlan() *types.Plan {
	return &types.Plan{
		ID:    "plan-1",
		Query: "sparse attention",
		Title: "Sparse Attention Survey",
		Sections: []types.Section{
			{Name: "Methods", Subtopics: []string{"fixed patterns", "learned patterns"}},
			{Name: "Hardware", Subtopics: []string{"kernel support"}},
		},
	}
}

func TestRunHappyPath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "survey.md")
	store := &fakeStore{}
	researcher := &fakeResearcher{}
	reporter := &fakeReporter{text: "# Sparse Attention Survey\n"}
	p := &Pipeline{
		Planner:    &fakePlanner{plan: testPlan()},
		Store:      store,
		Researcher: researcher,
		Reporter:   reporter,
		Output:     out,
	}

	sum, err := p.Run(context.Background(), "sparse attention")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(store.saved) != 1 || store.saved[0].ID != "plan-1" {
		t.Errorf("plan not persisted: %+v", store.saved)
	}

	wantOrder := []string{"fixed patterns", "learned patterns", "kernel support"}
	if len(researcher.calls) != len(wantOrder) {
		t.Fatalf("researched %v", researcher.calls)
	}
	for i, sub := range wantOrder {
		if researcher.calls[i] != sub {
			t.Errorf("call[%d] = %q, want %q", i, researcher.calls[i], sub)
		}
	}

	if sum.Succeeded != 3 || sum.Failed != 0 || sum.Total() != 3 || sum.HasFailures() {
		t.Errorf("summary = %+v", sum)
	}
	if sum.PlanID != "plan-1" || sum.ReportPath != out {
		t.Errorf("summary identity = %+v", sum)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report file: %v", err)
	}
	if string(data) != "# Sparse Attention Survey\n" {
		t.Errorf("report content = %q", data)
	}
}

func TestRunSubtopicFailureContinues(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.md")
	researcher := &fakeResearcher{errs: map[string]error{"learned patterns": errors.New("disk full")}}
	reporter := &fakeReporter{text: "# R\n"}
	p := &Pipeline{
		Planner:    &fakePlanner{plan: testPlan()},
		Store:      &fakeStore{},
		Researcher: researcher,
		Reporter:   reporter,
		Output:     out,
	}

	sum, err := p.Run(context.Background(), "sparse attention")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Succeeded != 2 || sum.Failed != 1 || !sum.HasFailures() {
		t.Errorf("summary = %+v", sum)
	}
	if len(researcher.calls) != 3 {
		t.Errorf("remaining subtopics should still be researched: %v", researcher.calls)
	}
	if reporter.calls != 1 {
		t.Error("report should still be assembled")
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("report file should exist: %v", err)
	}
	if len(sum.Subtopics) != 2 {
		t.Errorf("successful results = %+v", sum.Subtopics)
	}
}

func TestRunCancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	researcher := &fakeResearcher{
		errs: map[string]error{"learned patterns": context.Canceled},
		onCall: func(sub string) {
			if sub == "learned patterns" {
				cancel()
			}
		},
	}
	reporter := &fakeReporter{text: "# R\n"}
	p := &Pipeline{
		Planner:    &fakePlanner{plan: testPlan()},
		Store:      &fakeStore{},
		Researcher: researcher,
		Reporter:   reporter,
		Output:     filepath.Join(t.TempDir(), "report.md"),
	}

	_, err := p.Run(ctx, "sparse attention")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(researcher.calls) != 2 {
		t.Errorf("research should stop at cancellation: %v", researcher.calls)
	}
	if reporter.calls != 0 {
		t.Error("no report after cancellation")
	}
}

func TestRunPlannerErrorAborts(t *testing.T) {
	p := &Pipeline{
		Planner:    &fakePlanner{err: errors.New("api unreachable")},
		Store:      &fakeStore{},
		Researcher: &fakeResearcher{},
		Reporter:   &fakeReporter{},
	}
	if _, err := p.Run(context.Background(), "q"); err == nil {
		t.Fatal("planner failure must abort")
	}
}

func TestRunSavePlanErrorAborts(t *testing.T) {
	researcher := &fakeResearcher{}
	p := &Pipeline{
		Planner:    &fakePlanner{plan: testPlan()},
		Store:      &fakeStore{err: errors.New("db locked")},
		Researcher: researcher,
		Reporter:   &fakeReporter{},
	}
	if _, err := p.Run(context.Background(), "q"); err == nil {
		t.Fatal("plan persistence failure must abort")
	}
	if len(researcher.calls) != 0 {
		t.Error("no research on an unsaved plan")
	}
}

func TestRunReportErrorPropagates(t *testing.T) {
	p := &Pipeline{
		Planner:    &fakePlanner{plan: testPlan()},
		Store:      &fakeStore{},
		Researcher: &fakeResearcher{},
		Reporter:   &fakeReporter{err: errors.New("db locked")},
		Output:     filepath.Join(t.TempDir(), "report.md"),
	}
	if _, err := p.Run(context.Background(), "q"); err == nil {
		t.Fatal("report failure must propagate")
	}
}

func TestRunPlanSkipsGeneration(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.md")
	reporter := &fakeReporter{text: "# R\n"}
	p := &Pipeline{
		Researcher: &fakeResearcher{},
		Reporter:   reporter,
		Output:     out,
	}

	sum, err := p.RunPlan(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}
	if sum.Succeeded != 3 || reporter.calls != 1 {
		t.Errorf("summary = %+v, reporter calls = %d", sum, reporter.calls)
	}
}

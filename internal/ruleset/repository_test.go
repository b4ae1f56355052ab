package ruleset

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/candidate-screener/internal/record"
	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/storage"
	"github.com/spigell/candidate-screener/internal/unified"
)

type brokenStore struct{}

func (brokenStore) Save(context.Context, string, []byte) error { return errors.New("disk full") }
func (brokenStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (brokenStore) Remove(context.Context, string) error { return errors.New("read-only") }
func (brokenStore) Close() error                         { return nil }

func TestRepositoryDefaultsOnFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewRepository(brokenStore{}, zap.New(core))
	ctx := context.Background()

	if tree := repo.Logical(ctx); tree.ID != rules.RootID || len(tree.Children) != 0 {
		t.Fatalf("expected empty root, got %+v", tree)
	}
	if root := repo.Unified(ctx); !root.IsGroup() || len(root.Rules) != 0 {
		t.Fatalf("expected empty unified root, got %+v", root)
	}
	if cfg := repo.Simple(ctx); len(cfg.Rules) != len(simple.Categories) {
		t.Fatalf("expected default simple rules, got %+v", cfg)
	}
	if contacted := repo.Contacted(ctx); len(contacted.Items) != 0 {
		t.Fatalf("expected empty history, got %+v", contacted)
	}

	if logs.Len() != 4 {
		t.Fatalf("expected one warning per load, got %d", logs.Len())
	}

	if err := repo.SaveSimple(ctx, simple.Default()); err == nil {
		t.Fatalf("expected save error to be returned")
	}
}

func TestRepositoryMalformedData(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for _, key := range []string{LogicalKey, UnifiedKey, SimpleKey, ContactedKey} {
		if err := store.Save(ctx, key, []byte("{not json")); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}

	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewRepository(store, zap.New(core))

	if tree := repo.Logical(ctx); len(tree.Children) != 0 {
		t.Fatalf("expected empty root")
	}
	if cfg := repo.Simple(ctx); cfg.Rules[0].ID != "simple-Position" {
		t.Fatalf("expected defaults, got %+v", cfg.Rules[0])
	}
	repo.Unified(ctx)
	repo.Contacted(ctx)

	if logs.Len() != 4 {
		t.Fatalf("expected 4 warnings, got %d", logs.Len())
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := NewRepository(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	tree := rules.AddCondition(rules.NewRoot(), rules.NewCondition("position", "contains", "engineer"))
	if err := repo.SaveLogical(ctx, tree); err != nil {
		t.Fatalf("save logical: %v", err)
	}
	loaded := repo.Logical(ctx)
	if len(loaded.Children) != 1 || loaded.Children[0].Value != "engineer" {
		t.Fatalf("unexpected logical tree: %+v", loaded)
	}

	cfg := simple.Default()
	cfg.AutoMode = true
	cfg.Rules[2].Enabled = true
	cfg.Rules[2].Keywords = []string{"Go", " go ", "Kubernetes"}
	if err := repo.SaveSimple(ctx, cfg); err != nil {
		t.Fatalf("save simple: %v", err)
	}
	got := repo.Simple(ctx)
	kw := got.Find(simple.CoreKeyword)
	if !got.AutoMode || kw == nil || len(kw.Keywords) != 2 {
		t.Fatalf("unexpected simple config: %+v", got)
	}

	root := &unified.Rule{Kind: unified.KindGroup, Operator: "AND", Rules: []*unified.Rule{
		{ID: "r1", Field: "company", Operator: "contains", Value: unified.Single("Acme")},
	}}
	if err := repo.SaveUnified(ctx, root); err != nil {
		t.Fatalf("save unified: %v", err)
	}
	u := repo.Unified(ctx)
	if len(u.Rules) != 1 || u.Rules[0].Category != unified.Company {
		t.Fatalf("unexpected unified rules: %+v", u.Rules)
	}

	contacted := &record.ContactedRecords{Items: []*record.ContactedRecord{
		{ID: "c1", Name: "Ada", Action: "greet", ContactedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	if err := repo.SaveContacted(ctx, contacted); err != nil {
		t.Fatalf("save contacted: %v", err)
	}
	if ids := repo.Contacted(ctx).IDs(); len(ids) != 1 || ids[0] != "c1" {
		t.Fatalf("unexpected contacted ids: %v", ids)
	}

	if err := repo.Remove(ctx, Simple); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := repo.Simple(ctx); got.AutoMode {
		t.Fatalf("expected defaults after remove")
	}
}

func TestConvert(t *testing.T) {
	in := []byte(`{"rules":[
		{"category":"Position","keywords":["Engineer"],"mustMatch":true,"enabled":true},
		{"category":"CoreKeyword","keywords":["go","sql"],"enabled":true,"passScore":50}
	],"autoMode":false}`)

	out, err := Convert(in, Simple, Unified)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	root, err := unified.Parse(out)
	if err != nil {
		t.Fatalf("parse converted: %v", err)
	}
	if len(root.Rules) != 2 || !root.Rules[0].Hard() || root.Rules[1].Category != unified.Keyword {
		t.Fatalf("unexpected conversion: %s", out)
	}

	back, err := Convert(out, Unified, Simple)
	if err != nil {
		t.Fatalf("convert back: %v", err)
	}
	cfg, err := simple.Parse(back)
	if err != nil {
		t.Fatalf("parse back: %v", err)
	}
	kw := cfg.Find(simple.CoreKeyword)
	if kw == nil || kw.PassScore == nil || *kw.PassScore != 50 {
		t.Fatalf("passScore lost: %s", back)
	}

	if _, err := Convert(in, Simple, Logical); err != nil {
		t.Fatalf("convert to logical: %v", err)
	}
	if _, err := Convert([]byte("[]"), Unified, Simple); err == nil {
		t.Fatalf("expected an error for a non-group root")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" Unified "); err != nil || f != Unified {
		t.Fatalf("got %q, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNormalizeKeepsAutoMode(t *testing.T) {
	in := []byte(`{"rules":[{"category":"CoreKeyword","keywords":["Go","go"," "],"enabled":true}],"autoMode":true}`)
	out, err := Convert(in, Simple, Simple)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg, err := simple.Parse(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.AutoMode || len(cfg.Rules) != 1 || len(cfg.Rules[0].Keywords) != 1 || cfg.Rules[0].ID == "" {
		t.Fatalf("unexpected normalized config: %s", out)
	}

	again, err := Normalize(Simple, out)
	if err != nil || string(again) != string(out) {
		t.Fatalf("normalize is not idempotent:\n%s\n%s", out, again)
	}
}

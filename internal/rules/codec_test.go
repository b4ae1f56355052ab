package rules

import (
	"errors"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	tree := sampleTree()

	data, err := Serialize(tree)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	decoded, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(Leaves(decoded)) != 3 {
		t.Fatalf("expected three leaves, got %d", len(Leaves(decoded)))
	}
	if FindByID(decoded, "g-or").Operator != Or {
		t.Fatalf("expected nested OR group")
	}
}

func TestDeserializeFallsBackToEmptyRoot(t *testing.T) {
	cases := map[string]string{
		"malformed":    `{"id": "root", "children": [`,
		"not a group":  `{"id": "x", "type": "condition", "field": "a", "operator": "equals"}`,
		"duplicate id": `{"id": "root", "type": "group", "operator": "AND", "enabled": true, "children": [{"id": "a", "type": "condition", "field": "f", "operator": "equals"}, {"id": "a", "type": "condition", "field": "g", "operator": "equals"}]}`,
		"empty":        ``,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			tree := Deserialize([]byte(input))
			if tree == nil || tree.ID != RootID || !tree.IsGroup() || len(tree.Children) != 0 {
				t.Fatalf("expected empty root, got %+v", tree)
			}
		})
	}
}

func TestParseMarksKinds(t *testing.T) {
	tree, err := Parse([]byte(`{"id": "root", "operator": "or", "enabled": true, "children": [{"id": "a", "field": "skills", "operator": "contains", "value": "go", "enabled": true}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree.Kind != KindGroup || tree.Operator != Or {
		t.Fatalf("expected root to be marked as OR group, got %+v", tree)
	}
	if tree.Children[0].Kind != KindCondition {
		t.Fatalf("expected child to be marked as condition")
	}
}

func TestDecodeAllowsMissingIDs(t *testing.T) {
	data := []byte(`{"operator": "AND", "enabled": true, "children": [{"field": "position", "operator": "contains", "value": "go", "enabled": true}, {"id": "x", "field": "city", "operator": "equals", "value": "berlin", "enabled": true}, {"id": "x", "field": "age", "operator": "gt", "value": "30", "enabled": true}]}`)

	if _, err := Parse(data); !errors.Is(err, ErrMissingID) {
		t.Fatalf("parse must still require ids, got %v", err)
	}

	tree, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tree.Kind != KindGroup || len(tree.Children) != 3 || tree.Children[0].Kind != KindCondition {
		t.Fatalf("unexpected decoded tree: %+v", tree)
	}
	if !errors.Is(Validate(tree), ErrMissingID) {
		t.Fatalf("decoded tree must fail validation until ids are assigned")
	}

	if _, err := Decode([]byte(`{"id": "root", "type": "condition", "field": "a", "operator": "equals", "children": [{"id": "b"}]}`)); !errors.Is(err, ErrBadCondition) {
		t.Fatalf("expected bad condition error, got %v", err)
	}
	if _, err := Decode([]byte(`{"children": [`)); err == nil {
		t.Fatalf("expected malformed input to fail")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(sampleTree()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := sampleTree()
	dup.Children = append(dup.Children, &Node{ID: "c-pos", Kind: KindCondition})
	if err := Validate(dup); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}

	cyclic := NewRoot()
	cyclic.Children = []*Node{cyclic}
	if err := Validate(cyclic); err == nil {
		t.Fatalf("expected cycle to be rejected")
	}

	if err := Validate(&Node{ID: "c", Kind: KindCondition}); !errors.Is(err, ErrNotGroup) {
		t.Fatalf("expected non-group root to be rejected, got %v", err)
	}
}

package engine

import (
	"fmt"

	"github.com/roach88/rmlstar/internal/ir"
)

// Shape is the evaluation strategy of a rule, computed once by Classify.
type Shape int

const (
	shapeUnknown Shape = iota

	// ShapeConstant: every term map is constant; one synthetic row.
	ShapeConstant

	// ShapeQuoted: subject and/or object is a quoted triples map.
	ShapeQuoted

	// ShapeParentJoin: object is a referencing (parent) triples map.
	ShapeParentJoin

	// ShapeNamedObjectGather: object gather headed by the object term.
	ShapeNamedObjectGather

	// ShapeUnnamedObjectGather: object gather headed by a fresh blank node.
	ShapeUnnamedObjectGather

	// ShapeUnnamedSubjectGather: the subject map itself is a gather.
	ShapeUnnamedSubjectGather

	// ShapeNamedSubjectGather: subject term plus a separate gather directive.
	ShapeNamedSubjectGather

	// ShapePlain: ordinary term generation for every position.
	ShapePlain
)

var shapeNames = map[Shape]string{
	ShapeConstant:             "constant",
	ShapeQuoted:               "quoted",
	ShapeParentJoin:           "parent-join",
	ShapeNamedObjectGather:    "named-object-gather",
	ShapeUnnamedObjectGather:  "unnamed-object-gather",
	ShapeUnnamedSubjectGather: "unnamed-subject-gather",
	ShapeNamedSubjectGather:   "named-subject-gather",
	ShapePlain:                "plain",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsGather reports whether the shape builds lists or containers.
func (s Shape) IsGather() bool {
	switch s {
	case ShapeNamedObjectGather, ShapeUnnamedObjectGather,
		ShapeUnnamedSubjectGather, ShapeNamedSubjectGather:
		return true
	}
	return false
}

// termKinds that produce a term by plain expansion.
func expandable(k ir.TermKind) bool {
	switch k {
	case ir.KindConstant, ir.KindTemplate, ir.KindReference, ir.KindFunction:
		return true
	}
	return false
}

// Classify computes the shape of a rule. First match wins, in priority
// order. It is pure: the same rule always yields the same shape.
func Classify(r ir.Rule) (Shape, error) {
	if r.Subject.IsAbsent() {
		return shapeUnknown, ir.NewShapeError(r.ID, "rule has no subject map")
	}
	if r.Subject.Kind == ir.KindGather && r.SubjectGather == nil {
		return shapeUnknown, ir.NewShapeError(r.ID, "subject map is a gather without a gather directive")
	}
	if r.Object.Kind == ir.KindGather && r.ObjectGather == nil {
		return shapeUnknown, ir.NewShapeError(r.ID, "object map is a gather without a gather directive")
	}
	if !r.Predicate.IsAbsent() && !expandable(r.Predicate.Kind) {
		return shapeUnknown, ir.NewShapeError(r.ID, fmt.Sprintf("predicate map kind %q", r.Predicate.Kind))
	}

	switch {
	case allConstant(r):
		return ShapeConstant, nil

	case r.Subject.Kind == ir.KindQuoted || r.Object.Kind == ir.KindQuoted:
		if r.SubjectGather != nil || r.ObjectGather != nil {
			return shapeUnknown, ir.NewShapeError(r.ID, "quoted triples maps cannot be combined with gathers")
		}
		if r.Predicate.IsAbsent() {
			return shapeUnknown, ir.NewShapeError(r.ID, "quoted rule has no predicate map")
		}
		return ShapeQuoted, nil

	case r.Object.Kind == ir.KindParent:
		if r.SubjectGather != nil || r.ObjectGather != nil {
			return shapeUnknown, ir.NewShapeError(r.ID, "parent triples maps cannot be combined with gathers")
		}
		if !expandable(r.Subject.Kind) || r.Predicate.IsAbsent() {
			return shapeUnknown, ir.NewShapeError(r.ID, "parent-join rule needs an expandable subject and a predicate")
		}
		return ShapeParentJoin, nil

	case r.ObjectGather != nil && expandable(r.Object.Kind):
		if err := gatherPositionsOK(r, false); err != nil {
			return shapeUnknown, err
		}
		return ShapeNamedObjectGather, nil

	case r.ObjectGather != nil && (r.Object.IsAbsent() || r.Object.Kind == ir.KindGather):
		if err := gatherPositionsOK(r, false); err != nil {
			return shapeUnknown, err
		}
		return ShapeUnnamedObjectGather, nil

	case r.Subject.Kind == ir.KindGather:
		if err := gatherPositionsOK(r, true); err != nil {
			return shapeUnknown, err
		}
		return ShapeUnnamedSubjectGather, nil

	case r.SubjectGather != nil && expandable(r.Subject.Kind):
		if err := gatherPositionsOK(r, true); err != nil {
			return shapeUnknown, err
		}
		return ShapeNamedSubjectGather, nil

	case expandable(r.Subject.Kind) && !r.Predicate.IsAbsent() && expandable(r.Object.Kind):
		return ShapePlain, nil
	}

	return shapeUnknown, ir.NewShapeError(r.ID, fmt.Sprintf(
		"no rule shape matches (subject=%q, predicate=%q, object=%q)",
		r.Subject.Kind, r.Predicate.Kind, r.Object.Kind))
}

func allConstant(r ir.Rule) bool {
	if r.SubjectGather != nil || r.ObjectGather != nil {
		return false
	}
	if r.Subject.Kind != ir.KindConstant || r.Predicate.Kind != ir.KindConstant || r.Object.Kind != ir.KindConstant {
		return false
	}
	if !r.Graph.IsAbsent() && r.Graph.Kind != ir.KindConstant {
		return false
	}
	if r.LangDatatype != nil && r.LangDatatype.Kind != ir.KindConstant {
		return false
	}
	return true
}

// gatherPositionsOK checks the non-gathered positions of a gather rule.
// On the subject side the predicate-object pair is optional (structure only).
func gatherPositionsOK(r ir.Rule, onSubject bool) error {
	if onSubject {
		if r.Predicate.IsAbsent() != r.Object.IsAbsent() {
			return ir.NewShapeError(r.ID, "subject gather needs both or neither of predicate and object maps")
		}
		if !r.Object.IsAbsent() && !expandable(r.Object.Kind) {
			return ir.NewShapeError(r.ID, fmt.Sprintf("subject gather object map kind %q", r.Object.Kind))
		}
		return nil
	}
	if !expandable(r.Subject.Kind) {
		return ir.NewShapeError(r.ID, fmt.Sprintf("object gather subject map kind %q", r.Subject.Kind))
	}
	if r.Predicate.IsAbsent() {
		return ir.NewShapeError(r.ID, "object gather has no predicate map")
	}
	return nil
}

// Package symbolic implements the parser and printer for the compact
// symbolic statement language (spec.md §4.2): inheritance (<A --> B>),
// similarity (<A <-> B>), implication (<A ==> B>), instance ({x} --> A),
// property (A --> [p]), with an optional truth-value suffix in {f c} or
// %f;c% form and an optional trailing punctuation marker (. ! ? @).
//
// The parser is a small hand-written scanner in the style of the teacher's
// validation.SymbolicReasoner constraint-expression handling: strict,
// single-pass, no parser-generator dependency.
package symbolic

import (
	"fmt"
	"strconv"
	"strings"

	"codegraph/internal/types"
)

// MalformedStatementError reports a syntactic error in the input string.
type MalformedStatementError struct {
	Input  string
	Reason string
}

func (e *MalformedStatementError) Error() string {
	return fmt.Sprintf("malformed statement %q: %s", e.Input, e.Reason)
}

const (
	opInheritance = "-->"
	opSimilarity  = "<->"
	opImplication = "==>"
)

func isAtomRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == '.' || r == ':' || r == '/':
		return true
	}
	return false
}

func isAtom(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isAtomRune(r) {
			return false
		}
	}
	return true
}

// Parse parses a single symbolic statement.
func Parse(input string) (*types.Statement, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, &MalformedStatementError{Input: input, Reason: "empty input"}
	}

	core, rest := s, ""
	var punct types.Punctuation = types.PunctuationJudgement
	var tv *types.Truth

	// Peel off an optional trailing punctuation marker first, since it is
	// the outermost token when present.
	if n := len(s); n > 0 {
		switch s[n-1] {
		case '.', '!', '?', '@':
			switch s[n-1] {
			case '.':
				punct = types.PunctuationJudgement
			case '!':
				punct = types.PunctuationGoal
			case '?':
				punct = types.PunctuationQuestion
			case '@':
				punct = types.PunctuationQuest
			}
			core = strings.TrimRight(s[:n-1], " \t")
		}
	}

	// Peel off an optional truth-value suffix.
	core, tv, rest = splitTruthSuffix(core)
	if rest != "" {
		return nil, &MalformedStatementError{Input: input, Reason: "unexpected trailing content after truth value"}
	}
	if tv != nil {
		if err := validateTruth(*tv); err != nil {
			return nil, err
		}
	}

	stmt, err := parseCore(strings.TrimSpace(core))
	if err != nil {
		return nil, &MalformedStatementError{Input: input, Reason: err.Error()}
	}
	stmt.Truth = tv
	stmt.Punctuation = punct

	// A bare-core question with no relation becomes a question shape; a
	// structural statement keeps its structural shape regardless of
	// punctuation (inheritance/similarity/implication/instance/property
	// statements can themselves be posed as goals/questions).
	if stmt.Shape == "" {
		switch punct {
		case types.PunctuationGoal:
			stmt.Shape = types.ShapeGoal
		case types.PunctuationQuestion:
			stmt.Shape = types.ShapeQuestion
		default:
			stmt.Shape = types.ShapeInheritance
		}
	}
	return stmt, nil
}

// splitTruthSuffix extracts a trailing "{f c}" or "%f;c%" truth suffix from
// core, returning the remaining core text, the parsed truth (or nil), and
// any unconsumed trailing text (which is an error at the call site).
func splitTruthSuffix(core string) (string, *types.Truth, string) {
	trimmed := strings.TrimRight(core, " \t")

	if strings.HasSuffix(trimmed, "%") {
		// %f;c% form.
		idx := strings.LastIndex(trimmed[:len(trimmed)-1], "%")
		if idx < 0 {
			return core, nil, ""
		}
		body := trimmed[idx+1 : len(trimmed)-1]
		parts := strings.SplitN(body, ";", 2)
		if len(parts) != 2 {
			return core, nil, ""
		}
		f, ferr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		c, cerr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if ferr != nil || cerr != nil {
			return core, nil, ""
		}
		return strings.TrimSpace(trimmed[:idx]), &types.Truth{Frequency: f, Confidence: c}, ""
	}

	if strings.HasSuffix(trimmed, "}") {
		idx := strings.LastIndex(trimmed, "{")
		if idx < 0 {
			return core, nil, ""
		}
		body := trimmed[idx+1 : len(trimmed)-1]
		fields := strings.Fields(body)
		if len(fields) != 2 {
			// Could legitimately be an instance statement like "{x} --> A";
			// only treat as a truth suffix if both fields parse as numbers.
			return core, nil, ""
		}
		f, ferr := strconv.ParseFloat(fields[0], 64)
		c, cerr := strconv.ParseFloat(fields[1], 64)
		if ferr != nil || cerr != nil {
			return core, nil, ""
		}
		return strings.TrimSpace(trimmed[:idx]), &types.Truth{Frequency: f, Confidence: c}, ""
	}

	return core, nil, ""
}

func validateTruth(t types.Truth) error {
	if t.Frequency < 0 || t.Frequency > 1 {
		return &MalformedStatementError{Reason: "truth frequency out of range [0,1]"}
	}
	if t.Confidence < 0 || t.Confidence >= 1 {
		return &MalformedStatementError{Reason: "truth confidence out of range [0,1)"}
	}
	return nil
}

// parseCore parses the structural portion of a statement: inheritance,
// similarity, implication, instance, or property.
func parseCore(core string) (*types.Statement, error) {
	if core == "" {
		return nil, fmt.Errorf("empty core")
	}

	if strings.HasPrefix(core, "<") {
		if !strings.HasSuffix(core, ">") {
			return nil, fmt.Errorf("unclosed angle bracket")
		}
		body := core[1 : len(core)-1]
		for _, op := range []struct {
			token string
			shape types.Shape
		}{
			{opInheritance, types.ShapeInheritance},
			{opSimilarity, types.ShapeSimilarity},
			{opImplication, types.ShapeImplication},
		} {
			if idx := strings.Index(body, op.token); idx >= 0 {
				subj := strings.TrimSpace(body[:idx])
				pred := strings.TrimSpace(body[idx+len(op.token):])
				if !isAtom(subj) || !isAtom(pred) {
					return nil, fmt.Errorf("subject/predicate must be non-empty atoms with no whitespace")
				}
				return &types.Statement{
					Shape:     op.shape,
					Subject:   types.Term{Atom: subj},
					Predicate: types.Term{Atom: pred},
				}, nil
			}
		}
		return nil, fmt.Errorf("unknown or missing relation operator inside angle brackets")
	}

	if strings.HasPrefix(core, "{") {
		idx := strings.Index(core, "}")
		if idx < 0 {
			return nil, fmt.Errorf("unclosed brace in instance statement")
		}
		subj := core[1:idx]
		remainder := strings.TrimSpace(core[idx+1:])
		if !strings.HasPrefix(remainder, opInheritance) {
			return nil, fmt.Errorf("instance statement must use --> after {x}")
		}
		pred := strings.TrimSpace(remainder[len(opInheritance):])
		if !isAtom(subj) || !isAtom(pred) {
			return nil, fmt.Errorf("instance subject/predicate must be non-empty atoms with no whitespace")
		}
		return &types.Statement{
			Shape:     types.ShapeInstance,
			Subject:   types.Term{Atom: subj},
			Predicate: types.Term{Atom: pred},
		}, nil
	}

	if idx := strings.Index(core, opInheritance); idx >= 0 {
		subj := strings.TrimSpace(core[:idx])
		rest := strings.TrimSpace(core[idx+len(opInheritance):])
		if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") {
			pred := rest[1 : len(rest)-1]
			if !isAtom(subj) || !isAtom(pred) {
				return nil, fmt.Errorf("property subject/predicate must be non-empty atoms with no whitespace")
			}
			return &types.Statement{
				Shape:     types.ShapeProperty,
				Subject:   types.Term{Atom: subj},
				Predicate: types.Term{Atom: pred},
			}, nil
		}
		return nil, fmt.Errorf("bare --> outside angle brackets must target a [property]")
	}

	if isAtom(core) {
		// A bare atom: a goal/question with no relation; shape is resolved
		// by the caller from punctuation.
		return &types.Statement{Subject: types.Term{Atom: core}}, nil
	}

	return nil, fmt.Errorf("unrecognised statement syntax")
}

// Print renders a Statement back into symbolic syntax. Print(Parse(s)) == s
// for any s produced by Print (modulo canonical whitespace).
func Print(stmt *types.Statement) string {
	var b strings.Builder

	switch stmt.Shape {
	case types.ShapeInheritance:
		fmt.Fprintf(&b, "<%s --> %s>", termString(stmt.Subject), termString(stmt.Predicate))
	case types.ShapeSimilarity:
		fmt.Fprintf(&b, "<%s <-> %s>", termString(stmt.Subject), termString(stmt.Predicate))
	case types.ShapeImplication:
		fmt.Fprintf(&b, "<%s ==> %s>", termString(stmt.Subject), termString(stmt.Predicate))
	case types.ShapeInstance:
		fmt.Fprintf(&b, "{%s} --> %s", termString(stmt.Subject), termString(stmt.Predicate))
	case types.ShapeProperty:
		fmt.Fprintf(&b, "%s --> [%s]", termString(stmt.Subject), termString(stmt.Predicate))
	default:
		b.WriteString(termString(stmt.Subject))
	}

	if stmt.Truth != nil {
		fmt.Fprintf(&b, " {%s %s}", trimFloat(stmt.Truth.Frequency), trimFloat(stmt.Truth.Confidence))
	}

	switch stmt.Punctuation {
	case types.PunctuationGoal:
		if stmt.Shape == types.ShapeGoal {
			b.WriteString("!")
		}
	case types.PunctuationQuestion:
		if stmt.Shape == types.ShapeQuestion {
			b.WriteString("?")
		}
	case types.PunctuationQuest:
		b.WriteString("@")
	}

	return b.String()
}

func termString(t types.Term) string {
	if t.IsAtom() {
		return t.Atom
	}
	return Print(t.Nested)
}

// trimFloat renders a float using the shortest representation that
// round-trips, matching the canonical "{0.9 0.8}" rendering of literal
// values rather than "{0.900000 0.800000}".
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Terms returns the set of leaf atoms in a statement.
func Terms(stmt *types.Statement) []string {
	seen := map[string]struct{}{}
	var walk func(t types.Term)
	walk = func(t types.Term) {
		if t.IsAtom() {
			if t.Atom != "" {
				seen[t.Atom] = struct{}{}
			}
			return
		}
		walk(t.Nested.Subject)
		walk(t.Nested.Predicate)
	}
	walk(stmt.Subject)
	walk(stmt.Predicate)

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out
}

// Humanise renders a readable, explanation-only rendering of a statement.
func Humanise(stmt *types.Statement) string {
	subj := termString(stmt.Subject)
	pred := termString(stmt.Predicate)
	switch stmt.Shape {
	case types.ShapeInheritance:
		return fmt.Sprintf("%s is a kind of %s", subj, pred)
	case types.ShapeSimilarity:
		return fmt.Sprintf("%s is similar to %s", subj, pred)
	case types.ShapeImplication:
		return fmt.Sprintf("%s implies %s", subj, pred)
	case types.ShapeInstance:
		return fmt.Sprintf("%s is an instance of %s", subj, pred)
	case types.ShapeProperty:
		return fmt.Sprintf("%s has property %s", subj, pred)
	case types.ShapeGoal:
		return fmt.Sprintf("achieve %s", subj)
	case types.ShapeQuestion:
		return fmt.Sprintf("is %s true?", subj)
	default:
		return subj
	}
}

// Shape returns the statement's syntactic class.
func Shape(stmt *types.Statement) types.Shape {
	return stmt.Shape
}

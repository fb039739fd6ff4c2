// Package reasoner implements the ReasonerClient component: a client for the
// external non-axiomatic reasoning process, reached over UDP, guarded by a
// circuit breaker, with a rule-based in-process substitute used whenever the
// external process is unavailable.
package reasoner

import (
	"fmt"
	"strconv"
	"strings"

	"codegraph/internal/symbolic"
	"codegraph/internal/types"
)

// frameKind is the tag carried by each line of the wire protocol.
type frameKind string

const (
	frameJudgement frameKind = "JUDGEMENT"
	frameQuestion  frameKind = "QUESTION"
	frameCycles    frameKind = "CYCLES"
	frameDerived   frameKind = "DERIVED"
)

// frame is a single newline-terminated tagged datagram line:
//
//	TAG <tag> <kind> <narsese>
//
// tag correlates requests with responses over the unreliable transport;
// kind selects how the reasoner process (or the offline substitute) should
// treat the payload.
type frame struct {
	Tag     string
	Kind    frameKind
	Payload string
}

func encodeFrame(f frame) string {
	return fmt.Sprintf("TAG %s %s %s\n", f.Tag, f.Kind, f.Payload)
}

func decodeFrame(line string) (frame, error) {
	line = strings.TrimRight(line, "\n\r")
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 || fields[0] != "TAG" {
		return frame{}, fmt.Errorf("reasoner: malformed frame %q", line)
	}
	return frame{Tag: fields[1], Kind: frameKind(fields[2]), Payload: fields[3]}, nil
}

func encodeStatementFrame(tag string, kind frameKind, stmt types.Statement) string {
	return encodeFrame(frame{Tag: tag, Kind: kind, Payload: symbolic.Print(&stmt)})
}

func encodeCyclesFrame(tag string, cycles int) string {
	return encodeFrame(frame{Tag: tag, Kind: frameCycles, Payload: strconv.Itoa(cycles)})
}

func decodeStatementFrame(line string) (frame, *types.Statement, error) {
	f, err := decodeFrame(line)
	if err != nil {
		return frame{}, nil, err
	}
	stmt, err := symbolic.Parse(f.Payload)
	if err != nil {
		return frame{}, nil, fmt.Errorf("reasoner: undecodable payload in frame %q: %w", line, err)
	}
	return f, stmt, nil
}

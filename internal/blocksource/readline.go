package blocksource

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"datafast-runtime/internal/model"
	"datafast-runtime/internal/valve"
)

// Mode selects how a Source decodes each input unit before handing it to
// the Serializer, mirroring spec.md §4.4's direct/transform split one
// layer up: a direct-mode deployment wants ModeBlock, a transform-mode one
// wants ModeJSON so the Serializer's sandbox gets the raw payload.
type Mode int

const (
	// ModeJSON decodes each unit into an untyped JSON value and emits it
	// as KindJSON, for transform-mode pipelines.
	ModeJSON Mode = iota
	// ModeBlock decodes each unit directly into a canonical model.Block
	// and emits it as KindAlreadySerialized, for direct-mode pipelines
	// whose upstream already produces canonical records.
	ModeBlock
)

// ReadLineSource reads one JSON document per newline-delimited line from
// r (typically stdin), the reference "streaming" producer named in
// spec.md §4.3's Open Questions discussion of local/offline sources.
type ReadLineSource struct {
	r     io.Reader
	mode  Mode
	valve *valve.Valve
}

// NewReadLineSource constructs a line-delimited JSON source. v may be nil
// to disable Valve gating (e.g. in tests).
func NewReadLineSource(r io.Reader, mode Mode, v *valve.Valve) *ReadLineSource {
	return &ReadLineSource{r: r, mode: mode, valve: v}
}

func (s *ReadLineSource) Run(ctx context.Context, out chan<- Message) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := waitForValve(ctx, s.valve); err != nil {
			return err
		}
		msg, err := decodeUnit(s.mode, line, lineNo)
		if err != nil {
			return err
		}
		if err := trySend(ctx, out, msg); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func decodeUnit(mode Mode, raw []byte, ref any) (Message, error) {
	switch mode {
	case ModeBlock:
		var b model.Block
		if err := json.Unmarshal(raw, &b); err != nil {
			return Message{}, ErrDecode{Ref: refString(ref), Cause: err}
		}
		return Message{Kind: KindAlreadySerialized, Block: b}, nil
	default:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return Message{}, ErrDecode{Ref: refString(ref), Cause: err}
		}
		return Message{Kind: KindJSON, JSON: v}, nil
	}
}

func refString(ref any) string {
	switch r := ref.(type) {
	case string:
		return r
	case int:
		return "line " + strconv.Itoa(r)
	default:
		return "input"
	}
}

// waitForValve blocks until the valve allows another read, polling at its
// configured wait interval and honoring ctx cancellation (spec.md §4.3
// "sleep valve.wait milliseconds when blocked"). A nil valve never gates.
func waitForValve(ctx context.Context, v *valve.Valve) error {
	if v == nil {
		return nil
	}
	for !v.ShouldContinue() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.WaitTime()):
		}
	}
	return nil
}

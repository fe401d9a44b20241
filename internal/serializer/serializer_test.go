package serializer

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"datafast-runtime/internal/blocksource"
	"datafast-runtime/internal/model"
)

func TestDirectModePassesBlockThrough(t *testing.T) {
	s := NewDirect()
	in := make(chan blocksource.Message, 1)
	out := make(chan Message, 1)

	want := model.Block{Number: 42, Hash: common.HexToHash("0xabc")}
	in <- blocksource.Message{Kind: blocksource.KindAlreadySerialized, Block: want}
	close(in)

	if err := s.Run(context.Background(), in, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	got := <-out
	if got.Block.Number != want.Number || got.Block.Hash != want.Hash {
		t.Fatalf("got %+v, want %+v", got.Block, want)
	}
}

func TestDirectModeRejectsRawJSON(t *testing.T) {
	s := NewDirect()
	in := make(chan blocksource.Message, 1)
	out := make(chan Message, 1)
	in <- blocksource.Message{Kind: blocksource.KindJSON, JSON: map[string]any{"a": 1}}
	close(in)

	err := s.Run(context.Background(), in, out)
	if err == nil {
		t.Fatal("expected ErrUnexpectedKind")
	}
	if _, ok := err.(ErrUnexpectedKind); !ok {
		t.Fatalf("got %T, want ErrUnexpectedKind", err)
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	s := NewDirect()
	in := make(chan blocksource.Message)
	out := make(chan Message)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, in, out) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not observe cancellation")
	}
}

func TestDecodeBlockHeaderRequiresFields(t *testing.T) {
	e := model.Entity{Type: "BlockHeader"}
	e.Set("id", model.NewString("1"))
	if _, err := decodeBlockHeader(e); err == nil {
		t.Fatal("expected ErrMissingField for absent number/hash")
	}
}

func TestDecodeBlockHeaderRoundTrip(t *testing.T) {
	e := model.Entity{Type: "BlockHeader"}
	e.Set("id", model.NewString("7"))
	e.Set("number", model.NewInt64(7))
	e.Set("hash", model.NewString("0x01"))
	e.Set("parentHash", model.NewString("0x00"))
	e.Set("timestamp", model.NewInt64(1000))

	b, err := decodeBlockHeader(e)
	if err != nil {
		t.Fatalf("decodeBlockHeader: %v", err)
	}
	if b.Number != 7 || b.Timestamp != 1000 {
		t.Fatalf("got %+v", b)
	}
}

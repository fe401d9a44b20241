package datafilter

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"datafast-runtime/internal/manifest"
	"datafast-runtime/internal/model"
	"datafast-runtime/internal/serializer"
)

// TestTopic0MatchesKnownTransferSignature exercises spec.md §8 scenario 1:
// the canonical ERC-20 Transfer event's topic0 is a well-known literal.
func TestTopic0MatchesKnownTransferSignature(t *testing.T) {
	got := Topic0("Transfer(indexed address,indexed address,uint256)")
	want := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	if got != want {
		t.Fatalf("got %s, want %s", got.Hex(), want.Hex())
	}
}

func TestNormalizeSignatureStripsIndexedAndWhitespace(t *testing.T) {
	got := NormalizeSignature("Transfer( indexed address, indexed address , uint256 )")
	want := "Transfer(address,address,uint256)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func addr(h string) *common.Address {
	a := common.HexToAddress(h)
	return &a
}

func TestApplyMatchesAddressAndTopic(t *testing.T) {
	f := New([]manifest.DataSource{
		{
			Name:            "Pool",
			ResolvedAddress: addr("0x1"),
			Source:          manifest.Source{StartBlock: 10},
			Mapping: manifest.Mapping{
				EventHandlers: []manifest.EventHandler{
					{Event: "Transfer(indexed address,indexed address,uint256)", Handler: "handleTransfer"},
				},
			},
		},
	})
	block := model.Block{
		Number: 20,
		Logs: []model.Log{
			{
				Address:     common.HexToAddress("0x1"),
				Topics:      []common.Hash{Topic0("Transfer(indexed address,indexed address,uint256)")},
				BlockNumber: 20,
			},
		},
	}
	msg := f.Apply(block)
	if len(msg.MatchedEvents) != 1 || msg.MatchedEvents[0].HandlerName != "handleTransfer" {
		t.Fatalf("got %+v", msg.MatchedEvents)
	}
}

// TestApplyRejectsBeforeStartBlock exercises spec.md §8 scenario 4 (filter miss).
func TestApplyRejectsBeforeStartBlock(t *testing.T) {
	f := New([]manifest.DataSource{
		{
			Name:            "Pool",
			ResolvedAddress: addr("0x1"),
			Source:          manifest.Source{StartBlock: 100},
			Mapping: manifest.Mapping{
				EventHandlers: []manifest.EventHandler{
					{Event: "Transfer(indexed address,indexed address,uint256)", Handler: "handleTransfer"},
				},
			},
		},
	})
	block := model.Block{
		Number: 20,
		Logs: []model.Log{
			{
				Address:     common.HexToAddress("0x1"),
				Topics:      []common.Hash{Topic0("Transfer(indexed address,indexed address,uint256)")},
				BlockNumber: 20,
			},
		},
	}
	msg := f.Apply(block)
	if len(msg.MatchedEvents) != 0 {
		t.Fatalf("expected no matches before start block, got %+v", msg.MatchedEvents)
	}
}

func TestApplyCallsAllOverlappingHandlers(t *testing.T) {
	sig := "Transfer(indexed address,indexed address,uint256)"
	f := New([]manifest.DataSource{
		{Name: "A", ResolvedAddress: addr("0x1"), Mapping: manifest.Mapping{
			EventHandlers: []manifest.EventHandler{{Event: sig, Handler: "handleA"}},
		}},
		{Name: "B", ResolvedAddress: addr("0x1"), Mapping: manifest.Mapping{
			EventHandlers: []manifest.EventHandler{{Event: sig, Handler: "handleB"}},
		}},
	})
	block := model.Block{Logs: []model.Log{{
		Address: common.HexToAddress("0x1"),
		Topics:  []common.Hash{Topic0(sig)},
	}}}
	msg := f.Apply(block)
	if len(msg.MatchedEvents) != 2 {
		t.Fatalf("expected both overlapping handlers to fire, got %+v", msg.MatchedEvents)
	}
	if msg.MatchedEvents[0].HandlerName != "handleA" || msg.MatchedEvents[1].HandlerName != "handleB" {
		t.Fatalf("expected manifest order A,B, got %+v", msg.MatchedEvents)
	}
}

func TestApplyPropagatesBlockWithNoMatches(t *testing.T) {
	f := New([]manifest.DataSource{
		{Name: "Pool", Mapping: manifest.Mapping{
			BlockHandlers: []manifest.BlockHandler{{Handler: "handleBlock"}},
		}},
	})
	msg := f.Apply(model.Block{Number: 5})
	if len(msg.MatchedBlocks) != 1 || msg.MatchedBlocks[0].HandlerName != "handleBlock" {
		t.Fatalf("expected unconditional block handler to fire, got %+v", msg.MatchedBlocks)
	}
}

func TestRunPreservesBlockOrder(t *testing.T) {
	f := New(nil)
	in := make(chan serializer.Message, 8)
	out := make(chan Message, 8)
	for _, n := range []uint64{5, 1, 3, 2, 4} {
		in <- serializer.Message{Block: model.Block{Number: n}}
	}
	close(in)

	if err := f.Run(context.Background(), in, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	var got []uint64
	for m := range out {
		got = append(got, m.Block.Number)
	}
	want := []uint64{1, 2, 3, 4, 5}
	for i, n := range want {
		if got[i] != n {
			t.Fatalf("got order %v, want %v", got, want)
		}
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	f := New(nil)
	in := make(chan serializer.Message)
	out := make(chan Message)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, in, out) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not observe cancellation")
	}
}

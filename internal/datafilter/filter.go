package datafilter

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"datafast-runtime/internal/manifest"
	"datafast-runtime/internal/model"
)

// MatchedEvent is one handler invocation the Subgraph Dispatcher must make
// for a filtered block, spec.md §4.5 step 4's matched_events entry.
type MatchedEvent struct {
	Datasource  string
	HandlerName string
	Log         model.Log
}

// MatchedBlock is one block-handler invocation. Only handlers declared
// without a filter are ever matched (see Apply).
type MatchedBlock struct {
	Datasource  string
	HandlerName string
}

// Message is the Filter's output, spec.md's FilteredDataMessage.
type Message struct {
	Block         model.Block
	MatchedEvents []MatchedEvent
	MatchedBlocks []MatchedBlock
}

type eventRule struct {
	topic0  common.Hash
	handler string
}

type dsRule struct {
	name       string
	startBlock uint64
	address    *common.Address
	events     []eventRule
	blocks     []manifest.BlockHandler
}

// Filter holds the compiled per-datasource rules built from a loaded
// manifest: event signatures are hashed to their topic0 once, at
// construction, rather than on every log.
type Filter struct {
	rules []dsRule
}

// New compiles datasources into a Filter. Event signature hashing happens
// here so per-block filtering never recomputes a keccak256 digest for a
// signature it has already seen.
func New(datasources []manifest.DataSource) *Filter {
	rules := make([]dsRule, 0, len(datasources))
	for _, ds := range datasources {
		r := dsRule{
			name:       ds.Name,
			startBlock: ds.Source.StartBlock,
			address:    ds.ResolvedAddress,
			blocks:     ds.Mapping.BlockHandlers,
		}
		for _, eh := range ds.Mapping.EventHandlers {
			r.events = append(r.events, eventRule{
				topic0:  Topic0(eh.Event),
				handler: eh.Handler,
			})
		}
		rules = append(rules, r)
	}
	return &Filter{rules: rules}
}

var indexedTokenPattern = regexp.MustCompile(`\bindexed\b`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeSignature strips "indexed" tokens and whitespace from an event
// signature before hashing, per spec.md §4.5 step 2.
func NormalizeSignature(sig string) string {
	s := indexedTokenPattern.ReplaceAllString(sig, "")
	s = whitespacePattern.ReplaceAllString(s, "")
	return s
}

// Topic0 returns the keccak-256 digest of sig's normalized form, the value
// the Ethereum log's topics[0] carries for that event.
func Topic0(sig string) common.Hash {
	return crypto.Keccak256Hash([]byte(NormalizeSignature(sig)))
}

// Apply filters one block against every compiled datasource rule. Blocks
// with no matches still propagate, since unconditional block handlers may
// still need to run (spec.md §4.5 "Blocks with no matches still
// propagate").
func (f *Filter) Apply(block model.Block) Message {
	msg := Message{Block: block}
	for _, r := range f.rules {
		// Handler-major, log-minor: spec.md §8 orders dispatch "within one
		// block, in manifest order of handler declarations; within one
		// handler, logs... in log-index order". block.Logs is assumed
		// already log-index ordered, so iterating handlers outermost and
		// logs innermost yields both properties without an extra sort.
		for _, ev := range r.events {
			for _, log := range block.Logs {
				if log.BlockNumber < r.startBlock {
					continue
				}
				if r.address != nil && *r.address != log.Address {
					continue
				}
				if len(log.Topics) == 0 {
					continue
				}
				if ev.topic0 == log.Topics[0] {
					msg.MatchedEvents = append(msg.MatchedEvents, MatchedEvent{
						Datasource:  r.name,
						HandlerName: ev.handler,
						Log:         log,
					})
				}
			}
		}
		for _, bh := range r.blocks {
			if strings.TrimSpace(bh.Filter) != "" {
				// Named block filters (e.g. "call", "once") are a manifest
				// extension point; none is declared by any datasource this
				// runtime ships rules for, so an unrecognized filter name is
				// treated as "never matches" rather than guessed at.
				continue
			}
			msg.MatchedBlocks = append(msg.MatchedBlocks, MatchedBlock{
				Datasource:  r.name,
				HandlerName: bh.Handler,
			})
		}
	}
	return msg
}

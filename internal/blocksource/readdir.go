package blocksource

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/time/rate"

	"datafast-runtime/internal/valve"
)

// ReadDirSource streams every *.json file under dir in lexical name order,
// one block per file (spec.md §9 Open Question, resolved in SPEC_FULL.md
// §6.3: "source_dir streams all JSON files in the directory, sorted
// lexically, one block per file"). A transient read error (the directory
// entry vanishing between listing and open, e.g.) is retried, for at most
// maxRetries reads of the file in all, paced by a rate.Limiter rather than
// a tight loop.
type ReadDirSource struct {
	dir        string
	mode       Mode
	valve      *valve.Valve
	retryLimit *rate.Limiter
	maxRetries int
}

// NewReadDirSource constructs a directory-scanning source. retryRate
// bounds how often a failed file read may be retried; maxRetries caps the
// attempts before the file's error becomes fatal.
func NewReadDirSource(dir string, mode Mode, v *valve.Valve, retryRate rate.Limit, maxRetries int) *ReadDirSource {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReadDirSource{
		dir:        dir,
		mode:       mode,
		valve:      v,
		retryLimit: rate.NewLimiter(retryRate, 1),
		maxRetries: maxRetries,
	}
}

func (s *ReadDirSource) Run(ctx context.Context, out chan<- Message) error {
	names, err := s.listSorted()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := waitForValve(ctx, s.valve); err != nil {
			return err
		}
		raw, err := s.readWithRetry(ctx, name)
		if err != nil {
			return err
		}
		msg, err := decodeUnit(s.mode, raw, name)
		if err != nil {
			return err
		}
		if err := trySend(ctx, out, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReadDirSource) listSorted() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, ErrDecode{Ref: s.dir, Cause: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(names)
	return names, nil
}

func (s *ReadDirSource) readWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.retryLimit.Wait(ctx); err != nil {
				return nil, err
			}
		}
		raw, err := os.ReadFile(path)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return nil, ErrDecode{Ref: path, Cause: lastErr}
}

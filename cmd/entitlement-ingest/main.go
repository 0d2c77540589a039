// Command entitlement-ingest loads user discount entitlements from gzipped
// CRM export files into PostgreSQL.
//
// Each export file holds one "user_id,discount_id" pair per line. Exports
// are produced independently by several CRM shards, and a shard can emit
// stale or corrupt rows, so a grant is only trusted when it appears in two
// or more files. The cross-check runs in two passes over the exports with a
// bloom filter per file, keeping memory flat no matter how large the
// exports grow.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/aurelia-shop/pricing-engine/internal/repository"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	progressEvery = 5_000_000
)

// fileResult holds candidate grants found in a single file during pass 2.
type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		numFiles    int
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing entitlements-N.gz export files")
	flag.IntVar(&numFiles, "files", 3, "number of export files to cross-check")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if numFiles < 2 {
		slog.Error("at least 2 export files are needed for cross-checking")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, numFiles, databaseURL); err != nil {
		slog.Error("entitlement ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("entitlement ingest completed successfully")
}

func run(ctx context.Context, dataDir string, numFiles int, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("entitlements-%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: find grants appearing in 2+ files.
	slog.Info("pass 2: cross-checking grants")

	grants, err := findConfirmedGrants(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed grants")
	}

	slog.Info("confirmed grants found", slog.Int("count", len(grants)))

	if len(grants) == 0 {
		slog.Info("no grants to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeGrants(ctx, repository.NewDiscountRepository(pool), grants); err != nil {
		return errors.Wrap(err, "write grants to database")
	}

	return nil
}

// validGrant checks the "user_id,discount_id" line shape.
func validGrant(line string) bool {
	user, discount, ok := strings.Cut(line, ",")
	return ok && user != "" && discount != "" && !strings.Contains(discount, ",")
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			if validGrant(line) {
				filter.AddString(line)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("file", idx+1),
						slog.Uint64("grants", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_grants", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedGrants re-streams each file and checks grants against OTHER
// files' bloom filters. A grant is confirmed when it appears in 2+ files.
func findConfirmedGrants(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge per-file bitmasks.
	merged := make(map[string]uint)
	for _, r := range results {
		for grant, mask := range r.candidates {
			merged[grant] |= mask
		}
	}

	var confirmed []string
	for grant, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, grant)
		}
	}

	return confirmed, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			if !validGrant(line) {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("grants", count),
				)
			}

			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(line) {
					candidates[line] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_grants", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeGrants upserts all confirmed entitlements.
func writeGrants(ctx context.Context, repo *repository.DiscountRepository, grants []string) error {
	slog.Info("writing grants to database", slog.Int("count", len(grants)))

	var skipped int
	for i, grant := range grants {
		user, discount, _ := strings.Cut(grant, ",")
		if err := repo.GrantEntitlement(ctx, user, discount); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// CRM exports can reference discounts that were deleted here.
			skipped++
			slog.Warn("skipping grant",
				slog.String("user", user),
				slog.String("discount", discount),
				slog.String("error", err.Error()),
			)
			continue
		}

		if (i+1)%100 == 0 || i+1 == len(grants) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(grants)))
		}
	}

	if skipped > 0 {
		slog.Warn("some grants were skipped", slog.Int("skipped", skipped))
	}
	return nil
}

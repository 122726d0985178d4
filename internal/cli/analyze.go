package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"engagement-engine/internal/learning"
	"engagement-engine/internal/models"
	"engagement-engine/internal/repository"
	"engagement-engine/internal/strategy"
)

const maxLineSize = 4 * 1024 * 1024

var (
	analyzeInput       string
	analyzeOutput      string
	analyzeWorkers     int
	analyzeSnapshotIn  string
	analyzeSnapshotOut string
	analyzePersist     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the learning pipeline over a JSONL file of interaction records",
	Long: `Run the learning pipeline over a JSONL file of interaction records.

Each input line is one InteractionRecord. Reports are written as JSONL in input
order; a summary and the final strategy profiles are printed to stderr.

Examples:
  learnctl analyze --input records.jsonl
  learnctl analyze --input records.jsonl --workers 16 --out reports.jsonl
  learnctl analyze --input day2.jsonl --snapshot-in state.json --snapshot-out state.json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "-", "JSONL input file ('-' for stdin)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "out", "o", "-", "JSONL report output file ('-' for stdout)")
	analyzeCmd.Flags().IntVarP(&analyzeWorkers, "workers", "w", 0, "worker pool size (defaults to engine.workers)")
	analyzeCmd.Flags().StringVar(&analyzeSnapshotIn, "snapshot-in", "", "restore history and strategies from this snapshot file")
	analyzeCmd.Flags().StringVar(&analyzeSnapshotOut, "snapshot-out", "", "write history and strategies to this snapshot file")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "store reports and strategies in the configured database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	in, closeIn, err := openInput(analyzeInput)
	if err != nil {
		return err
	}
	defer closeIn()

	records, err := readRecords(in)
	if err != nil {
		return err
	}

	engineCfg := cfg.Engine
	if analyzeWorkers > 0 {
		engineCfg.Workers = analyzeWorkers
	}

	store := strategy.NewStore(engineCfg.HistoryLimit)
	if analyzeSnapshotIn != "" {
		snap, err := readSnapshot(analyzeSnapshotIn)
		if err != nil {
			return err
		}
		store.Restore(snap)
	}

	var opts []learning.Option
	if analyzePersist {
		repos, err := repository.Open(cfg, logger)
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		if repos != nil {
			defer repos.Close()
			opts = append(opts, learning.WithSink(repos))
		}
	}

	orchestrator := learning.New(engineCfg, store, logger, opts...)
	result, batchErr := orchestrator.ProcessBatch(ctx, records)

	out, closeOut, err := openOutput(analyzeOutput)
	if err != nil {
		return err
	}
	defer closeOut()
	if err := writeReports(out, result.Reports); err != nil {
		return err
	}

	snap := store.Snapshot()
	printSummary(cmd.ErrOrStderr(), result, snap)

	if analyzeSnapshotOut != "" {
		if err := writeSnapshot(analyzeSnapshotOut, snap); err != nil {
			return err
		}
	}

	if batchErr != nil {
		logger.Error("Batch did not complete", zap.Error(batchErr))
		return fmt.Errorf("batch did not complete (%d unprocessed): %w", len(result.UnprocessedIDs), batchErr)
	}
	return nil
}

// readRecords decodes one InteractionRecord per non-empty line.
func readRecords(r io.Reader) ([]models.InteractionRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []models.InteractionRecord
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec models.InteractionRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

func writeReports(w io.Writer, reports []*models.LearningReport) error {
	enc := json.NewEncoder(w)
	for _, r := range reports {
		if r == nil {
			continue
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, result *models.BatchResult, snap strategy.Snapshot) {
	fmt.Fprintf(w, "Processed: %d  Failed: %d  Unprocessed: %d\n\n", result.Processed, result.Failed, len(result.UnprocessedIDs))

	ids := make([]string, 0, len(snap.Profiles))
	for id := range snap.Profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATOR\tVERSION\tPERSONALIZATION\tEMOTION\tAUTHENTICITY\tCASUAL\tHISTORY")
	for _, id := range ids {
		p := snap.Profiles[id]
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n",
			id, p.Version,
			p.PersonaAdjustments["personalization"],
			p.PersonaAdjustments["emotion"],
			p.PersonaAdjustments["authenticity"],
			p.InteractionStyle["casual"],
			len(snap.History[id]))
	}
	tw.Flush()
}

func readSnapshot(path string) (strategy.Snapshot, error) {
	var snap strategy.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func writeSnapshot(path string, snap strategy.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" || path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/moments"
	"github.com/aretw0/moments/pkg/recurrence"
)

func main() {
	count := flag.Int("count", 1000, "Number of moments to generate")
	adapter := flag.String("adapter", "fs", "Storage adapter to benchmark: fs or sqlite")
	keep := flag.Bool("keep", false, "Keep the benchmark store after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "moments_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	open := func() *moments.Service {
		svc, err := moments.New(benchDir, moments.WithAdapter(*adapter), moments.WithLogger(logger))
		if err != nil {
			panic(err)
		}
		return svc
	}
	ctx := context.Background()

	fmt.Printf("Generating %d moments in %s (%s)...\n", *count, benchDir, *adapter)
	startGen := time.Now()
	svc := open()
	freqs := recurrence.Frequencies
	base := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range *count {
		_, err := svc.Create(ctx, moments.Input{
			Title:           fmt.Sprintf("Moment %d", i),
			Date:            recurrence.FormatDate(base.AddDate(0, 0, i*7)),
			RepeatFrequency: freqs[i%len(freqs)],
		})
		if err != nil {
			panic(err)
		}
	}
	if err := svc.Close(); err != nil {
		panic(err)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	// The fs index cache would make the first run warm; drop it.
	_ = os.RemoveAll(filepath.Join(benchDir, ".moments"))

	list := func(label string) time.Duration {
		svc := open()
		defer svc.Close()

		fmt.Printf("Running List (%s)...\n", label)
		start := time.Now()
		entities, err := svc.List(ctx)
		if err != nil {
			panic(err)
		}
		took := time.Since(start)
		fmt.Printf("%s Result: %v (Items: %d)\n", label, took, len(entities))
		return took
	}

	cold := list("Run 1 - Cold")
	warm := list("Run 2 - Warm")

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d moments, %s):\n", *count, *adapter)
	fmt.Printf("  Cold: %v\n", cold)
	fmt.Printf("  Warm: %v\n", warm)
	fmt.Printf("--------------------------------------------------\n")
}

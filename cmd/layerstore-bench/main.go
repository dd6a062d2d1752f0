package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/duskfs/layerstore/pkg/backend"
	"github.com/duskfs/layerstore/pkg/layer"
)

var (
	flagHelp     bool
	flagOps      int
	flagPageSize int64
	flagMaxPages int
	flagBench    string
)

func init() {
	flag.BoolVar(&flagHelp, "help", false, "Show help")
	flag.BoolVar(&flagHelp, "h", false, "Show help (short)")
	flag.IntVar(&flagOps, "ops", 10000, "Number of operations for benchmarks")
	flag.Int64Var(&flagPageSize, "page-size", 4096, "Page size in bytes")
	flag.IntVar(&flagMaxPages, "max-pages", 256, "Resident page cache limit")
	flag.StringVar(&flagBench, "bench", "all", "Benchmarks to run: all, write, read, flush, evict")
}

func main() {
	flag.Parse()

	if flagHelp {
		printHelp()
		os.Exit(0)
	}

	runBenchmarks()
}

func printHelp() {
	fmt.Print(`
layerstore-bench v1.0

Usage:
  layerstore-bench [options]

Options:
  -h, -help           Show this help message
  -ops <n>            Number of operations (default: 10000)
  -page-size <n>      Page size in bytes (default: 4096)
  -max-pages <n>      Resident page cache limit (default: 256)
  -bench <name>       Benchmark to run: all, write, read, flush, evict

Examples:
  layerstore-bench
  layerstore-bench -ops 50000
  layerstore-bench -bench write
`)
}

func newStore() *layer.Store {
	opts := layer.DefaultOptions()
	opts.PageSize = flagPageSize
	opts.MaxPages = flagMaxPages
	return layer.New(backend.NewMemory(), opts)
}

func runBenchmarks() {
	fmt.Printf("layerstore Benchmark Tool\n")
	fmt.Printf("=========================\n")
	fmt.Printf("Ops: %d\n", flagOps)
	fmt.Printf("Page size: %d\n", flagPageSize)
	fmt.Printf("Max pages: %d\n", flagMaxPages)
	fmt.Println()

	switch flagBench {
	case "all":
		runWriteBenchmark()
		runReadBenchmark()
		runFlushBenchmark()
		runEvictBenchmark()
	case "write":
		runWriteBenchmark()
	case "read":
		runReadBenchmark()
	case "flush":
		runFlushBenchmark()
	case "evict":
		runEvictBenchmark()
	default:
		fmt.Printf("Unknown benchmark: %s\n", flagBench)
	}
}

func runWriteBenchmark() {
	fmt.Println("=== WRITE Benchmark ===")
	store := newStore()
	defer store.Close()

	buf := make([]byte, 64)
	rand.Read(buf)

	start := time.Now()
	for i := 0; i < flagOps; i++ {
		offset := int64(i) * int64(len(buf))
		if err := store.Write(offset, buf); err != nil {
			fmt.Fprintf(os.Stderr, "write error: %v\n", err)
			return
		}
	}
	elapsed := time.Since(start)

	ops := float64(flagOps) / elapsed.Seconds()
	fmt.Printf("Time: %v\n", elapsed)
	fmt.Printf("Ops/sec: %.2f\n", ops)
	fmt.Println()
}

func runReadBenchmark() {
	fmt.Println("=== READ Benchmark ===")
	store := newStore()
	defer store.Close()

	buf := make([]byte, 64)
	rand.Read(buf)
	for i := 0; i < flagOps; i++ {
		store.Write(int64(i)*int64(len(buf)), buf)
	}

	start := time.Now()
	for i := 0; i < flagOps; i++ {
		if _, err := store.Read(int64(i)*int64(len(buf)), int64(len(buf))); err != nil {
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return
		}
	}
	elapsed := time.Since(start)

	ops := float64(flagOps) / elapsed.Seconds()
	fmt.Printf("Time: %v\n", elapsed)
	fmt.Printf("Ops/sec: %.2f\n", ops)
	fmt.Println()
}

func runFlushBenchmark() {
	fmt.Println("=== FLUSH Benchmark ===")
	store := newStore()
	defer store.Close()

	buf := make([]byte, 64)
	rand.Read(buf)
	for i := 0; i < flagOps; i++ {
		store.Write(int64(i)*int64(len(buf)), buf)
	}

	start := time.Now()
	if err := store.Flush(0, store.Size()); err != nil {
		fmt.Fprintf(os.Stderr, "flush error: %v\n", err)
		return
	}
	elapsed := time.Since(start)

	fmt.Printf("Time: %v\n", elapsed)
	fmt.Println()
}

func runEvictBenchmark() {
	fmt.Println("=== EVICT Benchmark ===")
	store := newStore()
	defer store.Close()

	buf := make([]byte, 64)
	rand.Read(buf)
	for i := 0; i < flagOps; i++ {
		store.Write(int64(i)*int64(len(buf)), buf)
	}

	start := time.Now()
	if err := store.Evict(1.0, true); err != nil {
		fmt.Fprintf(os.Stderr, "evict error: %v\n", err)
		return
	}
	elapsed := time.Since(start)

	fmt.Printf("Time: %v\n", elapsed)
	fmt.Println()
}

package fs

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dfslabs/dfs/cmd/util"
	"github.com/dfslabs/dfs/lib/meta"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dFS metadata servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfPathPrefix = "/__perf"
	perfNumThreads = 10
	perfPathSpread = 100
	perfDuration   = 10 * time.Second
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. mkdir,stat)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "paths"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different paths to use for the tests"))
	key = "duration"
	perfTestCmd.Flags().Duration(key, 10*time.Second, util.WrapString("How long to run each benchmark"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfPathSpread = viper.GetInt("paths")
	perfDuration = viper.GetDuration("duration")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func shouldSkip(name string) bool {
	for _, skip := range perfSkip {
		if strings.TrimSpace(skip) == name {
			return true
		}
	}
	return false
}

func perfPath(i int) string {
	return fmt.Sprintf("%s/f-%d", perfPathPrefix, i%max(1, perfPathSpread))
}

// runBenchmark drives op from perfNumThreads goroutines for perfDuration
// and records every call in a timer.
func runBenchmark(name string, op func(i int) error) {
	if shouldSkip(name) {
		fmt.Printf("%-12s skipped\n", name)
		return
	}

	timer := gometrics.NewTimer()
	errorCount := gometrics.NewCounter()
	deadline := time.Now().Add(perfDuration)

	var wg sync.WaitGroup
	wg.Add(perfNumThreads)
	for t := 0; t < perfNumThreads; t++ {
		go func(thread int) {
			defer wg.Done()
			i := thread
			for time.Now().Before(deadline) {
				start := time.Now()
				if err := op(i); err != nil {
					errorCount.Inc(1)
				}
				timer.UpdateSince(start)
				i += perfNumThreads
			}
		}(t)
	}
	wg.Wait()

	printTimer(name, timer, errorCount.Count())
}

func printTimer(name string, timer gometrics.Timer, errs int64) {
	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-12s %8d ops %10.0f ops/sec  p50=%s p95=%s p99=%s errors=%d\n",
		name,
		timer.Count(),
		timer.RateMean(),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		errs,
	)
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for dFS metadata servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads:  %d\n", perfNumThreads)
	fmt.Printf("Duration: %s per benchmark\n", perfDuration)
	fmt.Println()

	if ok, err := metaClient.Mkdirs(perfPathPrefix, meta.DefaultDirPerm, true); !ok || err != nil {
		return fmt.Errorf("failed to create benchmark directory: %v", err)
	}
	defer func() {
		if _, err := metaClient.Delete(perfPathPrefix, true); err != nil {
			fmt.Printf("failed to clean up %s: %v\n", perfPathPrefix, err)
		}
	}()

	fmt.Println("starting benchmarks...")

	holder := clientName()

	runBenchmark("create", func(i int) error {
		status, err := metaClient.Create(perfPath(i), 0, holder, meta.FlagCreate|meta.FlagOverwrite, false, 0, 0)
		if err != nil {
			return err
		}
		_, err = metaClient.Complete(perfPath(i), holder, nil, status.FileID)
		return err
	})

	runBenchmark("stat", func(i int) error {
		_, err := metaClient.GetFileInfo(perfPath(i))
		return err
	})

	runBenchmark("ls", func(int) error {
		_, err := metaClient.GetListing(perfPathPrefix, "", false)
		return err
	})

	runBenchmark("mv", func(i int) error {
		ok, err := metaClient.Rename(perfPath(i), perfPath(i)+".moved")
		if err != nil {
			return err
		}
		if ok {
			_, err = metaClient.Rename(perfPath(i)+".moved", perfPath(i))
		}
		return err
	})

	runBenchmark("df", func(int) error {
		_, err := metaClient.GetFsStats()
		return err
	})

	runBenchmark("rm", func(i int) error {
		_, err := metaClient.Delete(perfPath(i), false)
		return err
	})

	return nil
}

// Show a dynamic progress line during transfers

package cmd

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// interval between progress prints
const defaultProgressInterval = 500 * time.Millisecond

// transferStats counts finished files and bytes across transfer
// goroutines.
type transferStats struct {
	mu    sync.Mutex
	total int
	files int
	bytes int64
}

func newTransferStats(total int) *transferStats {
	return &transferStats{total: total}
}

// add records one finished file of the given size.
func (s *transferStats) add(bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files++
	s.bytes += bytes
}

func (s *transferStats) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%d of %d files, %s", s.files, s.total, formatBytes(s.bytes))
}

// startProgress starts the progress line printing.
//
// It returns a func which should be called to stop the stats.
func startProgress(stats *transferStats) func() {
	stopStats := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(defaultProgressInterval)
		for {
			select {
			case <-ticker.C:
				printProgress(stats.String())
			case <-stopStats:
				ticker.Stop()
				printProgress(stats.String())
				fmt.Println("")
				return
			}
		}
	}()
	return func() {
		close(stopStats)
		wg.Wait()
	}
}

// state for the progress printing
var (
	lastWidth  int // width of the previous progress line
	progressMu sync.Mutex
)

// printProgress rewrites the current line in place.
func printProgress(line string) {
	progressMu.Lock()
	defer progressMu.Unlock()

	width := len(line)
	// Anything past width is already blank from the previous rewrite.
	if pad := lastWidth - width; pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	fmt.Printf("\r%s", line)
	lastWidth = width
}

// formatBytes renders a byte count in the largest fitting unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

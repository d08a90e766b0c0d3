package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-scenario/types"
	"github.com/ethereum/go-ethereum/log"
)

// ProgressIndicator interface for UI updates
type ProgressIndicator interface {
	StartCollection(collection string, totalClasses int)
	StartClass(class string, totalCases int)
	StartTest(testName string)
	UpdateTest(testName string, status types.TestStatus)
	CompleteClass(class string)
	CompleteCollection(collection string)
	Stop()
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartCollection(collection string, totalClasses int) {}
func (n *noOpProgressIndicator) StartClass(class string, totalCases int)             {}
func (n *noOpProgressIndicator) StartTest(testName string)                           {}
func (n *noOpProgressIndicator) UpdateTest(testName string, status types.TestStatus) {}
func (n *noOpProgressIndicator) CompleteClass(class string)                          {}
func (n *noOpProgressIndicator) CompleteCollection(collection string)                {}
func (n *noOpProgressIndicator) Stop()                                               {}

// consoleProgressIndicator provides a console-based progress indicator.
// Classes of a collection run concurrently, so it tracks every running class
// and clause rather than a single current one.
type consoleProgressIndicator struct {
	logger   log.Logger
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex

	currentCollection   string
	totalClasses        int
	completedClasses    int
	completedTests      int
	collectionStartTime time.Time

	runningClasses map[string]time.Time
	runningTests   map[string]time.Time
}

// NewConsoleProgressIndicator creates a progress indicator that shows updates in the console
func NewConsoleProgressIndicator(logger log.Logger, updateInterval time.Duration) ProgressIndicator {
	if updateInterval == 0 {
		updateInterval = 30 * time.Second
	}

	indicator := &consoleProgressIndicator{
		logger:         logger,
		ticker:         time.NewTicker(updateInterval),
		stopCh:         make(chan struct{}),
		runningClasses: make(map[string]time.Time),
		runningTests:   make(map[string]time.Time),
	}

	go indicator.progressReporter()

	return indicator
}

func (c *consoleProgressIndicator) StartCollection(collection string, totalClasses int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentCollection = collection
	c.totalClasses = totalClasses
	c.completedClasses = 0
	c.completedTests = 0
	c.collectionStartTime = time.Now()
	c.runningClasses = make(map[string]time.Time)
	c.runningTests = make(map[string]time.Time)

	c.logger.Info("Starting collection", "collection", collection, "totalClasses", totalClasses)
}

func (c *consoleProgressIndicator) StartClass(class string, totalCases int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runningClasses[class] = time.Now()
	c.logger.Info("Starting class", "collection", c.currentCollection, "class", class, "cases", totalCases)
}

func (c *consoleProgressIndicator) StartTest(testName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runningTests[testName] = time.Now()
	c.logger.Debug("Test started", "test", testName, "runningTests", len(c.runningTests))
}

func (c *consoleProgressIndicator) UpdateTest(testName string, status types.TestStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.runningTests, testName)
	c.completedTests++

	c.logger.Debug("Test completed", "test", testName, "status", status, "completed", c.completedTests, "runningTests", len(c.runningTests))
}

func (c *consoleProgressIndicator) CompleteClass(class string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var duration time.Duration
	if start, ok := c.runningClasses[class]; ok {
		duration = time.Since(start).Truncate(time.Millisecond)
	}
	delete(c.runningClasses, class)
	c.completedClasses++
	c.logger.Info("Completed class", "collection", c.currentCollection, "class", class, "duration", duration)
}

func (c *consoleProgressIndicator) CompleteCollection(collection string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := time.Since(c.collectionStartTime).Truncate(time.Millisecond)
	c.logger.Info("Completed collection", "collection", collection, "totalClasses", c.totalClasses,
		"completedClasses", c.completedClasses, "completedTests", c.completedTests, "duration", duration)
	c.currentCollection = ""
	c.runningClasses = make(map[string]time.Time)
	c.runningTests = make(map[string]time.Time)
}

// progressReporter runs in a goroutine and periodically reports progress
func (c *consoleProgressIndicator) progressReporter() {
	for {
		select {
		case <-c.ticker.C:
			c.reportProgress()
		case <-c.stopCh:
			return
		}
	}
}

func (c *consoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.currentCollection == "" {
		return
	}

	var percentComplete float64
	if c.totalClasses > 0 {
		percentComplete = float64(c.completedClasses) * 100.0 / float64(c.totalClasses)
	}

	c.logger.Info("Progress update",
		"collection", c.currentCollection,
		"completedClasses", c.completedClasses,
		"totalClasses", c.totalClasses,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"completedTests", c.completedTests,
		"runningClasses", formatRunning(c.runningClasses, 3),
		"longestRunning", formatRunning(c.runningTests, 3),
	)
}

// Stop stops the progress indicator
func (c *consoleProgressIndicator) Stop() {
	c.stopOnce.Do(func() {
		c.ticker.Stop()
		close(c.stopCh)
	})
}

// formatRunning lists the longest running entries first, up to maxShow
func formatRunning(running map[string]time.Time, maxShow int) string {
	if len(running) == 0 {
		return ""
	}

	type entry struct {
		name     string
		duration time.Duration
	}

	var entries []entry
	now := time.Now()
	for name, startTime := range running {
		entries = append(entries, entry{name: name, duration: now.Sub(startTime)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].duration == entries[j].duration {
			return entries[i].name < entries[j].name
		}
		return entries[i].duration > entries[j].duration
	})

	var strs []string
	for i, e := range entries {
		if i >= maxShow {
			break
		}
		strs = append(strs, fmt.Sprintf("%s (%v)", e.name, e.duration.Truncate(time.Second)))
	}

	if len(entries) > maxShow {
		strs = append(strs, fmt.Sprintf("+%d more", len(entries)-maxShow))
	}

	return strings.Join(strs, ", ")
}

package server

import (
	"expvar"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemCollector periodically samples memory usage and the usage of the disk
// holding the data directory, and keeps the values in an expvar map.
type SystemCollector struct {
	vars     *expvar.Map
	diskPath string
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewSystemCollector creates a new collector.
// diskPath should be the path of the disk to monitor (e.g., the data directory).
func NewSystemCollector(diskPath string, interval time.Duration, logger *slog.Logger) *SystemCollector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SystemCollector{
		vars:     new(expvar.Map).Init(),
		diskPath: diskPath,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logger.With("component", "SystemCollector"),
	}
}

// Vars returns the map the collector writes into.
func (sc *SystemCollector) Vars() *expvar.Map {
	return sc.vars
}

// Collect takes one sample. Failures leave the previous values in place.
func (sc *SystemCollector) Collect() {
	if vm, err := mem.VirtualMemory(); err == nil {
		sc.setFloat("mem_used_percent", vm.UsedPercent)
	} else {
		sc.logger.Debug("Memory sample failed", "error", err)
	}

	du, err := disk.Usage(sc.diskPath)
	if err != nil {
		sc.logger.Debug("Disk sample failed", "path", sc.diskPath, "error", err)
		return
	}
	sc.setFloat("disk_used_percent", du.UsedPercent)
	sc.setInt("disk_used_bytes", int64(du.Used))
	sc.setInt("disk_free_bytes", int64(du.Free))
}

func (sc *SystemCollector) setFloat(key string, v float64) {
	f := new(expvar.Float)
	f.Set(v)
	sc.vars.Set(key, f)
}

func (sc *SystemCollector) setInt(key string, v int64) {
	i := new(expvar.Int)
	i.Set(v)
	sc.vars.Set(key, i)
}

// Start begins the background collection loop.
func (sc *SystemCollector) Start() {
	sc.logger.Info("Starting system metrics collector", "interval", sc.interval)
	sc.Collect()
	sc.wg.Add(1)
	go sc.collectLoop()
}

// Stop signals the collection loop to terminate and waits for it to finish.
func (sc *SystemCollector) Stop() {
	sc.stopOnce.Do(func() {
		sc.logger.Info("Stopping system metrics collector")
		close(sc.stopChan)
	})
	sc.wg.Wait()
}

func (sc *SystemCollector) collectLoop() {
	defer sc.wg.Done()
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sc.Collect()
		case <-sc.stopChan:
			return
		}
	}
}

package mine

import (
	"context"
	"log"

	"goldrush.bot/internal/config"
)

// Explorer scans its region row-major and reports every cell holding
// treasure. It never digs and never retries a probe: the scan is the
// retry.
type Explorer struct {
	api    API
	out    chan<- Find
	region config.Region
	log    *log.Logger
	stats  *Stats
}

func newExplorer(api API, out chan<- Find, region config.Region, stats *Stats, logger *log.Logger) *Explorer {
	return &Explorer{api: api, out: out, region: region, log: logger, stats: stats}
}

func (e *Explorer) Run(ctx context.Context) {
	total := e.region.Cells()
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			return
		}
		x := i%e.region.Width + e.region.OffsetX
		y := i/e.region.Width + e.region.OffsetY

		amount, err := e.api.Explore(ctx, x, y)
		e.stats.Explored.Add(1)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.Printf("explorer: probe (%d,%d): %v", x, y, err)
			continue
		}
		if amount <= 0 {
			continue
		}
		e.stats.Finds.Add(1)
		select {
		case e.out <- Find{X: x, Y: y, Amount: amount}:
		case <-ctx.Done():
			return
		}
	}
	e.log.Printf("explorer: scan complete, %d cells probed", total)
}

package pipeline

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total        int // Wells discovered.
	Current      int // 1-based index of the well last picked up.
	Stitched     int
	Skipped      int
	Failed       int
	TilesFused   int
	BytesWritten int64
}

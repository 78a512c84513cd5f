package telemetry

// Span and attribute names shared by the services.
const (
	SpanFrame      = "heatmap.frame"
	SpanCrop       = "map.crop"
	SpanPrecompute = "workflow.precompute_frames"
	SpanIngestRun  = "ingest.run"

	AttrRunID    = "epiviz.run_id"
	AttrDay      = "epiviz.day"
	AttrGradient = "epiviz.gradient"
	AttrMap      = "epiviz.map"
	AttrCacheHit = "epiviz.cache_hit"
)

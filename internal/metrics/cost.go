package metrics

// Default cost model in USD. The browser-driven provider costs a near-fixed
// slice of compute per run; the model-driven provider pays per call, scaled
// by screenshots sent and tokens exchanged.
const (
	DefaultDOMRunCost      = 0.005
	DefaultVisionBaseCost  = 0.05
	DefaultVisionImageCost = 0.015
	DefaultVisionTokenCost = 0.000009
)

// CostEstimator prices provider work for the cost counter and the per-run
// budget check.
type CostEstimator struct {
	DOMRun     float64
	VisionBase float64
	PerImage   float64
	PerToken   float64
}

// DefaultCostEstimator returns the estimator with the default cost model.
func DefaultCostEstimator() CostEstimator {
	return CostEstimator{
		DOMRun:     DefaultDOMRunCost,
		VisionBase: DefaultVisionBaseCost,
		PerImage:   DefaultVisionImageCost,
		PerToken:   DefaultVisionTokenCost,
	}
}

// EstimateDOM returns the flat estimate of one browser-driven run.
func (e CostEstimator) EstimateDOM() float64 {
	return e.DOMRun
}

// EstimateVision prices one model-driven run from its screenshot and token
// volume.
func (e CostEstimator) EstimateVision(images, tokens int) float64 {
	return e.VisionBase + float64(images)*e.PerImage + float64(tokens)*e.PerToken
}

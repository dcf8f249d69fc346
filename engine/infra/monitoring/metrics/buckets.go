package metrics

// HTTPDurationBuckets defines latency buckets for HTTP request duration metrics.
var HTTPDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// InjectionDurationBuckets defines latency buckets for a full injection run.
var InjectionDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// ValidationScoreBuckets spans the 0..100 validator score.
var ValidationScoreBuckets = []float64{0, 25, 50, 60, 70, 80, 85, 90, 95, 100}

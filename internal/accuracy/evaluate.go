package accuracy

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"adtrim/internal/adwindow"
	"adtrim/internal/transcript"
)

// Predictor produces annotations for a transcript. classify.Classifier
// satisfies it.
type Predictor interface {
	Classify(ctx context.Context, key string, t *transcript.Transcript) ([]adwindow.Annotation, error)
}

// Result pairs a fixture with its score.
type Result struct {
	Fixture   string
	Report    Report
	Predicted []adwindow.Annotation
	Err       error
}

// Passed reports whether the fixture scored without error and met th.
func (r Result) Passed(th Thresholds) bool {
	return r.Err == nil && r.Report.Passes(th)
}

// Evaluate classifies and scores each fixture, running up to workers at a
// time. Results come back in fixture order; a failure in one fixture is
// recorded on its Result and does not stop the others. Cancelling ctx marks
// fixtures that never started with the context error.
func Evaluate(ctx context.Context, predictor Predictor, fixtures []Fixture, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]Result, len(fixtures))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range fixtures {
		fx := fixtures[i]
		results[i].Fixture = fx.Name
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = evaluateOne(ctx, predictor, fx)
		}(i)
	}
	wg.Wait()
	return results
}

func evaluateOne(ctx context.Context, predictor Predictor, fx Fixture) Result {
	res := Result{Fixture: fx.Name}
	predicted, err := predictor.Classify(ctx, fx.Name, fx.Transcript)
	if err != nil {
		res.Err = fmt.Errorf("classify %s: %w", fx.Name, err)
		return res
	}
	res.Predicted = predicted
	report, err := Score(predicted, fx.GroundTruth, fx.Transcript)
	if err != nil {
		res.Err = fmt.Errorf("score %s: %w", fx.Name, err)
		return res
	}
	res.Report = report
	return res
}

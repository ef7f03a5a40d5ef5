// Package inference runs the periodic evaluation loop a board performs and
// publishes each prediction as a Result.
//
// A Runner owns one Predictor and one Dataset. Every interval it checks its
// Gate (normally the connectivity supervisor) and, when ready, evaluates a
// batch of samples and publishes one Result per sample to
// iotdemo/<board>. When the gate is closed the batch is skipped, not
// queued.
//
// Two predictors are built in:
//   - sine: the analytic reference for the sine sweep
//   - nearest: 1-nearest-neighbour over the dataset's reference rows
//
// Usage:
//
//	ds := inference.SineDataset(10)
//	r, err := inference.NewRunner(inference.RunnerOptions{
//	    Board:     "esp32dev",
//	    Predictor: inference.Sine{},
//	    Dataset:   ds,
//	    Publisher: broker,
//	    Gate:      sup,
//	})
//	go r.Run(ctx)
package inference

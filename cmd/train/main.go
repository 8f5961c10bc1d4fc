// Command train fits the isolation forest on the synthetic dataset and
// writes the model JSON the server loads at startup.
//
// Usage:
//
//	go run ./cmd/train                # writes models/anomaly_model.json
//	go run ./cmd/train -out /tmp/m.json -trees 200 -seed 7
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pharmatrace/medverify/internal/anomaly"
	"github.com/pharmatrace/medverify/internal/config"
)

func main() {
	out := flag.String("out", config.DefaultModelPath, "output path for the model JSON")
	trees := flag.Int("trees", anomaly.DefaultTrees, "number of trees in the forest")
	samples := flag.Int("samples", anomaly.DatasetSize, "synthetic dataset size")
	seed := flag.Int64("seed", anomaly.DefaultSeed, "RNG seed for dataset and forest")
	flag.Parse()

	dataset := anomaly.SyntheticDataset(*samples, *seed)
	features := anomaly.Features(dataset)

	opts := anomaly.DefaultFitOptions()
	opts.Trees = *trees
	opts.Seed = *seed

	model, err := anomaly.Fit(features, opts)
	if err != nil {
		log.Fatalf("train: fit model: %v", err)
	}

	report(dataset, model)

	if err := model.Save(*out); err != nil {
		log.Fatalf("train: save model: %v", err)
	}
	fmt.Printf("Model written to %s\n", *out)
}

// report prints how well the fitted forest separates the labeled synthetic
// classes. The labels are never used during fitting, so this is a sanity
// check on the contamination setting, not a validation score.
func report(dataset []anomaly.LabeledSample, model *anomaly.Model) {
	scorer := anomaly.NewScorer(model)

	var correct, flagged, anomalies int
	for _, s := range dataset {
		result := scorer.Score(anomaly.FeatureVectorFromSlice(s.Features))
		if result.Anomalous {
			flagged++
		}
		if result.Anomalous == s.Anomaly {
			correct++
		}
		if s.Anomaly {
			anomalies++
		}
	}

	fmt.Printf("Training samples:  %d (%d labeled anomalous)\n", len(dataset), anomalies)
	fmt.Printf("Flagged anomalous: %d\n", flagged)
	fmt.Printf("Label agreement:   %.1f%%\n", 100*float64(correct)/float64(len(dataset)))
}

package tools

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/registry"
)

// Comparison statistics reported per metric column.
const (
	StatMAE    = "MAE"
	StatMSE    = "MSE"
	StatR2     = "R2"
	StatMAPE   = "MAPE (%)"
	StatRelErr = "AvgRelError (%)"
)

type compareArgs struct {
	GroundTruth string `mapstructure:"gt_csv_path"`
	Predicted   string `mapstructure:"pred_csv_path"`
}

// Compare returns the tool comparing a ground truth metrics CSV with a predicted one.
//
// Images are joined on the Image column; images missing a value in either file are
// dropped. Every column shared by both files gets MAE, MSE and R2 (4 decimals) and
// MAPE and average relative error in percent (2 decimals). Relative errors ignore
// rows whose ground truth is zero.
func Compare(deps Deps) registry.ToolFunc {
	return func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
		var a compareArgs
		if err := decodeArgs(args, &a); err != nil {
			return domain.Failure("Comparison failed", err), nil
		}
		if a.GroundTruth == "" {
			a.GroundTruth = deps.Layout.GroundTruthCSV()
		}
		if a.Predicted == "" {
			a.Predicted = deps.Layout.PredictedCSV()
		}
		for _, p := range []string{a.GroundTruth, a.Predicted} {
			if _, err := os.Stat(p); err != nil {
				return domain.Failure("Comparison failed", fmt.Errorf("%w: csv %s", domain.ErrMissingArtifact, p)), nil
			}
		}

		gtHeader, _, err := readTable(a.GroundTruth)
		if err != nil {
			return domain.Failure("Comparison failed", err), nil
		}
		gt, err := loadTable(a.GroundTruth)
		if err != nil {
			return domain.Failure("Comparison failed", err), nil
		}
		pred, err := loadTable(a.Predicted)
		if err != nil {
			return domain.Failure("Comparison failed", err), nil
		}

		columns := sharedColumns(gtHeader, pred)
		if len(columns) == 0 {
			return domain.Failure("Comparison failed", fmt.Errorf("no metric columns shared by %s and %s", a.GroundTruth, a.Predicted)), nil
		}

		pairs := joinRows(gt, pred, columns)
		if len(pairs) == 0 {
			return domain.Failure("Comparison failed", fmt.Errorf("no comparable images; ground truth and predictions do not match")), nil
		}

		outputs := make(map[string]any, len(columns))
		for i, col := range columns {
			truth := make([]float64, len(pairs))
			guess := make([]float64, len(pairs))
			for j, p := range pairs {
				truth[j] = p.truth[i]
				guess[j] = p.guess[i]
			}
			outputs[col] = compareColumn(truth, guess)
		}

		deps.logger().InfoContext(ctx, "Compared metrics", "images", len(pairs), "columns", len(columns))
		return domain.Success(fmt.Sprintf("Comparison completed for %d images", len(pairs)), outputs), nil
	}
}

type rowPair struct {
	image string
	truth []float64
	guess []float64
}

// sharedColumns returns the ground truth columns, in file order, that some predicted
// row also has.
func sharedColumns(gtHeader []string, pred map[string]map[string]string) []string {
	inPred := map[string]bool{}
	for _, row := range pred {
		for col := range row {
			inPred[col] = true
		}
	}
	var out []string
	for i, col := range gtHeader {
		if i == 0 || col == "" {
			continue
		}
		if inPred[col] {
			out = append(out, col)
		}
	}
	return out
}

// joinRows pairs the images present in both tables with parseable values for every column.
func joinRows(gt, pred map[string]map[string]string, columns []string) []rowPair {
	images := make([]string, 0, len(gt))
	for image := range gt {
		if _, ok := pred[image]; ok {
			images = append(images, image)
		}
	}
	sort.Strings(images)

	var out []rowPair
	for _, image := range images {
		p := rowPair{image: image, truth: make([]float64, len(columns)), guess: make([]float64, len(columns))}
		complete := true
		for i, col := range columns {
			t, errT := strconv.ParseFloat(gt[image][col], 64)
			g, errG := strconv.ParseFloat(pred[image][col], 64)
			if errT != nil || errG != nil || math.IsNaN(t) || math.IsNaN(g) {
				complete = false
				break
			}
			p.truth[i], p.guess[i] = t, g
		}
		if complete {
			out = append(out, p)
		}
	}
	return out
}

func compareColumn(truth, guess []float64) map[string]any {
	n := float64(len(truth))

	var absSum, sqSum, mean float64
	for i := range truth {
		d := truth[i] - guess[i]
		absSum += math.Abs(d)
		sqSum += d * d
		mean += truth[i]
	}
	mean /= n

	var total float64
	for _, t := range truth {
		total += (t - mean) * (t - mean)
	}
	r2 := 0.0
	switch {
	case total != 0:
		r2 = 1 - sqSum/total
	case sqSum == 0:
		r2 = 1
	}

	var relSum float64
	var relN int
	for i := range truth {
		if truth[i] == 0 {
			continue
		}
		relSum += math.Abs((truth[i] - guess[i]) / truth[i])
		relN++
	}
	rel := 0.0
	if relN > 0 {
		rel = relSum / float64(relN) * 100
	}

	return map[string]any{
		StatMAE:    round(absSum/n, 4),
		StatMSE:    round(sqSum/n, 4),
		StatR2:     round(r2, 4),
		StatMAPE:   round(rel, 2),
		StatRelErr: round(rel, 2),
	}
}

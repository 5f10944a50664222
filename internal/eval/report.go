package eval

import (
	"fmt"
	"io"
	"sort"
)

// CategoryReport aggregates scores for one question category.
type CategoryReport struct {
	Category string `json:"category"`
	Count    int    `json:"count"`

	// Accuracy is the judged-correct fraction over judged results only; -1
	// when nothing in the category has been judged.
	Accuracy float64 `json:"accuracy"`

	F1         float64 `json:"f1"`
	BLEU       float64 `json:"bleu"`
	Similarity float64 `json:"similarity"`
}

// BuildReport averages per-question scores per category, plus an "overall"
// row across every category except the adversarial one.
func BuildReport(results Results) []CategoryReport {
	byCategory := make(map[string][]QAResult)
	for _, convResults := range results {
		for _, r := range convResults {
			byCategory[r.Category] = append(byCategory[r.Category], r)
			if r.Category != adversarialCategory {
				byCategory["overall"] = append(byCategory["overall"], r)
			}
		}
	}

	reports := make([]CategoryReport, 0, len(byCategory))
	for category, rs := range byCategory {
		reports = append(reports, summarize(category, rs))
	}
	sort.Slice(reports, func(i, j int) bool {
		// "overall" sorts last; categories sort by name.
		if reports[i].Category == "overall" {
			return false
		}
		if reports[j].Category == "overall" {
			return true
		}
		return reports[i].Category < reports[j].Category
	})
	return reports
}

// WriteReport renders the report as an aligned text table.
func WriteReport(w io.Writer, reports []CategoryReport) error {
	if _, err := fmt.Fprintf(w, "%-10s %6s %9s %7s %7s %11s\n",
		"category", "count", "accuracy", "f1", "bleu", "similarity"); err != nil {
		return err
	}
	for _, r := range reports {
		accuracy := "-"
		if r.Accuracy >= 0 {
			accuracy = fmt.Sprintf("%.3f", r.Accuracy)
		}
		if _, err := fmt.Fprintf(w, "%-10s %6d %9s %7.3f %7.3f %11.3f\n",
			r.Category, r.Count, accuracy, r.F1, r.BLEU, r.Similarity); err != nil {
			return err
		}
	}
	return nil
}

func summarize(category string, rs []QAResult) CategoryReport {
	report := CategoryReport{Category: category, Count: len(rs), Accuracy: -1}
	if len(rs) == 0 {
		return report
	}

	judged, correct := 0, 0
	for _, r := range rs {
		report.F1 += r.F1
		report.BLEU += r.BLEU
		report.Similarity += r.Similarity
		switch r.Judgment {
		case JudgmentCorrect:
			judged++
			correct++
		case JudgmentWrong:
			judged++
		}
	}
	n := float64(len(rs))
	report.F1 /= n
	report.BLEU /= n
	report.Similarity /= n
	if judged > 0 {
		report.Accuracy = float64(correct) / float64(judged)
	}
	return report
}

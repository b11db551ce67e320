package pipeline

import (
	"fmt"
	"testing"

	"github.com/productivity-nox/noxstat/internal/model"
)

func benchInput(n int) Input {
	in := Input{Days: 90, Preferences: goals(2000, 2000)}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("r%d", i)
		in.Tasks = append(in.Tasks, model.Task{ID: id, Completed: i%2 == 0, CreatedAt: at(i%120, i%24)})
		in.Meals = append(in.Meals, model.Meal{ID: id, Calories: i % 900, CreatedAt: at(i%120, 12)})
		in.Water = append(in.Water, model.WaterLog{ID: id, AmountML: 250, CreatedAt: at(i%120, 8)})
		in.Events = append(in.Events, model.AnalyticsEvent{
			ID: id, Type: model.EventScreenViewed, Timestamp: at(i%120, 10),
			Properties: map[string]any{"screenName": fmt.Sprintf("S%d", i%6)},
		})
	}
	return in
}

func BenchmarkAnalyze(b *testing.B) {
	in := benchInput(10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := Analyze(in, testClock)
		if err != nil {
			b.Fatal(err)
		}
		_ = r
	}
}

func BenchmarkWriteCSV(b *testing.B) {
	r, err := Analyze(benchInput(1000), testClock)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := WriteCSV(discard{}, r.Daily); err != nil {
			b.Fatal(err)
		}
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

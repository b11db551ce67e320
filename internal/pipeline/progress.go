package pipeline

import (
	"math"

	"github.com/productivity-nox/noxstat/internal/model"
)

// CompletionRate returns completed/total as a whole percent, 0 when total is 0.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// AverageCaloriesPerMeal returns calories/meals rounded, 0 when there are no meals.
func AverageCaloriesPerMeal(calories, meals int) int {
	if meals <= 0 {
		return 0
	}
	return int(math.Round(float64(calories) / float64(meals)))
}

// ProgressPercent returns observed/goal*100 clamped to [0, 100].
func ProgressPercent(observed, goal float64) (float64, error) {
	if goal <= 0 || math.IsNaN(goal) {
		return 0, invalidArg("goal", "must be positive, got %v", goal)
	}
	return clampPercent(observed, goal), nil
}

func clampPercent(observed, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	pct := observed / goal * 100
	switch {
	case math.IsNaN(pct) || pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// ComputeProgress derives today's and the window's goal progress from a
// daily sequence whose last entry is today.
func ComputeProgress(daily []model.DailyStat, waterGoal, calorieGoal int) (model.Progress, error) {
	if waterGoal <= 0 {
		return model.Progress{}, invalidArg("goals.daily_water_goal", "must be positive, got %d", waterGoal)
	}
	if calorieGoal <= 0 {
		return model.Progress{}, invalidArg("goals.daily_calorie_goal", "must be positive, got %d", calorieGoal)
	}

	p := model.Progress{WaterGoalML: waterGoal, CalorieGoal: calorieGoal}
	if len(daily) == 0 {
		return p, nil
	}

	var water, calories int
	for _, d := range daily {
		water += d.WaterML
		calories += d.Calories
		if d.WaterML >= waterGoal {
			p.DaysWaterGoalMet++
		}
		if d.Calories >= calorieGoal {
			p.DaysCalorieGoalMet++
		}
	}

	today := daily[len(daily)-1]
	days := float64(len(daily))
	p.TodayWaterML = today.WaterML
	p.TodayCalories = today.Calories
	p.TodayWaterPct = clampPercent(float64(today.WaterML), float64(waterGoal))
	p.TodayCaloriePct = clampPercent(float64(today.Calories), float64(calorieGoal))
	p.RangeWaterPct = clampPercent(float64(water), float64(waterGoal)*days)
	p.RangeCaloriePct = clampPercent(float64(calories), float64(calorieGoal)*days)
	return p, nil
}

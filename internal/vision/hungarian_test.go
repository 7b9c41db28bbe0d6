package vision

import "testing"

func TestHungarianAssignEmpty(t *testing.T) {
	result := hungarianAssign(nil)
	if result != nil {
		t.Errorf("expected nil for empty cost matrix, got %v", result)
	}
}

func TestHungarianAssignSingleElement(t *testing.T) {
	cost := [][]float64{{5.0}}
	result := hungarianAssign(cost)
	if len(result) != 1 || result[0] != 0 {
		t.Errorf("expected [0], got %v", result)
	}
}

func TestHungarianAssignSquareOptimal(t *testing.T) {
	// Classic 3x3 assignment problem:
	//   [1 2 3]     Optimal: row0→col0 (1), row1→col1 (4), row2→col2 (5) = 10
	//   [4 4 6]     NOT: row0→col0 (1), row1→col2 (6), row2→col1 (8) = 15
	//   [9 8 5]
	cost := [][]float64{
		{1, 2, 3},
		{4, 4, 6},
		{9, 8, 5},
	}
	result := hungarianAssign(cost)

	if len(result) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(result))
	}

	totalCost := 0.0
	for i, j := range result {
		if j < 0 {
			t.Errorf("row %d unassigned", i)
			continue
		}
		totalCost += cost[i][j]
	}

	if totalCost != 10.0 {
		t.Errorf("expected optimal cost 10, got %v (assignments: %v)", totalCost, result)
	}
}

func TestHungarianAssignForbidden(t *testing.T) {
	// Row 1 has no reachable column (all forbidden).
	cost := [][]float64{
		{1, 2},
		{forbiddenCost, forbiddenCost},
	}
	result := hungarianAssign(cost)

	if len(result) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result))
	}
	if result[0] != 0 {
		t.Errorf("row 0 should take col 0, got %d", result[0])
	}
	if result[1] != -1 {
		t.Errorf("row 1 should be unassigned, got %d", result[1])
	}
}

func TestHungarianAssignMoreRowsThanCols(t *testing.T) {
	cost := [][]float64{
		{1},
		{2},
		{3},
	}
	result := hungarianAssign(cost)

	assigned := 0
	for _, j := range result {
		if j == 0 {
			assigned++
		}
	}
	if assigned != 1 {
		t.Errorf("exactly one row should take the single column, got %d (assignments: %v)", assigned, result)
	}
	if result[0] != 0 {
		t.Errorf("cheapest row should win the column, got %v", result)
	}
}

func TestHungarianAssignMoreColsThanRows(t *testing.T) {
	cost := [][]float64{
		{3, 1, 2},
	}
	result := hungarianAssign(cost)

	if len(result) != 1 || result[0] != 1 {
		t.Errorf("row should take its cheapest column 1, got %v", result)
	}
}

func TestHungarianAssignBeatsGreedy(t *testing.T) {
	// Greedy takes row0→col0 (1) and strands row1 with 1000; the optimal
	// pairing is row0→col1 and row1→col0, total 4.
	cost := [][]float64{
		{1, 2},
		{2, 1000},
	}
	result := hungarianAssign(cost)

	total := 0.0
	for i, j := range result {
		if j < 0 {
			t.Fatalf("row %d unassigned: %v", i, result)
		}
		total += cost[i][j]
	}
	if total != 4 {
		t.Errorf("expected optimal total 4, got %v (assignments: %v)", total, result)
	}
}

package mmwave

import "testing"

func TestAggregateSubmap(t *testing.T) {
	frames := map[int]PointCloud{
		0: {{X: 0}},
		1: {{X: 1}, {X: 1.5}},
		2: {{X: 2}},
	}

	got := AggregateSubmap(frames, 0, 3)
	want := []float64{0, 1, 1.5, 2}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].X != w {
			t.Errorf("point %d X = %v, want %v (frame-index order)", i, got[i].X, w)
		}
	}
}

func TestAggregateSubmapSkipsMissingFrames(t *testing.T) {
	frames := map[int]PointCloud{
		0: {{X: 0}},
		2: {{X: 2}},
		4: {{X: 4}},
	}

	got := AggregateSubmap(frames, 0, 5)
	want := []float64{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].X != w {
			t.Errorf("point %d X = %v, want %v", i, got[i].X, w)
		}
	}
}

func TestAggregateSubmapWindowBounds(t *testing.T) {
	frames := map[int]PointCloud{
		0: {{X: 0}},
		1: {{X: 1}},
		2: {{X: 2}},
		3: {{X: 3}},
	}

	// Window [1, 3): frame 3 is outside.
	got := AggregateSubmap(frames, 1, 2)
	if len(got) != 2 || got[0].X != 1 || got[1].X != 2 {
		t.Errorf("window [1,3) = %+v, want frames 1 and 2", got)
	}
}

func TestAggregateSubmapEmpty(t *testing.T) {
	if got := AggregateSubmap(nil, 0, 10); len(got) != 0 {
		t.Errorf("AggregateSubmap(nil) = %v, want empty", got)
	}
	if got := AggregateSubmap(map[int]PointCloud{5: {{X: 5}}}, 0, 3); len(got) != 0 {
		t.Errorf("out-of-window frames leaked: %v", got)
	}
}

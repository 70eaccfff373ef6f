package physics

import (
	"math"
	"testing"

	"github.com/mageling/arena/internal/geom"
)

func near(a, b geom.Vec2) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestResolvePairs(t *testing.T) {
	cases := []struct {
		name    string
		static  Shape
		movable Shape
		want    geom.Vec2
	}{
		{
			name:    "box box shallow x",
			static:  NewAABB(geom.V(0, 0), 16, 16),
			movable: NewAABB(geom.V(14, 0), 16, 16),
			want:    geom.V(2, 0),
		},
		{
			name:    "box box shallow negative y",
			static:  NewAABB(geom.V(0, 0), 16, 16),
			movable: NewAABB(geom.V(1, -15), 16, 16),
			want:    geom.V(0, -1),
		},
		{
			name:    "box box separated",
			static:  NewAABB(geom.V(0, 0), 16, 16),
			movable: NewAABB(geom.V(16, 0), 16, 16),
			want:    geom.Zero,
		},
		{
			name:    "circle circle",
			static:  NewCircle(geom.V(0, 0), 5),
			movable: NewCircle(geom.V(0, 8), 5),
			want:    geom.V(0, 2),
		},
		{
			name:    "concentric circles",
			static:  NewCircle(geom.V(3, 3), 2),
			movable: NewCircle(geom.V(3, 3), 1),
			want:    geom.V(3, 0),
		},
		{
			name:    "circle outside box corner region",
			static:  NewAABB(geom.V(0, 0), 10, 10),
			movable: NewCircle(geom.V(8, 0), 4),
			want:    geom.V(1, 0),
		},
		{
			name:    "circle center inside box",
			static:  NewAABB(geom.V(0, 0), 10, 10),
			movable: NewCircle(geom.V(0, 4), 1),
			want:    geom.V(0, 2),
		},
		{
			name:    "box out of circle",
			static:  NewCircle(geom.V(8, 0), 4),
			movable: NewAABB(geom.V(0, 0), 10, 10),
			want:    geom.V(-1, 0),
		},
	}
	for _, tc := range cases {
		got := Resolve(tc.static, tc.movable)
		if !near(got, tc.want) {
			t.Errorf("%s: Resolve = %v, want %v", tc.name, got, tc.want)
		}
		if !got.Finite() {
			t.Errorf("%s: non-finite correction %v", tc.name, got)
		}
	}
}

func TestOverlapsIgnoresTouching(t *testing.T) {
	a := NewAABB(geom.V(0, 0), 2, 2)
	b := NewAABB(geom.V(2, 0), 2, 2)
	if Overlaps(a, b) {
		t.Fatal("touching boxes reported as overlapping")
	}
	c := NewCircle(geom.V(1.5, 0), 1)
	if !Overlaps(a, c) {
		t.Fatal("circle overlapping box edge not detected")
	}
}

func TestResolveWallsRecordsAxesAndMovesBoth(t *testing.T) {
	walls := []Shape{NewAABB(geom.V(0, 0), 16, 16)}
	pos := geom.V(14, 0)
	b := &Body{Shape: NewAABB(pos, 16, 16)}
	ResolveWalls(&pos, b, walls)
	if !near(pos, geom.V(16, 0)) || !near(b.Shape.Center, pos) {
		t.Fatalf("pos=%v shape=%v, want both (16,0)", pos, b.Shape.Center)
	}
	if len(b.Axes) != 1 || !near(b.Axes[0], geom.V(1, 0)) {
		t.Fatalf("axes = %v, want [(1,0)]", b.Axes)
	}
}

func TestResolveWallsSequentialCorner(t *testing.T) {
	// Actor wedged into an inside corner: the first wall pushes it on x, the
	// second on y, in that order.
	walls := []Shape{
		NewAABB(geom.V(0, 0), 16, 48),
		NewAABB(geom.V(16, -16), 48, 16),
	}
	pos := geom.V(15, -1)
	b := &Body{Shape: NewAABB(pos, 16, 16)}
	ResolveWalls(&pos, b, walls)
	if len(b.Axes) != 2 {
		t.Fatalf("axes = %v, want two corrections", b.Axes)
	}
	if !near(b.Axes[0], geom.V(1, 0)) || !near(b.Axes[1], geom.V(0, 1)) {
		t.Fatalf("axes = %v", b.Axes)
	}
	for _, w := range walls {
		if Overlaps(w, b.Shape) {
			t.Fatalf("still overlapping wall %v at %v", w.Center, pos)
		}
	}
}

func TestNoOverlapLeavesAxesEmpty(t *testing.T) {
	walls := []Shape{NewAABB(geom.V(100, 100), 16, 16)}
	pos := geom.V(0, 0)
	b := &Body{Shape: NewCircle(pos, 6), Axes: []geom.Vec2{{X: 1}}}
	ClearCorrections(b)
	Sync(b, pos)
	ResolveWalls(&pos, b, walls)
	if len(b.Axes) != 0 {
		t.Fatalf("axes = %v, want empty", b.Axes)
	}
}

func TestBodyDeepCopy(t *testing.T) {
	b := &Body{Shape: NewCircle(geom.Zero, 1), Axes: []geom.Vec2{{X: 1}}}
	c := b.DeepCopy()
	b.Axes[0] = geom.V(0, 1)
	if c.Axes[0] != geom.V(1, 0) {
		t.Fatalf("copy shares axes: %v", c.Axes)
	}
}

// The corner push below goes through sqrt and a division. Every peer must land
// on the same bits, so the result is pinned exactly rather than within a
// tolerance.
func TestResolveWallsCornerIsBitExact(t *testing.T) {
	walls := []Shape{NewAABB(geom.V(0, 0), 32, 32)}
	pos := geom.V(19.3, 17.1)
	b := &Body{Shape: NewCircle(pos, 6)}
	ResolveWalls(&pos, b, walls)

	if got := math.Float64bits(pos.X); got != 0x4035b12d73a4548c {
		t.Fatalf("x = %v (%#x), want 21.692099788303082", pos.X, got)
	}
	if got := math.Float64bits(pos.Y); got != 0x4031e5b9d136c6da {
		t.Fatalf("y = %v (%#x), want 17.89736659610103", pos.Y, got)
	}
	if pos != geom.V(21.692099788303082, 17.89736659610103) || b.Shape.Center != pos {
		t.Fatalf("pos = %v shape = %v", pos, b.Shape.Center)
	}
	if len(b.Axes) != 1 || b.Axes[0] != geom.V(0.9486832980505137, 0.3162277660168383) {
		t.Fatalf("axes = %v", b.Axes)
	}

	// Same inputs, same bits, on every run.
	again := geom.V(19.3, 17.1)
	ResolveWalls(&again, &Body{Shape: NewCircle(again, 6)}, walls)
	if again != pos {
		t.Fatalf("second resolve = %v, first = %v", again, pos)
	}
}

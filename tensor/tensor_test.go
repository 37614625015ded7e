package tensor

import (
	"errors"
	"testing"
)

func TestNewShape(t *testing.T) {
	t1 := New(2, 3)
	if len(t1.Data) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(t1.Data))
	}
	if len(t1.Shape) != 2 || t1.Shape[0] != 2 || t1.Shape[1] != 3 {
		t.Fatalf("unexpected shape: %v", t1.Shape)
	}
}

func TestFromDataLengthCheck(t *testing.T) {
	if _, err := FromData([]float64{1, 2, 3}, 2, 2); err == nil {
		t.Fatal("expected error for 3 values into [2 2]")
	}
	x, err := FromData([]float64{1, 2, 3, 4}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if x.Data[2] != 3 || x.Len() != 4 {
		t.Fatalf("got %v, want [1 2 3 4]", x.Data)
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := vec([]float64{1, 2})
	b := a.Clone()
	b.Data[0] = 9
	if a.Data[0] != 1 {
		t.Fatalf("clone aliases source data")
	}
}

func TestLerpEndpoints(t *testing.T) {
	a := vec([]float64{1, 2, 3})
	b := vec([]float64{-1, 0, 5})
	at0, _ := Lerp(a, b, 0)
	at1, _ := Lerp(a, b, 1)
	mid, _ := Lerp(a, b, 0.5)
	for i := range a.Data {
		if at0.Data[i] != b.Data[i] {
			t.Errorf("x=0 at %d: got %f, want %f", i, at0.Data[i], b.Data[i])
		}
		if at1.Data[i] != a.Data[i] {
			t.Errorf("x=1 at %d: got %f, want %f", i, at1.Data[i], a.Data[i])
		}
		if want := (a.Data[i] + b.Data[i]) / 2; mid.Data[i] != want {
			t.Errorf("x=0.5 at %d: got %f, want %f", i, mid.Data[i], want)
		}
	}
}

func TestOffset(t *testing.T) {
	base := vec([]float64{1, 1})
	dx := vec([]float64{1, 0})
	dy := vec([]float64{0, 2})
	out, err := Offset(base, dx, dy, 3, -1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Data[0] != 4 || out.Data[1] != -1 {
		t.Fatalf("got %v, want [4 -1]", out.Data)
	}
	if base.Data[0] != 1 {
		t.Fatalf("Offset mutated base")
	}
}

func TestClip(t *testing.T) {
	a := vec([]float64{-3, -0.5, 0, 0.5, 7})
	a.Clip(-1, 1)
	want := []float64{-1, -0.5, 0, 0.5, 1}
	for i := range want {
		if a.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, a.Data[i], want[i])
		}
	}
}

func TestMinMaxNormalize(t *testing.T) {
	out, err := MinMaxNormalize([]float64{2, 4, 6})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.5, 1}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, out[i], want[i])
		}
	}
	if _, err := MinMaxNormalize([]float64{3, 3, 3}); !errors.Is(err, ErrNumericDegenerate) {
		t.Fatalf("expected ErrNumericDegenerate, got %v", err)
	}
}

func vec(data []float64) *Tensor {
	return &Tensor{Data: data, Shape: []int{len(data)}}
}

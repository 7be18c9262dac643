package wall

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestMapToSurface(t *testing.T) {
	rect := SurfaceRect{Left: 10, Top: 20, Width: 200, Height: 400}

	tests := []struct {
		name  string
		point orb.Point
		want  orb.Point
	}{
		{"centre", orb.Point{110, 220}, orb.Point{50, 50}},
		{"top-left corner", orb.Point{10, 20}, orb.Point{0, 0}},
		{"bottom-right corner", orb.Point{210, 420}, orb.Point{100, 100}},
		{"rounds to two decimals", orb.Point{10.0123, 20}, orb.Point{0.01, 0}},
		{"outside is not clamped", orb.Point{0, 440}, orb.Point{-5, 105}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapToSurface(tt.point, rect)
			if got != tt.want {
				t.Errorf("MapToSurface(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestMapPointer_EmptySurface(t *testing.T) {
	for _, rect := range []SurfaceRect{
		{Width: 0, Height: 100},
		{Width: 100, Height: 0},
		{Width: -1, Height: 10},
		{Width: math.NaN(), Height: 10},
	} {
		_, err := MapPointer(orb.Point{1, 1}, rect)
		if !errors.Is(err, ErrEmptySurface) {
			t.Errorf("MapPointer with %+v: err = %v, want ErrEmptySurface", rect, err)
		}
	}
}

func TestSurfaceToClient_InvertsMapping(t *testing.T) {
	rect := SurfaceRect{Left: 10, Top: 20, Width: 200, Height: 400}
	p := orb.Point{25.5, 10.25}

	client := SurfaceToClient(p, rect)
	assert.Equal(t, p, MapToSurface(client, rect))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, orb.Point{0, 100}, Clamp(orb.Point{-3, 140}))
	assert.Equal(t, orb.Point{12.5, 99.99}, Clamp(orb.Point{12.5, 99.99}))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		event  DeviceEvent
		want   orb.Point
		wantOK bool
	}{
		{
			name:   "mouse",
			event:  DeviceEvent{Type: EventMouseMove, ClientX: 3, ClientY: 4},
			want:   orb.Point{3, 4},
			wantOK: true,
		},
		{
			name:   "touch uses first contact",
			event:  DeviceEvent{Type: EventTouchMove, Touches: []Touch{{5, 6}, {7, 8}}},
			want:   orb.Point{5, 6},
			wantOK: true,
		},
		{
			name:   "touchend falls back to changed touches",
			event:  DeviceEvent{Type: EventTouchEnd, ChangedTouches: []Touch{{9, 10}}},
			want:   orb.Point{9, 10},
			wantOK: true,
		},
		{
			name:   "touch without contacts",
			event:  DeviceEvent{Type: EventTouchStart},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.event)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestHitTest(t *testing.T) {
	natural := Size{Width: 1000, Height: 1000}
	// Displayed at half size: a 20px natural radius is 10px on screen.
	rect := SurfaceRect{Left: 0, Top: 0, Width: 500, Height: 500}
	holds := HoldCollection{
		{ID: "a", X: 50, Y: 50, State: StateStart},
		{ID: "b", X: 51, Y: 50, State: StateFinish},
	}

	t.Run("topmost hold wins", func(t *testing.T) {
		id, ok := HitTest(holds, orb.Point{252, 250}, rect, natural, 20)
		assert.True(t, ok)
		assert.Equal(t, "b", id)
	})

	t.Run("inside radius", func(t *testing.T) {
		id, ok := HitTest(holds, orb.Point{241, 250}, rect, natural, 20)
		assert.True(t, ok)
		assert.Equal(t, "a", id)
	})

	t.Run("miss", func(t *testing.T) {
		_, ok := HitTest(holds, orb.Point{100, 100}, rect, natural, 20)
		assert.False(t, ok)
	})

	t.Run("empty surface", func(t *testing.T) {
		_, ok := HitTest(holds, orb.Point{250, 250}, SurfaceRect{}, natural, 20)
		assert.False(t, ok)
	})
}

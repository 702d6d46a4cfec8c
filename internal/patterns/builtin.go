package patterns

// Builtin returns the stock pattern set sized for width LEDs. For a bank of
// four it is blink_all, chase, knight_rider, on_off_pairs and alternate.
func Builtin(width int) []Pattern {
	if width <= 0 {
		return nil
	}
	return []Pattern{
		{Name: "blink_all", Frames: []Frame{fill(width, true), fill(width, false)}},
		{Name: "chase", Frames: chase(width)},
		{Name: "knight_rider", Frames: knightRider(width)},
		{Name: "on_off_pairs", Frames: halves(width)},
		{Name: "alternate", Frames: alternate(width)},
	}
}

func fill(width int, on bool) Frame {
	f := make(Frame, width)
	for i := range f {
		f[i] = on
	}
	return f
}

func single(width, pos int) Frame {
	f := make(Frame, width)
	f[pos] = true
	return f
}

func chase(width int) []Frame {
	frames := make([]Frame, 0, width)
	for i := range width {
		frames = append(frames, single(width, i))
	}
	return frames
}

// knightRider sweeps out and back without repeating the end positions.
func knightRider(width int) []Frame {
	frames := chase(width)
	for i := width - 2; i >= 1; i-- {
		frames = append(frames, single(width, i))
	}
	return frames
}

func halves(width int) []Frame {
	a, b := make(Frame, width), make(Frame, width)
	for i := range width {
		a[i] = i < width/2
		b[i] = !a[i]
	}
	return []Frame{a, b}
}

func alternate(width int) []Frame {
	a, b := make(Frame, width), make(Frame, width)
	for i := range width {
		a[i] = i%2 == 0
		b[i] = !a[i]
	}
	return []Frame{a, b}
}
